package learn

import (
	"fmt"
	"sort"
)

// Fold is one train/test partition of sample positions.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold splits positions 0..len(y)-1 into k folds without
// shuffling, keeping each class's share of every test fold as even as
// possible. Classes are ordered by first appearance and every class is dealt
// across folds in turn.
func StratifiedKFold(y []int, k int) ([]Fold, error) {
	n := len(y)
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("cannot split %d samples into %d folds", n, k)
	}

	order := map[int]int{}
	encoded := make([]int, n)
	for i, label := range y {
		c, ok := order[label]
		if !ok {
			c = len(order)
			order[label] = c
		}
		encoded[i] = c
	}
	classes := len(order)
	counts := make([]int, classes)
	for _, c := range encoded {
		counts[c]++
	}
	largest := 0
	for _, c := range counts {
		if c > largest {
			largest = c
		}
	}
	if largest < k {
		return nil, fmt.Errorf("no class has at least %d members", k)
	}

	sortedLabels := append([]int(nil), encoded...)
	sort.Ints(sortedLabels)
	allocation := make([][]int, k)
	for f := range allocation {
		allocation[f] = make([]int, classes)
		for i := f; i < n; i += k {
			allocation[f][sortedLabels[i]]++
		}
	}

	testFold := make([]int, n)
	for c := 0; c < classes; c++ {
		var assign []int
		for f := 0; f < k; f++ {
			for m := 0; m < allocation[f][c]; m++ {
				assign = append(assign, f)
			}
		}
		next := 0
		for i, e := range encoded {
			if e == c {
				testFold[i] = assign[next]
				next++
			}
		}
	}

	folds := make([]Fold, k)
	for i, f := range testFold {
		for g := range folds {
			if g == f {
				folds[g].Test = append(folds[g].Test, i)
			} else {
				folds[g].Train = append(folds[g].Train, i)
			}
		}
	}
	return folds, nil
}
