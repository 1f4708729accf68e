package learn

// Accuracy is the share of positions where pred equals truth. Empty input
// scores 0.
func Accuracy(truth, pred []int) float64 {
	if len(truth) == 0 || len(truth) != len(pred) {
		return 0
	}
	hits := 0
	for i := range truth {
		if truth[i] == pred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}

// ConfusionMatrix counts [truth][pred] pairs over k classes.
func ConfusionMatrix(truth, pred []int, k int) [][]int {
	cm := make([][]int, k)
	for i := range cm {
		cm[i] = make([]int, k)
	}
	for i := range truth {
		if i < len(pred) && truth[i] < k && pred[i] < k {
			cm[truth[i]][pred[i]]++
		}
	}
	return cm
}

// ClassScore holds per-class precision, recall and F1.
type ClassScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// ClassificationReport derives per-class scores from a confusion matrix.
// Undefined ratios are reported as 0.
func ClassificationReport(cm [][]int) []ClassScore {
	k := len(cm)
	out := make([]ClassScore, k)
	for c := 0; c < k; c++ {
		tp := cm[c][c]
		predicted, actual := 0, 0
		for o := 0; o < k; o++ {
			predicted += cm[o][c]
			actual += cm[c][o]
		}
		s := ClassScore{Support: actual}
		if predicted > 0 {
			s.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			s.Recall = float64(tp) / float64(actual)
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		out[c] = s
	}
	return out
}
