// Package dataset loads fight record sets and computes descriptive
// statistics over them.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrNoLabels is returned when a record set has no usable Winner column.
var ErrNoLabels = errors.New("record set has no winner labels")

const (
	colWinner      = "Winner"
	colDate        = "Date"
	colRedFighter  = "RedFighter"
	colBlueFighter = "BlueFighter"
	colWeightClass = "WeightClass"
	colFinish      = "Finish"
)

var dateLayouts = []string{"2006-01-02", "1/2/2006", "2006-01-02 15:04:05", time.RFC3339}

// LoadCSV reads a record set with a header row. Fighter names, dates and
// other free text are kept as strings.
func LoadCSV(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.WithLazyQuotes(true),
		dataframe.WithTypes(map[string]series.Type{
			colRedFighter:  series.String,
			colBlueFighter: series.String,
			colDate:        series.String,
			colWinner:      series.String,
			colWeightClass: series.String,
			colFinish:      series.String,
		}),
	)
	if df.Err != nil {
		return df, fmt.Errorf("read csv: %w", df.Err)
	}
	return df, nil
}

// LoadFile reads a record set from disk.
func LoadFile(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()
	df, err := LoadCSV(f)
	if err != nil {
		return df, fmt.Errorf("%s: %w", path, err)
	}
	return df, nil
}

// Labels returns the Winner column. Every row must carry a label.
func Labels(df dataframe.DataFrame) ([]string, error) {
	if !hasColumn(df, colWinner) {
		return nil, ErrNoLabels
	}
	labels := df.Col(colWinner).Records()
	for i, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || l == "NaN" {
			return nil, fmt.Errorf("%w: row %d is unlabeled", ErrNoLabels, i)
		}
		labels[i] = l
	}
	return labels, nil
}

// ParseDate accepts the date layouts found in upstream exports.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// SortByDate orders rows oldest first. Rows on the same date keep their
// relative order.
func SortByDate(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if !hasColumn(df, colDate) {
		return df, fmt.Errorf("no %s column", colDate)
	}
	raw := df.Col(colDate).Records()
	dates := make([]time.Time, len(raw))
	for i, s := range raw {
		t, err := ParseDate(s)
		if err != nil {
			return df, fmt.Errorf("row %d: %w", i, err)
		}
		dates[i] = t
	}
	order := make([]int, len(dates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return dates[order[a]].Before(dates[order[b]]) })
	sorted := df.Subset(order)
	if sorted.Err != nil {
		return df, sorted.Err
	}
	return sorted, nil
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}
