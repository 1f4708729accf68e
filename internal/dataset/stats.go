package dataset

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"github.com/cornerstats/fight-predictor/internal/numeric"
)

// TopN is how many categories Stats reports per distribution.
const TopN = 8

// Count is one category and how often it occurs.
type Count struct {
	Label string
	Value int
}

// Stats summarizes a historical record set.
type Stats struct {
	TotalFights    int
	UniqueFighters int
	RedWins        int
	BlueWins       int
	WeightClasses  []Count
	FinishTypes    []Count
}

// ComputeStats counts fights, fighters, corner wins and the most common
// weight classes and finish types. Missing columns count as empty.
func ComputeStats(df dataframe.DataFrame) Stats {
	s := Stats{TotalFights: df.Nrow()}

	fighters := map[string]bool{}
	for _, col := range []string{colRedFighter, colBlueFighter} {
		for _, name := range records(df, col) {
			if name != "" {
				fighters[name] = true
			}
		}
	}
	s.UniqueFighters = len(fighters)

	for _, w := range records(df, colWinner) {
		switch w {
		case "Red":
			s.RedWins++
		case "Blue":
			s.BlueWins++
		}
	}
	s.WeightClasses = valueCounts(records(df, colWeightClass), TopN)
	s.FinishTypes = valueCounts(records(df, colFinish), TopN)
	return s
}

// Report is the longer descriptive analysis of a record set.
type Report struct {
	TotalFights        int
	FirstDate          time.Time
	LastDate           time.Time
	FightsWithOdds     int
	UpsetRate          float64
	MostActiveFighters []Count
	FightsPerYear      []Count
	TopLocations       []Count
	TitleFights        int
	TitleFightRate     float64
	DurationMinutes    Summary
	AvgHeightCms       float64
	AvgReachCms        float64
	AvgWeightLbs       float64
	AvgSigStrLanded    float64
	AvgTDLanded        float64
}

// Summary is the mean, minimum and maximum of a numeric column.
type Summary struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

// Describe computes the descriptive report. Rows with unparseable dates are
// left out of the date range and yearly counts only.
func Describe(df dataframe.DataFrame) Report {
	r := Report{TotalFights: df.Nrow()}

	yearly := map[string]int{}
	var years []string
	for _, raw := range records(df, colDate) {
		t, err := ParseDate(raw)
		if err != nil {
			continue
		}
		if r.FirstDate.IsZero() || t.Before(r.FirstDate) {
			r.FirstDate = t
		}
		if t.After(r.LastDate) {
			r.LastDate = t
		}
		y := strconv.Itoa(t.Year())
		if _, ok := yearly[y]; !ok {
			years = append(years, y)
		}
		yearly[y]++
	}
	sort.Strings(years)
	for _, y := range years {
		r.FightsPerYear = append(r.FightsPerYear, Count{Label: y, Value: yearly[y]})
	}

	redOdds := floats(df, "RedOdds")
	blueOdds := floats(df, "BlueOdds")
	winners := records(df, colWinner)
	upsets := 0
	for i := range redOdds {
		if i >= len(blueOdds) || i >= len(winners) || math.IsNaN(redOdds[i]) || math.IsNaN(blueOdds[i]) || winners[i] == "" {
			continue
		}
		r.FightsWithOdds++
		redFavourite := redOdds[i] < blueOdds[i]
		if (redFavourite && winners[i] == "Blue") || (!redFavourite && winners[i] == "Red") {
			upsets++
		}
	}
	if r.FightsWithOdds > 0 {
		r.UpsetRate = float64(upsets) / float64(r.FightsWithOdds)
	}

	appearances := append(records(df, colRedFighter), records(df, colBlueFighter)...)
	r.MostActiveFighters = valueCounts(appearances, 10)
	r.TopLocations = valueCounts(records(df, "Location"), 5)

	for _, v := range records(df, "TitleBout") {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil && b {
			r.TitleFights++
		}
	}
	if r.TotalFights > 0 {
		r.TitleFightRate = float64(r.TitleFights) / float64(r.TotalFights)
	}

	minutes := numeric.DropNaN(floats(df, "TotalFightTimeSecs"))
	for i := range minutes {
		minutes[i] /= 60
	}
	r.DurationMinutes = summarize(minutes)

	r.AvgHeightCms = pairedMean(df, "RedHeightCms", "BlueHeightCms")
	r.AvgReachCms = pairedMean(df, "RedReachCms", "BlueReachCms")
	r.AvgWeightLbs = pairedMean(df, "RedWeightLbs", "BlueWeightLbs")
	r.AvgSigStrLanded = pairedMean(df, "RedAvgSigStrLanded", "BlueAvgSigStrLanded")
	r.AvgTDLanded = pairedMean(df, "RedAvgTDLanded", "BlueAvgTDLanded")
	return r
}

func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{Count: len(values), Min: values[0], Max: values[0]}
	total := 0.0
	for _, v := range values {
		total += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = total / float64(len(values))
	return s
}

// pairedMean averages both corners' values over rows where both are present.
func pairedMean(df dataframe.DataFrame, red, blue string) float64 {
	r, b := floats(df, red), floats(df, blue)
	total, n := 0.0, 0
	for i := range r {
		if i >= len(b) || math.IsNaN(r[i]) || math.IsNaN(b[i]) {
			continue
		}
		total += r[i] + b[i]
		n += 2
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// valueCounts returns the n most frequent non-empty values, most frequent
// first. Equal counts keep first-appearance order.
func valueCounts(values []string, n int) []Count {
	counts := map[string]int{}
	var order []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == "NaN" {
			continue
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	out := make([]Count, len(order))
	for i, v := range order {
		out[i] = Count{Label: v, Value: counts[v]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Value > out[b].Value })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func records(df dataframe.DataFrame, col string) []string {
	if !hasColumn(df, col) {
		return nil
	}
	return df.Col(col).Records()
}

func floats(df dataframe.DataFrame, col string) []float64 {
	if !hasColumn(df, col) {
		return nil
	}
	return df.Col(col).Float()
}
