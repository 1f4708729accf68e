// Package testutils builds fight record fixtures shared by package tests.
package testutils

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

var cornerStats = []string{
	"CurrentLoseStreak", "CurrentWinStreak", "Draws", "AvgSigStrLanded", "AvgSigStrPct", "AvgSubAtt",
	"AvgTDLanded", "AvgTDPct", "LongestWinStreak", "Losses", "TotalRoundsFought", "TotalTitleBouts",
	"WinsByDecisionMajority", "WinsByDecisionSplit", "WinsByDecisionUnanimous", "WinsByKO",
	"WinsBySubmission", "WinsByTKODoctorStoppage", "Wins",
}

// PassThroughColumns are upstream difference columns that no pipeline rule
// names; they survive into the feature matrix.
var PassThroughColumns = []string{"WinStreakDif", "AgeDif"}

// Header returns the column order of the upstream dataset.
func Header() []string {
	h := []string{
		"RedFighter", "BlueFighter", "RedOdds", "BlueOdds", "RedExpectedValue", "BlueExpectedValue",
		"Date", "Location", "Country", "Winner", "TitleBout", "WeightClass", "Gender", "NumberOfRounds",
	}
	for _, s := range cornerStats {
		h = append(h, "Blue"+s)
	}
	h = append(h, "BlueStance", "BlueHeightCms", "BlueReachCms", "BlueWeightLbs")
	for _, s := range cornerStats {
		h = append(h, "Red"+s)
	}
	h = append(h, "RedStance", "RedHeightCms", "RedReachCms", "RedWeightLbs", "RedAge", "BlueAge")
	h = append(h, PassThroughColumns...)
	h = append(h, "EmptyArena", "BMatchWCRank", "RMatchWCRank", "RPFPRank", "BLightweightRank", "BPFPRank", "BetterRank")
	h = append(h, "Finish", "FinishDetails", "FinishRound", "FinishRoundTime", "TotalFightTimeSecs")
	h = append(h, "RedDecOdds", "BlueDecOdds", "RSubOdds", "BSubOdds", "RKOOdds", "BKOOdds")
	return h
}

// Row holds column overrides for one record. Unset columns take defaults.
type Row map[string]string

func defaults(i int) Row {
	return Row{
		"RedFighter":    fmt.Sprintf("Red Fighter %d", i),
		"BlueFighter":   fmt.Sprintf("Blue Fighter %d", i),
		"Date":          fmt.Sprintf("2024-01-%02d", i%28+1),
		"Location":      "Las Vegas",
		"Country":       "USA",
		"Winner":        "Red",
		"TitleBout":     "False",
		"WeightClass":   "Lightweight",
		"Gender":        "MALE",
		"BlueStance":    "Orthodox",
		"RedStance":     "Orthodox",
		"EmptyArena":    "0",
		"BetterRank":    "neither",
		"Finish":        "U-DEC",
		"FinishDetails": "",
	}
}

// Records renders rows under the full header, optionally omitting columns.
func Records(rows []Row, omit ...string) [][]string {
	skip := make(map[string]bool, len(omit))
	for _, o := range omit {
		skip[o] = true
	}
	var header []string
	for _, h := range Header() {
		if !skip[h] {
			header = append(header, h)
		}
	}

	out := [][]string{header}
	for i, r := range rows {
		d := defaults(i)
		rec := make([]string, len(header))
		for j, col := range header {
			v, ok := r[col]
			if !ok {
				if v, ok = d[col]; !ok {
					v = "0"
				}
			}
			rec[j] = v
		}
		out = append(out, rec)
	}
	return out
}

// Frame loads rows into a DataFrame.
func Frame(rows []Row, omit ...string) dataframe.DataFrame {
	return dataframe.LoadRecords(Records(rows, omit...))
}

// CSV renders rows as CSV text. Values must not contain commas or quotes.
func CSV(rows []Row, omit ...string) string {
	var b strings.Builder
	for _, rec := range Records(rows, omit...) {
		b.WriteString(strings.Join(rec, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// Synthetic returns n fights whose winner is mostly decided by the odds and
// significant-strike differences, so a classifier has signal to learn.
func Synthetic(n int, seed int64) []Row {
	rng := rand.New(rand.NewSource(seed))
	stances := []string{"Orthodox", "Southpaw", "Switch", ""}
	rows := make([]Row, n)
	for i := range rows {
		favourite := rng.Float64() < 0.5
		redOdds, blueOdds := -150-rng.Intn(200), 120+rng.Intn(200)
		redPct, bluePct := 0.45+rng.Float64()*0.1, 0.35+rng.Float64()*0.1
		if !favourite {
			redOdds, blueOdds = blueOdds, redOdds
			redPct, bluePct = bluePct, redPct
		}
		winner := "Red"
		if !favourite {
			winner = "Blue"
		}
		if rng.Float64() < 0.1 {
			if winner == "Red" {
				winner = "Blue"
			} else {
				winner = "Red"
			}
		}
		rows[i] = Row{
			"Date":                    fmt.Sprintf("20%02d-%02d-%02d", 10+i/336, i/28%12+1, i%28+1),
			"Winner":                  winner,
			"RedOdds":                 strconv.Itoa(redOdds),
			"BlueOdds":                strconv.Itoa(blueOdds),
			"RedExpectedValue":        ftoa(100 / float64(abs(redOdds)) * 50),
			"BlueExpectedValue":       ftoa(100 / float64(abs(blueOdds)) * 50),
			"RedAvgSigStrPct":         ftoa(redPct),
			"BlueAvgSigStrPct":        ftoa(bluePct),
			"RedAvgTDPct":             ftoa(rng.Float64()),
			"BlueAvgTDPct":            ftoa(rng.Float64()),
			"RedDraws":                strconv.Itoa(rng.Intn(2)),
			"BlueDraws":               strconv.Itoa(rng.Intn(2)),
			"RedWinsByKO":             strconv.Itoa(rng.Intn(6)),
			"BlueWinsByKO":            strconv.Itoa(rng.Intn(6)),
			"RedStance":               stances[rng.Intn(len(stances))],
			"BlueStance":              stances[rng.Intn(len(stances))],
			"WinStreakDif":            strconv.Itoa(rng.Intn(7) - 3),
			"AgeDif":                  strconv.Itoa(rng.Intn(11) - 5),
			"RedWinsByDecisionSplit":  strconv.Itoa(rng.Intn(3)),
			"BlueWinsByDecisionSplit": strconv.Itoa(rng.Intn(3)),
			"WeightClass":             []string{"Lightweight", "Welterweight", "Bantamweight"}[i%3],
		}
	}
	return rows
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
