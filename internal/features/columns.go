package features

// Upstream column names that the pipeline addresses directly.
const (
	ColRedFighter  = "RedFighter"
	ColBlueFighter = "BlueFighter"
	ColWinner      = "Winner"
	ColRedStance   = "RedStance"
	ColBlueStance  = "BlueStance"
	ColBetterRank  = "BetterRank"
	ColTitleBout   = "TitleBout"
	ColWeightClass = "WeightClass"

	// Inclusive bounds of the per-division ranking block.
	ColRankRangeStart = "BMatchWCRank"
	ColRankRangeEnd   = "BPFPRank"
)

// Derived column names.
const (
	ColDrawDiff      = "draw_diff"
	ColSigStrPctDiff = "avg_sig_str_pct_diff"
	ColTDPctDiff     = "avg_TD_pct_diff"
	ColMajorityDiff  = "M_DEC_diff"
	ColSplitDiff     = "S_DEC_diff"
	ColUnanimousDiff = "U_DEC_diff"
	ColTKODiff       = "TKO_diff"
	ColOddsDiff      = "odds_diff"
	ColEVDiff        = "ev_diff"
	ColStanceDiff    = "Stance_diff"
)

// difference describes a derived `blue - red` column.
type difference struct {
	Name string
	Blue string
	Red  string
}

var differences = []difference{
	{ColDrawDiff, "BlueDraws", "RedDraws"},
	{ColSigStrPctDiff, "BlueAvgSigStrPct", "RedAvgSigStrPct"},
	{ColTDPctDiff, "BlueAvgTDPct", "RedAvgTDPct"},
	{ColMajorityDiff, "BlueWinsByDecisionMajority", "RedWinsByDecisionMajority"},
	{ColSplitDiff, "BlueWinsByDecisionSplit", "RedWinsByDecisionSplit"},
	{ColUnanimousDiff, "BlueWinsByDecisionUnanimous", "RedWinsByDecisionUnanimous"},
	{ColTKODiff, "BlueWinsByTKODoctorStoppage", "RedWinsByTKODoctorStoppage"},
	{ColOddsDiff, "BlueOdds", "RedOdds"},
	{ColEVDiff, "BlueExpectedValue", "RedExpectedValue"},
}

// redundantColumns are the paired per-corner aggregates removed once the
// differences exist. The public dataset already carries pre-computed
// differences for most of them.
var redundantColumns = []string{
	"BlueOdds", "RedOdds", "BlueExpectedValue", "RedExpectedValue",
	"BlueCurrentLoseStreak", "RedCurrentLoseStreak", "BlueCurrentWinStreak", "RedCurrentWinStreak",
	"BlueLongestWinStreak", "RedLongestWinStreak", "BlueWins", "RedWins", "BlueLosses", "RedLosses",
	"BlueTotalRoundsFought", "RedTotalRoundsFought", "BlueTotalTitleBouts", "RedTotalTitleBouts",
	"BlueWinsByKO", "RedWinsByKO", "BlueWinsBySubmission", "RedWinsBySubmission",
	"BlueHeightCms", "RedHeightCms", "BlueReachCms", "RedReachCms", "BlueAge", "RedAge",
	"BlueAvgSigStrLanded", "RedAvgSigStrLanded", "BlueAvgSubAtt", "RedAvgSubAtt",
	"BlueAvgTDLanded", "RedAvgTDLanded", "BlueDraws", "RedDraws",
	"BlueAvgSigStrPct", "RedAvgSigStrPct", "BlueAvgTDPct", "RedAvgTDPct",
	"BlueWinsByDecisionMajority", "RedWinsByDecisionMajority",
	"BlueWinsByDecisionSplit", "RedWinsByDecisionSplit",
	"BlueWinsByDecisionUnanimous", "RedWinsByDecisionUnanimous",
	"BlueWinsByTKODoctorStoppage", "RedWinsByTKODoctorStoppage",
}

// matchMetadataColumns describe the event or how the bout ended; neither is
// usable before the fight.
var matchMetadataColumns = []string{
	"Date", "Location", "Country", ColWeightClass, "Gender", "NumberOfRounds", "EmptyArena",
	"Finish", "FinishDetails", "FinishRound", "FinishRoundTime", "TotalFightTimeSecs",
	"BlueWeightLbs", "RedWeightLbs",
}

// OutcomeColumns are the fields only known after a bout. None of them may
// reach the feature matrix.
var OutcomeColumns = []string{
	ColWinner, "Finish", "FinishDetails", "FinishRound", "FinishRoundTime", "TotalFightTimeSecs",
}

var specializedOddsColumns = []string{
	"RedDecOdds", "BlueDecOdds", "RSubOdds", "BSubOdds", "RKOOdds", "BKOOdds",
}

// ImputedColumns are filled with their median when missing.
var ImputedColumns = []string{ColSigStrPctDiff, ColTDPctDiff, ColOddsDiff, ColEVDiff}

// RequiredColumns lists every upstream column the pipeline needs. The label
// column is optional so that upcoming fights can be transformed.
func RequiredColumns() []string {
	seen := make(map[string]bool)
	var cols []string
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				cols = append(cols, n)
			}
		}
	}

	add(ColRedFighter, ColBlueFighter)
	for _, d := range differences {
		add(d.Blue, d.Red)
	}
	add(redundantColumns...)
	add(matchMetadataColumns...)
	add(ColRedStance, ColBlueStance, ColBetterRank, ColTitleBout)
	add(ColRankRangeStart, ColRankRangeEnd)
	add(specializedOddsColumns...)
	return cols
}
