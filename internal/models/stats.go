package models

import "time"

// LabeledValues is a chart-ready distribution
type LabeledValues struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// DatasetStats is the /api/stats payload
type DatasetStats struct {
	Success bool         `json:"success"`
	Stats   StatsSummary `json:"stats"`
}

// StatsSummary holds the headline numbers of the historical dataset
type StatsSummary struct {
	TotalFights    int           `json:"totalFights"`
	UniqueFighters int           `json:"uniqueFighters"`
	RedWins        int           `json:"redWins"`
	BlueWins       int           `json:"blueWins"`
	WeightClasses  LabeledValues `json:"weightClasses"`
	FinishTypes    LabeledValues `json:"finishTypes"`
}

// RangeSummary describes a numeric column
type RangeSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// DatasetReport is the longer descriptive analysis
type DatasetReport struct {
	Success            bool          `json:"success"`
	TotalFights        int           `json:"totalFights"`
	FirstDate          time.Time     `json:"firstDate"`
	LastDate           time.Time     `json:"lastDate"`
	FightsWithOdds     int           `json:"fightsWithOdds"`
	UpsetRate          float64       `json:"upsetRate"`
	MostActiveFighters LabeledValues `json:"mostActiveFighters"`
	FightsPerYear      LabeledValues `json:"fightsPerYear"`
	TopLocations       LabeledValues `json:"topLocations"`
	TitleFights        int           `json:"titleFights"`
	TitleFightRate     float64       `json:"titleFightRate"`
	DurationMinutes    RangeSummary  `json:"durationMinutes"`
	AvgHeightCms       float64       `json:"avgHeightCms"`
	AvgReachCms        float64       `json:"avgReachCms"`
	AvgWeightLbs       float64       `json:"avgWeightLbs"`
	AvgSigStrLanded    float64       `json:"avgSigStrLanded"`
	AvgTDLanded        float64       `json:"avgTdLanded"`
}
