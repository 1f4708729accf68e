package features

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/cornerstats/fight-predictor/internal/numeric"
)

// Step is one named, pure transformation of a record set. A step never
// modifies its input; gota operations return new frames.
type Step struct {
	Name  string
	Apply func(df dataframe.DataFrame) (dataframe.DataFrame, error)
}

// ValidateSchema rejects empty record sets, record sets with load errors and
// record sets missing any required column.
func ValidateSchema(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return df, &SchemaError{Reason: df.Err.Error()}
	}
	if df.Nrow() == 0 {
		return df, &SchemaError{Reason: "record set is empty"}
	}

	names := df.Names()
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	var missing []string
	for _, c := range RequiredColumns() {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return df, &SchemaError{Missing: missing}
	}

	if indexOf(names, ColRankRangeStart) > indexOf(names, ColRankRangeEnd) {
		return df, &SchemaError{Reason: fmt.Sprintf("column %s must precede %s", ColRankRangeStart, ColRankRangeEnd)}
	}
	return df, nil
}

// DeriveDifferences appends the nine `blue - red` difference columns.
// Missing inputs propagate as NaN.
func DeriveDifferences(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	for _, d := range differences {
		blue := df.Col(d.Blue).Float()
		red := df.Col(d.Red).Float()
		values := make([]float64, len(blue))
		for i := range blue {
			values[i] = blue[i] - red[i]
		}
		df = df.Mutate(series.New(values, series.Float, d.Name))
		if df.Err != nil {
			return df, fmt.Errorf("derive %s: %w", d.Name, df.Err)
		}
	}
	return df, nil
}

// DropRedundant removes the paired aggregates that were differenced or are
// already represented by upstream difference columns.
func DropRedundant(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	return dropColumns(df, redundantColumns)
}

// DropMatchMetadata removes event context and outcome fields.
func DropMatchMetadata(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	return dropColumns(df, matchMetadataColumns)
}

// NormalizeStances trims whitespace from both stance columns before they are
// encoded, so "Switch " is treated as "Switch".
func NormalizeStances(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	for _, col := range []string{ColBlueStance, ColRedStance} {
		records := df.Col(col).Records()
		for i, r := range records {
			records[i] = NormalizeStance(r)
		}
		df = df.Mutate(series.New(records, series.String, col))
		if df.Err != nil {
			return df, fmt.Errorf("normalize %s: %w", col, df.Err)
		}
	}
	return df, nil
}

// EncodeCategoricals replaces stance, better-rank and title-bout labels with
// their numeric codes, in place.
func EncodeCategoricals(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	encoders := []struct {
		col    string
		encode func(string) float64
	}{
		{ColBlueStance, EncodeStance},
		{ColRedStance, EncodeStance},
		{ColBetterRank, EncodeBetterRank},
		{ColTitleBout, EncodeTitleBout},
	}
	for _, e := range encoders {
		records := df.Col(e.col).Records()
		values := make([]float64, len(records))
		for i, r := range records {
			values[i] = e.encode(r)
		}
		df = df.Mutate(series.New(values, series.Float, e.col))
		if df.Err != nil {
			return df, fmt.Errorf("encode %s: %w", e.col, df.Err)
		}
	}
	return df, nil
}

// DeriveStanceDifference appends Stance_diff from the encoded stances and
// removes the stance and label columns.
func DeriveStanceDifference(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	blue := df.Col(ColBlueStance).Float()
	red := df.Col(ColRedStance).Float()
	values := make([]float64, len(blue))
	for i := range blue {
		values[i] = blue[i] - red[i]
	}
	df = df.Mutate(series.New(values, series.Float, ColStanceDiff))
	if df.Err != nil {
		return df, fmt.Errorf("derive %s: %w", ColStanceDiff, df.Err)
	}
	return dropColumns(df, []string{ColBlueStance, ColRedStance, ColWinner})
}

// DropRankRange removes every column from BMatchWCRank through BPFPRank,
// inclusive, by position.
func DropRankRange(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	names := df.Names()
	start, end := indexOf(names, ColRankRangeStart), indexOf(names, ColRankRangeEnd)
	if start < 0 || end < 0 || start > end {
		return df, &SchemaError{Reason: fmt.Sprintf("rank range %s..%s not found", ColRankRangeStart, ColRankRangeEnd)}
	}
	return dropColumns(df, names[start:end+1])
}

// DropIdentity removes the fighter names. They are returned separately by
// the pipeline.
func DropIdentity(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	return dropColumns(df, []string{ColRedFighter, ColBlueFighter})
}

// DropSpecializedOdds removes method-of-victory odds.
func DropSpecializedOdds(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	return dropColumns(df, specializedOddsColumns)
}

// ImputeMedians returns the imputation step. With nil medians the statistics
// are computed from the record set passed to the step.
func ImputeMedians(fixed Medians) Step {
	return Step{
		Name: "impute_medians",
		Apply: func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
			medians := fixed
			if medians == nil {
				var err error
				if medians, err = computeMedians(df); err != nil {
					return df, err
				}
			}
			for _, col := range ImputedColumns {
				m, ok := medians[col]
				if !ok {
					return df, &DataQualityError{Column: col, Reason: "no imputation statistic"}
				}
				values := df.Col(col).Float()
				for i, v := range values {
					if math.IsNaN(v) {
						values[i] = m
					}
				}
				df = df.Mutate(series.New(values, series.Float, col))
				if df.Err != nil {
					return df, fmt.Errorf("impute %s: %w", col, df.Err)
				}
			}
			return df, nil
		},
	}
}

func computeMedians(df dataframe.DataFrame) (Medians, error) {
	medians := make(Medians, len(ImputedColumns))
	for _, col := range ImputedColumns {
		m, ok := numeric.Median(df.Col(col).Float())
		if !ok {
			return nil, &DataQualityError{Column: col, Reason: "every value is missing, median is undefined"}
		}
		medians[col] = m
	}
	return medians, nil
}

// dropColumns removes the named columns that are present. Required columns
// are enforced by ValidateSchema, so absence here only concerns optional ones.
func dropColumns(df dataframe.DataFrame, cols []string) (dataframe.DataFrame, error) {
	names := df.Names()
	present := make([]string, 0, len(cols))
	for _, c := range cols {
		if indexOf(names, c) >= 0 {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return df, nil
	}
	out := df.Drop(present)
	if out.Err != nil {
		return df, fmt.Errorf("drop columns: %w", out.Err)
	}
	return out, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
