// Package features turns raw fight records into the numeric feature matrix
// used by the classifiers.
//
// The transformation is an ordered list of named steps over a gota
// DataFrame. Column derivation happens before any column is dropped, and the
// resulting column order depends only on the input header.
package features

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
)

// Medians holds the imputation statistic for each of ImputedColumns.
type Medians map[string]float64

// Output is the result of a pipeline run. RedNames and BlueNames are aligned
// with the rows of Features and never enter the feature space.
type Output struct {
	Features  Matrix
	RedNames  []string
	BlueNames []string
}

// Pipeline transforms record sets. A fitted pipeline imputes with the medians
// captured by Fit; an unfitted one computes them from each batch it sees.
type Pipeline struct {
	medians Medians
}

// New returns an unfitted pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// NewFitted returns a pipeline that imputes with the given medians.
func NewFitted(medians Medians) (*Pipeline, error) {
	frozen := make(Medians, len(ImputedColumns))
	for _, col := range ImputedColumns {
		m, ok := medians[col]
		if !ok {
			return nil, &DataQualityError{Column: col, Reason: "no imputation statistic"}
		}
		frozen[col] = m
	}
	return &Pipeline{medians: frozen}, nil
}

// Fitted reports whether imputation statistics are frozen.
func (p *Pipeline) Fitted() bool {
	return p.medians != nil
}

// Medians returns a copy of the frozen statistics, or nil.
func (p *Pipeline) Medians() Medians {
	if p.medians == nil {
		return nil
	}
	out := make(Medians, len(p.medians))
	for k, v := range p.medians {
		out[k] = v
	}
	return out
}

// Steps returns the ordered transformation steps.
func (p *Pipeline) Steps() []Step {
	return []Step{
		{Name: "validate_schema", Apply: ValidateSchema},
		{Name: "derive_differences", Apply: DeriveDifferences},
		{Name: "drop_redundant", Apply: DropRedundant},
		{Name: "drop_match_metadata", Apply: DropMatchMetadata},
		{Name: "normalize_stance", Apply: NormalizeStances},
		{Name: "encode_categoricals", Apply: EncodeCategoricals},
		{Name: "derive_stance_difference", Apply: DeriveStanceDifference},
		{Name: "drop_rank_range", Apply: DropRankRange},
		{Name: "drop_identity", Apply: DropIdentity},
		{Name: "drop_specialized_odds", Apply: DropSpecializedOdds},
		ImputeMedians(p.medians),
	}
}

// Fit computes and freezes the imputation medians from df.
func (p *Pipeline) Fit(df dataframe.DataFrame) (Medians, error) {
	steps := p.Steps()
	prepared, err := run(df, steps[:len(steps)-1])
	if err != nil {
		return nil, err
	}
	medians, err := computeMedians(prepared)
	if err != nil {
		return nil, fmt.Errorf("impute_medians: %w", err)
	}
	p.medians = medians
	return p.Medians(), nil
}

// Transform runs every step and returns the feature matrix with the
// identity side channel.
func (p *Pipeline) Transform(df dataframe.DataFrame) (*Output, error) {
	out, err := run(df, p.Steps())
	if err != nil {
		return nil, err
	}
	m, err := fromFrame(out)
	if err != nil {
		return nil, err
	}
	return &Output{
		Features:  m,
		RedNames:  df.Col(ColRedFighter).Records(),
		BlueNames: df.Col(ColBlueFighter).Records(),
	}, nil
}

// FitTransform fits the medians on df and transforms it.
func (p *Pipeline) FitTransform(df dataframe.DataFrame) (*Output, error) {
	if _, err := p.Fit(df); err != nil {
		return nil, err
	}
	return p.Transform(df)
}

func run(df dataframe.DataFrame, steps []Step) (dataframe.DataFrame, error) {
	var err error
	for _, step := range steps {
		if df, err = step.Apply(df); err != nil {
			return df, fmt.Errorf("%s: %w", step.Name, err)
		}
	}
	return df, nil
}
