package features

import (
	"errors"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cornerstats/fight-predictor/internal/testutils"
)

func expectedColumns() []string {
	cols := []string{ColTitleBout}
	cols = append(cols, testutils.PassThroughColumns...)
	cols = append(cols, ColBetterRank)
	for _, d := range differences {
		cols = append(cols, d.Name)
	}
	return append(cols, ColStanceDiff)
}

func TestTransform_ColumnOrder(t *testing.T) {
	df := testutils.Frame(testutils.Synthetic(5, 1))

	out, err := New().FitTransform(df)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	if !reflect.DeepEqual(out.Features.Columns, expectedColumns()) {
		t.Errorf("unexpected columns:\n got %v\nwant %v", out.Features.Columns, expectedColumns())
	}
	if out.Features.Rows() != 5 {
		t.Errorf("expected 5 rows, got %d", out.Features.Rows())
	}
}

func TestTransform_NoLeakage(t *testing.T) {
	df := testutils.Frame(testutils.Synthetic(8, 2))

	out, err := New().FitTransform(df)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	forbidden := append([]string{}, OutcomeColumns...)
	forbidden = append(forbidden, ColRedFighter, ColBlueFighter, ColRedStance, ColBlueStance)
	forbidden = append(forbidden, matchMetadataColumns...)
	forbidden = append(forbidden, specializedOddsColumns...)
	forbidden = append(forbidden, redundantColumns...)
	forbidden = append(forbidden, "BMatchWCRank", "RMatchWCRank", "RPFPRank", "BLightweightRank", "BPFPRank")
	for _, col := range forbidden {
		if out.Features.ColumnIndex(col) >= 0 {
			t.Errorf("feature matrix contains forbidden column %q", col)
		}
	}
}

func TestTransform_Deterministic(t *testing.T) {
	rows := testutils.Synthetic(12, 3)

	a, err := New().FitTransform(testutils.Frame(rows))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := New().FitTransform(testutils.Frame(rows))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !mat.Equal(a.Features.Data, b.Features.Data) {
		t.Error("same input produced different matrices")
	}
	if !reflect.DeepEqual(a.Features.Columns, b.Features.Columns) {
		t.Error("same input produced different columns")
	}
}

func TestTransform_IdentitySideChannel(t *testing.T) {
	rows := []testutils.Row{
		{"RedFighter": "Alex Pereira", "BlueFighter": "Jiri Prochazka"},
		{"RedFighter": "Islam Makhachev", "BlueFighter": "Dustin Poirier"},
	}

	out, err := New().FitTransform(testutils.Frame(rows))
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	if !reflect.DeepEqual(out.RedNames, []string{"Alex Pereira", "Islam Makhachev"}) {
		t.Errorf("unexpected red names %v", out.RedNames)
	}
	if !reflect.DeepEqual(out.BlueNames, []string{"Jiri Prochazka", "Dustin Poirier"}) {
		t.Errorf("unexpected blue names %v", out.BlueNames)
	}
}

func TestTransform_StanceDifference(t *testing.T) {
	tests := []struct {
		blue, red string
		want      float64
	}{
		{"Orthodox", "Southpaw", 1},
		{"Southpaw", "Orthodox", -1},
		{"Switch", "Orthodox", -2},
		{"Switch ", "Switch", 0},
		{"Bob and Weave", "Orthodox", -3},
		{"", "Switch", -1},
		{"orthodox", "Orthodox", -3},
	}

	rows := make([]testutils.Row, len(tests))
	for i, tt := range tests {
		rows[i] = testutils.Row{"BlueStance": tt.blue, "RedStance": tt.red}
	}

	out, err := New().FitTransform(testutils.Frame(rows))
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	got, _ := out.Features.Column(ColStanceDiff)
	for i, tt := range tests {
		if got[i] != tt.want {
			t.Errorf("blue %q red %q: Stance_diff = %v, want %v", tt.blue, tt.red, got[i], tt.want)
		}
	}
}

func TestTransform_BetterRankAndTitleBout(t *testing.T) {
	rows := []testutils.Row{
		{"BetterRank": "Red", "TitleBout": "True"},
		{"BetterRank": "Blue", "TitleBout": "False"},
		{"BetterRank": "", "TitleBout": "False"},
		{"BetterRank": "neither", "TitleBout": "True"},
	}

	out, err := New().FitTransform(testutils.Frame(rows))
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	rank, _ := out.Features.Column(ColBetterRank)
	if !reflect.DeepEqual(rank, []float64{-1, 1, 0, 0}) {
		t.Errorf("BetterRank = %v", rank)
	}
	title, _ := out.Features.Column(ColTitleBout)
	if !reflect.DeepEqual(title, []float64{1, 0, 0, 1}) {
		t.Errorf("TitleBout = %v", title)
	}
}

func TestTransform_MedianImputation(t *testing.T) {
	blue := []string{"1.0", "", "3.0", "", "5.0"}
	rows := make([]testutils.Row, len(blue))
	for i, b := range blue {
		rows[i] = testutils.Row{"BlueAvgSigStrPct": b, "RedAvgSigStrPct": "0"}
	}

	out, err := New().FitTransform(testutils.Frame(rows))
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	got, _ := out.Features.Column(ColSigStrPctDiff)
	want := []float64{1, 3, 3, 3, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("imputed column = %v, want %v", got, want)
	}
}

func TestTransform_FrozenMediansIgnoreBatch(t *testing.T) {
	train := []testutils.Row{
		{"BlueOdds": "100", "RedOdds": "0"},
		{"BlueOdds": "200", "RedOdds": "0"},
		{"BlueOdds": "300", "RedOdds": "0"},
	}
	p := New()
	medians, err := p.Fit(testutils.Frame(train))
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if medians[ColOddsDiff] != 200 {
		t.Fatalf("odds median = %v, want 200", medians[ColOddsDiff])
	}

	single := []testutils.Row{{"BlueOdds": "", "RedOdds": "-150"}}
	batch := []testutils.Row{
		{"BlueOdds": "", "RedOdds": "-150"},
		{"BlueOdds": "900", "RedOdds": "0"},
	}

	a, err := p.Transform(testutils.Frame(single))
	if err != nil {
		t.Fatalf("single transform: %v", err)
	}
	b, err := p.Transform(testutils.Frame(batch))
	if err != nil {
		t.Fatalf("batch transform: %v", err)
	}
	ga, _ := a.Features.Column(ColOddsDiff)
	gb, _ := b.Features.Column(ColOddsDiff)
	if ga[0] != 200 || gb[0] != 200 {
		t.Errorf("frozen median not applied: single=%v batch=%v", ga[0], gb[0])
	}
}

func TestTransform_OddsMirror(t *testing.T) {
	rows := []testutils.Row{
		{"RedOdds": "150", "BlueOdds": "-200"},
		{"RedOdds": "-200", "BlueOdds": "150"},
	}

	out, err := New().FitTransform(testutils.Frame(rows))
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	odds, _ := out.Features.Column(ColOddsDiff)
	if odds[0] != -350 || odds[1] != 350 {
		t.Errorf("odds_diff = %v, want [-350 350]", odds)
	}
}

func TestTransform_SchemaError(t *testing.T) {
	df := testutils.Frame(testutils.Synthetic(3, 4), "BlueOdds", "BPFPRank")

	_, err := New().FitTransform(df)
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %T", err)
	}
	if !reflect.DeepEqual(se.Missing, []string{"BlueOdds", "BPFPRank"}) {
		t.Errorf("missing = %v", se.Missing)
	}
}

func TestTransform_LabelIsOptional(t *testing.T) {
	df := testutils.Frame(testutils.Synthetic(3, 5), ColWinner)

	out, err := New().FitTransform(df)
	if err != nil {
		t.Fatalf("FitTransform without label failed: %v", err)
	}
	if !reflect.DeepEqual(out.Features.Columns, expectedColumns()) {
		t.Errorf("label absence changed columns: %v", out.Features.Columns)
	}
}

func TestTransform_AllMissingImputedColumn(t *testing.T) {
	rows := []testutils.Row{
		{"BlueExpectedValue": ""},
		{"BlueExpectedValue": ""},
	}

	_, err := New().FitTransform(testutils.Frame(rows))
	if !errors.Is(err, ErrDataQuality) {
		t.Fatalf("expected data quality error, got %v", err)
	}
	var dq *DataQualityError
	if !errors.As(err, &dq) || dq.Column != ColEVDiff {
		t.Errorf("expected error on %s, got %v", ColEVDiff, err)
	}
}

func TestTransform_NonNumericPassThrough(t *testing.T) {
	rows := []testutils.Row{{"AgeDif": "old"}, {"AgeDif": "2"}}

	_, err := New().FitTransform(testutils.Frame(rows))
	if !errors.Is(err, ErrDataQuality) {
		t.Fatalf("expected data quality error, got %v", err)
	}
}

func TestTransform_EmptyInput(t *testing.T) {
	_, err := New().FitTransform(testutils.Frame(nil))
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected schema error for empty input, got %v", err)
	}
}

func TestNewFitted_RequiresAllMedians(t *testing.T) {
	if _, err := NewFitted(Medians{ColOddsDiff: 1}); !errors.Is(err, ErrDataQuality) {
		t.Fatalf("expected data quality error, got %v", err)
	}
	p, err := NewFitted(Medians{ColOddsDiff: 1, ColEVDiff: 2, ColSigStrPctDiff: 3, ColTDPctDiff: 4})
	if err != nil {
		t.Fatalf("NewFitted failed: %v", err)
	}
	if !p.Fitted() {
		t.Error("expected fitted pipeline")
	}
}

func TestMatrixSelect(t *testing.T) {
	m := Matrix{Columns: []string{"a", "b", "c"}, Data: mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})}

	got, err := m.Select([]string{"c", "a"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	want := mat.NewDense(2, 2, []float64{3, 1, 6, 4})
	if !mat.Equal(got.Data, want) {
		t.Errorf("Select = %v", mat.Formatted(got.Data))
	}

	if _, err := m.Select([]string{"a", "z"}); !errors.Is(err, ErrSchema) {
		t.Errorf("expected schema error for unknown column, got %v", err)
	}
}

func TestStepsAreNamedAndOrdered(t *testing.T) {
	var names []string
	for _, s := range New().Steps() {
		names = append(names, s.Name)
	}
	want := []string{
		"validate_schema", "derive_differences", "drop_redundant", "drop_match_metadata",
		"normalize_stance", "encode_categoricals", "derive_stance_difference", "drop_rank_range",
		"drop_identity", "drop_specialized_odds", "impute_medians",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("steps = %v", names)
	}
}

func TestDropRankRangeIsPositional(t *testing.T) {
	df := testutils.Frame(testutils.Synthetic(2, 6))

	out, err := DropRankRange(df)
	if err != nil {
		t.Fatalf("DropRankRange failed: %v", err)
	}
	if got, want := out.Ncol(), df.Ncol()-5; got != want {
		t.Errorf("expected %d columns, got %d", want, got)
	}
	for _, n := range out.Names() {
		if n == "BLightweightRank" || n == "RMatchWCRank" {
			t.Errorf("column %s inside the rank range survived", n)
		}
	}
	if indexOf(out.Names(), ColBetterRank) < 0 {
		t.Error("BetterRank after the range was dropped")
	}
}
