package features

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense numeric feature matrix with named columns.
type Matrix struct {
	Columns []string
	Data    *mat.Dense
}

// Rows returns the number of records.
func (m Matrix) Rows() int {
	if m.Data == nil {
		return 0
	}
	r, _ := m.Data.Dims()
	return r
}

// ColumnIndex returns the position of a column or -1.
func (m Matrix) ColumnIndex(name string) int {
	return indexOf(m.Columns, name)
}

// Column returns a copy of the named column.
func (m Matrix) Column(name string) ([]float64, bool) {
	j := m.ColumnIndex(name)
	if j < 0 {
		return nil, false
	}
	return mat.Col(nil, j, m.Data), true
}

// Select returns a matrix with exactly the given columns, in that order.
// It is used to align inference input with the columns seen at training.
func (m Matrix) Select(columns []string) (Matrix, error) {
	idx := make([]int, len(columns))
	var missing []string
	for i, c := range columns {
		idx[i] = m.ColumnIndex(c)
		if idx[i] < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return Matrix{}, &SchemaError{Missing: missing}
	}

	rows := m.Rows()
	if rows == 0 || len(columns) == 0 {
		return Matrix{Columns: append([]string(nil), columns...)}, nil
	}
	out := mat.NewDense(rows, len(columns), nil)
	for i := 0; i < rows; i++ {
		for j, src := range idx {
			out.Set(i, j, m.Data.At(i, src))
		}
	}
	return Matrix{Columns: append([]string(nil), columns...), Data: out}, nil
}

// fromFrame converts a fully numeric frame to a Matrix. Unparseable text and
// values left missing are data quality errors.
func fromFrame(df dataframe.DataFrame) (Matrix, error) {
	names := df.Names()
	rows := df.Nrow()
	if rows == 0 || len(names) == 0 {
		return Matrix{}, &SchemaError{Reason: "no features left after transformation"}
	}

	data := mat.NewDense(rows, len(names), nil)
	for j, name := range names {
		col := df.Col(name)
		values := col.Float()
		var records []string
		if col.Type() == series.String {
			records = col.Records()
		}
		for i, v := range values {
			if math.IsNaN(v) {
				if records != nil && !isMissingToken(records[i]) {
					return Matrix{}, &DataQualityError{Column: name, Reason: fmt.Sprintf("non-numeric value %q at row %d", records[i], i)}
				}
				return Matrix{}, &DataQualityError{Column: name, Reason: fmt.Sprintf("missing value at row %d", i)}
			}
			data.Set(i, j, v)
		}
	}
	return Matrix{Columns: names, Data: data}, nil
}

func isMissingToken(s string) bool {
	switch s {
	case "", "NaN", "NA", "nan", "<nil>":
		return true
	}
	return false
}
