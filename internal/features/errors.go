package features

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema is matched by every *SchemaError.
	ErrSchema = errors.New("schema error")
	// ErrDataQuality is matched by every *DataQualityError.
	ErrDataQuality = errors.New("data quality error")
)

// SchemaError reports required columns that are absent from the input or
// a record set with the wrong shape.
type SchemaError struct {
	Missing []string
	Reason  string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("schema error: missing columns: %s", strings.Join(e.Missing, ", "))
	}
	return "schema error: " + e.Reason
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// DataQualityError reports a column whose values cannot be used, such as an
// imputed column with no observed values.
type DataQualityError struct {
	Column string
	Reason string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality error: column %q: %s", e.Column, e.Reason)
}

func (e *DataQualityError) Is(target error) bool { return target == ErrDataQuality }
