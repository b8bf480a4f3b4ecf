// Package computed derives per-row values (margins, rates, balances) from mapped
// dashboard columns. Derivations never overwrite a value the upload supplied.
package computed

import (
	"math"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/import/normalizer"
)

// Field is a value derivable from other keys of the same row.
type Field struct {
	Key          string
	Label        string
	Dependencies []string
	// Calculate reports false when the inputs are missing or unusable.
	Calculate func(row dataset.Row) (float64, bool)
}

// FieldsFor returns the computed fields of a template, in evaluation order.
func FieldsFor(templateID string) []Field {
	return fields[templateID]
}

// ApplyComputedFields fills every computed key that is absent or null in a row.
// Fields run in list order on the row being built, so a later field sees the
// values written by earlier ones. Input rows are not modified.
func ApplyComputedFields(rows []dataset.Row, templateID string) []dataset.Row {
	fs := FieldsFor(templateID)
	if len(fs) == 0 {
		return rows
	}

	out := make([]dataset.Row, len(rows))
	for i, row := range rows {
		next := row.Clone()
		for _, f := range fs {
			if next.Has(f.Key) {
				continue
			}
			v, ok := f.Calculate(next)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			next[f.Key] = dataset.Number(v)
		}
		out[i] = next
	}
	return out
}

// num reads key as a number; absent, null and non-numeric values report false.
func num(row dataset.Row, key string) (float64, bool) {
	v, ok := row[key]
	if !ok {
		return 0, false
	}
	return normalizer.ToNumber(v)
}

// nonZero is num restricted to non-zero values.
func nonZero(row dataset.Row, key string) (float64, bool) {
	f, ok := num(row, key)
	if !ok || f == 0 {
		return 0, false
	}
	return f, true
}

// roundTo rounds half away from zero to the given number of decimal places.
func roundTo(v float64, scale float64) float64 {
	return math.Round(v*scale) / scale
}
