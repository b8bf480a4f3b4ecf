package mapper

import "github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"

// ApplyMappings projects each row onto target keys. Only matched mappings whose source
// field is present in the row contribute; values are copied untouched.
func ApplyMappings(rows []dataset.Row, mappings []ColumnMapping) []dataset.Row {
	out := make([]dataset.Row, len(rows))
	for i, row := range rows {
		projected := make(dataset.Row, len(mappings))
		for _, m := range mappings {
			if m.Status != StatusMatched {
				continue
			}
			if v, ok := row[m.SourceColumn]; ok {
				projected[m.TargetKey] = v
			}
		}
		out[i] = projected
	}
	return out
}
