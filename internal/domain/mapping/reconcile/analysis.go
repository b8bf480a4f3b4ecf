package reconcile

import (
	"fmt"
	"strings"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/mapper"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/schema"
)

// StructuralKind names which structural check an upload failed.
type StructuralKind string

const (
	MismatchSheetCount  StructuralKind = "sheet_count"
	MismatchColumnCount StructuralKind = "column_count"
)

// StructuralError reports an upload that cannot be mapped at all: it has fewer
// sheets than the template, or a sheet has fewer columns than its required targets.
type StructuralError struct {
	Kind     StructuralKind
	Sheet    string
	Found    int
	Required int
	Expected []string
}

func (e *StructuralError) Error() string {
	switch e.Kind {
	case MismatchSheetCount:
		return fmt.Sprintf("workbook has %d sheet(s) but the template requires %d: %s",
			e.Found, e.Required, strings.Join(e.Expected, ", "))
	default:
		return fmt.Sprintf("sheet %q has %d column(s) but %d are required: %s",
			e.Sheet, e.Found, e.Required, strings.Join(e.Expected, ", "))
	}
}

// SheetAnalysis is the mapping proposal for one uploaded sheet.
type SheetAnalysis struct {
	SourceName    string                `json:"sourceName"`
	TemplateSheet string                `json:"templateSheet,omitempty"`
	Columns       []string              `json:"columns"`
	RowCount      int                   `json:"rowCount"`
	Result        *mapper.MappingResult `json:"result,omitempty"`
	NeedsReview   bool                  `json:"needsReview"`
}

// Matched reports whether the sheet was paired with a template sheet.
func (s *SheetAnalysis) Matched() bool { return s.TemplateSheet != "" }

// Analysis is the outcome of analysing a whole upload against a template.
type Analysis struct {
	FileName  string          `json:"fileName"`
	Sheets    []SheetAnalysis `json:"sheets"`
	TotalRows int             `json:"totalRows"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// NeedsReview reports whether any matched sheet needs a human decision.
func (a *Analysis) NeedsReview() bool {
	for _, s := range a.Sheets {
		if s.NeedsReview {
			return true
		}
	}
	return false
}

// Analyze validates the upload's structure against tpl and proposes a mapping for
// every uploaded sheet that pairs with a template sheet. Structural problems are
// returned as *StructuralError before any mapping is attempted for the sheet.
func Analyze(tpl *schema.Template, fileName string, sheets []dataset.Sheet, policy mapper.Policy) (*Analysis, error) {
	if len(sheets) < len(tpl.Sheets) {
		return nil, &StructuralError{
			Kind:     MismatchSheetCount,
			Found:    len(sheets),
			Required: len(tpl.Sheets),
			Expected: tpl.SheetNames(),
		}
	}

	a := &Analysis{FileName: fileName, Sheets: make([]SheetAnalysis, 0, len(sheets))}
	assigned, claimed := matchTemplateSheets(tpl, sheets)

	for i, ws := range sheets {
		sa := SheetAnalysis{
			SourceName: ws.Name,
			Columns:    ws.Columns,
			RowCount:   len(ws.Rows),
		}

		ts := assigned[i]
		if ts == nil {
			a.Warnings = append(a.Warnings, fmt.Sprintf("sheet %q does not match any template sheet and will be ignored", ws.Name))
			a.Sheets = append(a.Sheets, sa)
			continue
		}

		required := ts.RequiredCount()
		if len(ws.Columns) < required {
			expected := make([]string, 0, required)
			for _, c := range ts.Columns {
				if c.Required {
					expected = append(expected, c.Label)
				}
			}
			return nil, &StructuralError{
				Kind:     MismatchColumnCount,
				Sheet:    ws.Name,
				Found:    len(ws.Columns),
				Required: required,
				Expected: expected,
			}
		}

		sa.TemplateSheet = ts.Name
		sa.Result = policy.Generate(ws.Columns, mapper.TargetsFor(ts))
		sa.NeedsReview = sa.Result.NeedsUserReview || len(sa.Result.Mappings) < required
		a.TotalRows += sa.RowCount
		a.Sheets = append(a.Sheets, sa)
	}

	for _, ts := range tpl.Sheets {
		if !claimed[ts.Name] {
			a.Warnings = append(a.Warnings, fmt.Sprintf("template sheet %q received no data", ts.Name))
		}
	}
	return a, nil
}

// matchTemplateSheets pairs uploaded sheets with template sheets, each template
// sheet claimed at most once. Names are tried first for every sheet: case-insensitive,
// then with template underscores read as spaces, then ignoring whitespace, underscores
// and hyphens. Sheets left over fall back to the template sheet at the same position.
func matchTemplateSheets(tpl *schema.Template, sheets []dataset.Sheet) ([]*schema.Sheet, map[string]bool) {
	assigned := make([]*schema.Sheet, len(sheets))
	claimed := make(map[string]bool, len(tpl.Sheets))

	for i, ws := range sheets {
		if ts := matchByName(tpl, ws.Name, claimed); ts != nil {
			assigned[i] = ts
			claimed[ts.Name] = true
		}
	}

	for i := range sheets {
		if assigned[i] != nil || i >= len(tpl.Sheets) {
			continue
		}
		if ts := &tpl.Sheets[i]; !claimed[ts.Name] {
			assigned[i] = ts
			claimed[ts.Name] = true
		}
	}
	return assigned, claimed
}

func matchByName(tpl *schema.Template, name string, claimed map[string]bool) *schema.Sheet {
	lower := strings.ToLower(strings.TrimSpace(name))
	compact := stripSeparators(lower)

	rules := []func(tplName string) bool{
		func(tplName string) bool { return tplName == lower },
		func(tplName string) bool { return strings.ReplaceAll(tplName, "_", " ") == lower },
		func(tplName string) bool { return stripSeparators(tplName) == compact },
	}
	for _, rule := range rules {
		for i := range tpl.Sheets {
			ts := &tpl.Sheets[i]
			if !claimed[ts.Name] && rule(strings.ToLower(ts.Name)) {
				return ts
			}
		}
	}
	return nil
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '_', '-':
			return -1
		}
		return r
	}, s)
}
