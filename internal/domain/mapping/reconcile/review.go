package reconcile

import (
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/import/normalizer"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/mapper"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/schema"
)

const (
	sampleCount  = 3
	sampleLength = 15
)

// TargetReview is one target column as shown during review.
type TargetReview struct {
	Column    schema.Column `json:"column"`
	Source    string        `json:"source,omitempty"`
	Available []string      `json:"available"`
}

// Review is everything a person needs to decide the mapping of the sheet under review.
type Review struct {
	Index         int                   `json:"index"`
	Total         int                   `json:"total"`
	SourceName    string                `json:"sourceName"`
	TemplateSheet string                `json:"templateSheet"`
	Suggested     *mapper.MappingResult `json:"suggested"`
	Targets       []TargetReview        `json:"targets"`
	Samples       map[string][]string   `json:"samples"`
	Unused        []string              `json:"unused"`
	CanConfirm    bool                  `json:"canConfirm"`
}

// CurrentReview describes the sheet under review.
func (w *Workflow) CurrentReview() (*Review, error) {
	if w.state != StateMappingInProgress {
		return nil, w.transitionError("review")
	}
	idx := w.queue[w.cursor]
	sa := w.analysis.Sheets[idx]
	ts := w.templateSheet(idx)
	draft := w.drafts[idx]

	r := &Review{
		Index:         w.cursor,
		Total:         len(w.queue),
		SourceName:    sa.SourceName,
		TemplateSheet: sa.TemplateSheet,
		Suggested:     sa.Result,
		Targets:       make([]TargetReview, 0, len(ts.Columns)),
		Samples:       make(map[string][]string, len(sa.Columns)),
		CanConfirm:    w.CanConfirm(),
	}

	used := make(map[string]bool, len(draft))
	for _, src := range draft {
		used[src] = true
	}
	for _, c := range ts.Columns {
		available, _ := w.AvailableSources(c.Key)
		r.Targets = append(r.Targets, TargetReview{Column: c, Source: draft[c.Key], Available: available})
	}
	for _, col := range sa.Columns {
		r.Samples[col] = SampleValues(w.sheets[idx].Rows, col, sampleCount)
		if !used[col] {
			r.Unused = append(r.Unused, col)
		}
	}
	return r, nil
}

// SampleValues returns the non-empty values of column among the first n rows,
// stringified and cut to a short preview length.
func SampleValues(rows []dataset.Row, column string, n int) []string {
	n = max(n, 0)
	out := make([]string, 0, n)
	for _, row := range rows[:min(n, len(rows))] {
		v, ok := row[column]
		if !ok || v.IsNull() {
			continue
		}
		s := v.String()
		if s == "" {
			continue
		}
		out = append(out, normalizer.Truncate(s, sampleLength))
	}
	return out
}
