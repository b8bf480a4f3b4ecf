// Package mapper proposes source-to-target column mappings for one sheet and
// projects uploaded rows through a chosen mapping.
package mapper

import (
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/matcher"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/schema"
)

// Status classifies a mapping entry.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusUnmatched Status = "unmatched"
	StatusExtra     Status = "extra"
	StatusMissing   Status = "missing"
)

// DefaultAutoAcceptThreshold is the confidence every match needs for a sheet to skip review.
const DefaultAutoAcceptThreshold = 0.98

// ColumnMapping links one uploaded column to one template key.
type ColumnMapping struct {
	SourceColumn string  `json:"sourceColumn"`
	TargetKey    string  `json:"targetKey"`
	Confidence   float64 `json:"confidence"`
	Status       Status  `json:"status"`
}

// Target is a column the upload should provide.
type Target struct {
	Key      string
	Label    string
	Required bool
}

// TargetsFor lists a template sheet's columns in schema order.
func TargetsFor(sheet *schema.Sheet) []Target {
	out := make([]Target, len(sheet.Columns))
	for i, c := range sheet.Columns {
		out[i] = Target{Key: c.Key, Label: c.Label, Required: c.Required}
	}
	return out
}

// MappingResult is the proposal for one sheet.
type MappingResult struct {
	Mappings        []ColumnMapping `json:"mappings"`
	UnmappedSource  []string        `json:"unmappedSource"`
	MissingRequired []string        `json:"missingRequired"`
	NeedsUserReview bool            `json:"needsUserReview"`
}

// MappedKeys returns the target keys claimed by matched mappings.
func (r *MappingResult) MappedKeys() map[string]string {
	out := make(map[string]string, len(r.Mappings))
	for _, m := range r.Mappings {
		if m.Status == StatusMatched {
			out[m.TargetKey] = m.SourceColumn
		}
	}
	return out
}

// Policy controls when a generated mapping can be accepted without review.
type Policy struct {
	AutoAcceptThreshold float64
}

// DefaultPolicy requires near-perfect confidence on every match.
var DefaultPolicy = Policy{AutoAcceptThreshold: DefaultAutoAcceptThreshold}

// GenerateMappings proposes mappings with the default policy.
func GenerateMappings(sourceColumns []string, targets []Target) *MappingResult {
	return DefaultPolicy.Generate(sourceColumns, targets)
}

// Generate walks the source columns in order and gives each its best unclaimed
// target. A source whose best target was already claimed by an earlier source is
// left unmapped rather than falling back to its second choice.
func (p Policy) Generate(sourceColumns []string, targets []Target) *MappingResult {
	threshold := p.AutoAcceptThreshold
	if threshold <= 0 {
		threshold = DefaultAutoAcceptThreshold
	}

	candidates := make([]matcher.Candidate, len(targets))
	for i, t := range targets {
		candidates[i] = matcher.Candidate{Key: t.Key, Label: t.Label}
	}

	result := &MappingResult{
		Mappings:        []ColumnMapping{},
		UnmappedSource:  []string{},
		MissingRequired: []string{},
	}
	used := make(map[string]struct{}, len(targets))

	for _, src := range sourceColumns {
		m, ok := matcher.FindBestMatch(src, candidates)
		if _, claimed := used[m.Key]; ok && m.Score >= matcher.MinScore && !claimed {
			result.Mappings = append(result.Mappings, ColumnMapping{
				SourceColumn: src,
				TargetKey:    m.Key,
				Confidence:   m.Score,
				Status:       StatusMatched,
			})
			used[m.Key] = struct{}{}
			continue
		}
		result.UnmappedSource = append(result.UnmappedSource, src)
	}

	for _, t := range targets {
		if _, ok := used[t.Key]; t.Required && !ok {
			result.MissingRequired = append(result.MissingRequired, t.Key)
		}
	}

	result.NeedsUserReview = len(result.UnmappedSource) > 0 || len(result.MissingRequired) > 0
	for _, m := range result.Mappings {
		if m.Confidence < threshold {
			result.NeedsUserReview = true
			break
		}
	}
	return result
}
