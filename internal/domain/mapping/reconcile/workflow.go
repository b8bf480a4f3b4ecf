// Package reconcile drives one import from template selection to commit: structural
// validation, automatic mapping, the per-sheet human review and the final hand-off
// of mapped rows to storage. Every transition is an explicit method on Workflow.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/computed"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/mapper"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/schema"
)

// State is a step of the import workflow.
type State int

const (
	StateIdle State = iota
	StateSchemaPresented
	StateFileSelected
	StateAnalyzing
	StateReviewRequired
	StateDirectToPreview
	StateMappingInProgress
	StatePreview
	StateCommitted
	StateCancelled
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateSchemaPresented:   "schema_presented",
	StateFileSelected:      "file_selected",
	StateAnalyzing:         "analyzing",
	StateReviewRequired:    "review_required",
	StateDirectToPreview:   "direct_to_preview",
	StateMappingInProgress: "mapping_in_progress",
	StatePreview:           "preview",
	StateCommitted:         "committed",
	StateCancelled:         "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateCancelled
}

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNoFile            = errors.New("no file selected")
	ErrUnknownTarget     = errors.New("unknown target column")
	ErrUnknownSource     = errors.New("unknown source column")
	ErrSourceInUse       = errors.New("source column already assigned to another target")
	ErrIncompleteMapping = errors.New("every target column must be connected before confirming")
)

// Sink receives the committed dataset.
type Sink interface {
	SaveDataset(ctx context.Context, ds *dataset.Dataset) error
}

// Option customises a Workflow.
type Option func(*Workflow)

// WithPolicy sets the mapping policy used during analysis.
func WithPolicy(p mapper.Policy) Option {
	return func(w *Workflow) { w.policy = p }
}

// WithClock overrides the time source stamped on committed datasets.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// Workflow is the state of a single import. It is not safe for concurrent use.
type Workflow struct {
	tpl    *schema.Template
	pageID string
	policy mapper.Policy
	now    func() time.Time

	state    State
	fileName string
	sheets   []dataset.Sheet
	analysis *Analysis
	failure  error

	// queue holds indices into analysis.Sheets that need review, in upload order.
	queue  []int
	cursor int
	// drafts holds target key -> source column per reviewed sheet index.
	drafts    map[int]map[string]string
	confirmed map[int][]mapper.ColumnMapping
}

// New starts an idle workflow importing into pageID with template tpl.
func New(tpl *schema.Template, pageID string, opts ...Option) *Workflow {
	w := &Workflow{
		tpl:    tpl,
		pageID: pageID,
		policy: mapper.DefaultPolicy,
		now:    time.Now,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) State() State               { return w.state }
func (w *Workflow) Template() *schema.Template { return w.tpl }
func (w *Workflow) PageID() string             { return w.pageID }
func (w *Workflow) FileName() string           { return w.fileName }

// Analysis returns the current analysis, nil before analysis completes.
func (w *Workflow) Analysis() *Analysis { return w.analysis }

// Err returns the failure that cancelled the workflow during analysis, if any.
func (w *Workflow) Err() error { return w.failure }

// ReviewPosition returns the index of the sheet under review and how many sheets need review.
func (w *Workflow) ReviewPosition() (int, int) { return w.cursor, len(w.queue) }

func (w *Workflow) transitionError(action string) error {
	return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, w.state)
}

// PresentSchema shows the template to the user.
func (w *Workflow) PresentSchema() error {
	if w.state != StateIdle {
		return w.transitionError("present schema")
	}
	w.state = StateSchemaPresented
	return nil
}

// SelectFile records the chosen upload. Selecting again replaces the previous choice.
func (w *Workflow) SelectFile(name string) error {
	if w.state != StateSchemaPresented && w.state != StateFileSelected {
		return w.transitionError("select file")
	}
	if name == "" {
		return ErrNoFile
	}
	w.fileName = name
	w.state = StateFileSelected
	return nil
}

// BeginAnalysis marks the file as being read.
func (w *Workflow) BeginAnalysis() error {
	if w.state != StateFileSelected {
		return w.transitionError("begin analysis")
	}
	w.state = StateAnalyzing
	return nil
}

// FailAnalysis aborts the import after the file could not be read.
func (w *Workflow) FailAnalysis(err error) error {
	if w.state != StateAnalyzing {
		return w.transitionError("fail analysis")
	}
	w.cancel(err)
	return nil
}

// CompleteAnalysis maps the parsed sheets. Structural mismatches cancel the workflow
// and are returned; otherwise the workflow moves to ReviewRequired or DirectToPreview.
func (w *Workflow) CompleteAnalysis(sheets []dataset.Sheet) error {
	if w.state != StateAnalyzing {
		return w.transitionError("complete analysis")
	}

	analysis, err := Analyze(w.tpl, w.fileName, sheets, w.policy)
	if err != nil {
		w.cancel(err)
		return err
	}

	w.sheets = sheets
	w.analysis = analysis
	w.queue = w.queue[:0]
	w.cursor = 0
	w.drafts = make(map[int]map[string]string)
	w.confirmed = make(map[int][]mapper.ColumnMapping)

	for i, sa := range analysis.Sheets {
		if !sa.Matched() || !sa.NeedsReview {
			continue
		}
		w.queue = append(w.queue, i)
		w.drafts[i] = sa.Result.MappedKeys()
	}

	if len(w.queue) > 0 {
		w.state = StateReviewRequired
	} else {
		w.state = StateDirectToPreview
	}
	return nil
}

// Next advances from ReviewRequired into the first sheet review, or from
// DirectToPreview into the preview.
func (w *Workflow) Next() error {
	switch w.state {
	case StateReviewRequired:
		w.cursor = 0
		w.state = StateMappingInProgress
	case StateDirectToPreview:
		w.state = StatePreview
	default:
		return w.transitionError("advance")
	}
	return nil
}

// Assign connects source to targetKey on the sheet under review. An empty source
// disconnects the target.
func (w *Workflow) Assign(targetKey, source string) error {
	if w.state != StateMappingInProgress {
		return w.transitionError("assign column")
	}
	idx := w.queue[w.cursor]
	ts := w.templateSheet(idx)
	if _, ok := ts.Column(targetKey); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, targetKey)
	}

	draft := w.drafts[idx]
	if source == "" {
		delete(draft, targetKey)
		return nil
	}
	if !slices.Contains(w.analysis.Sheets[idx].Columns, source) {
		return fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	for key, used := range draft {
		if used == source && key != targetKey {
			return fmt.Errorf("%w: %s is connected to %s", ErrSourceInUse, source, key)
		}
	}
	draft[targetKey] = source
	return nil
}

// Unassign disconnects targetKey on the sheet under review.
func (w *Workflow) Unassign(targetKey string) error {
	return w.Assign(targetKey, "")
}

// AvailableSources lists the source columns targetKey may be connected to: its
// current selection plus every column not used by another target, in upload order.
func (w *Workflow) AvailableSources(targetKey string) ([]string, error) {
	if w.state != StateMappingInProgress {
		return nil, w.transitionError("list sources")
	}
	idx := w.queue[w.cursor]
	draft := w.drafts[idx]

	usedElsewhere := make(map[string]bool, len(draft))
	for key, src := range draft {
		if key != targetKey {
			usedElsewhere[src] = true
		}
	}

	var out []string
	for _, col := range w.analysis.Sheets[idx].Columns {
		if !usedElsewhere[col] {
			out = append(out, col)
		}
	}
	return out, nil
}

// CanConfirm reports whether every target of the sheet under review is connected.
func (w *Workflow) CanConfirm() bool {
	if w.state != StateMappingInProgress {
		return false
	}
	idx := w.queue[w.cursor]
	draft := w.drafts[idx]
	for _, c := range w.templateSheet(idx).Columns {
		if draft[c.Key] == "" {
			return false
		}
	}
	return true
}

// Confirm accepts the sheet under review and moves to the next one, or to the
// preview after the last.
func (w *Workflow) Confirm() error {
	if w.state != StateMappingInProgress {
		return w.transitionError("confirm mapping")
	}
	if !w.CanConfirm() {
		return ErrIncompleteMapping
	}

	idx := w.queue[w.cursor]
	draft := w.drafts[idx]
	ts := w.templateSheet(idx)
	mappings := make([]mapper.ColumnMapping, 0, len(ts.Columns))
	for _, c := range ts.Columns {
		mappings = append(mappings, mapper.ColumnMapping{
			SourceColumn: draft[c.Key],
			TargetKey:    c.Key,
			Confidence:   1,
			Status:       mapper.StatusMatched,
		})
	}
	w.confirmed[idx] = mappings

	if w.cursor+1 < len(w.queue) {
		w.cursor++
		return nil
	}
	w.state = StatePreview
	return nil
}

// Back reverses the most recent forward step.
func (w *Workflow) Back() error {
	switch w.state {
	case StateSchemaPresented:
		w.state = StateIdle
	case StateFileSelected:
		w.fileName = ""
		w.state = StateSchemaPresented
	case StateAnalyzing:
		w.state = StateFileSelected
	case StateReviewRequired, StateDirectToPreview:
		w.resetAnalysis()
		w.state = StateFileSelected
	case StateMappingInProgress:
		if w.cursor == 0 {
			w.state = StateReviewRequired
			return nil
		}
		w.cursor--
		delete(w.confirmed, w.queue[w.cursor])
	case StatePreview:
		if len(w.queue) == 0 {
			w.state = StateDirectToPreview
			return nil
		}
		w.cursor = len(w.queue) - 1
		delete(w.confirmed, w.queue[w.cursor])
		w.state = StateMappingInProgress
	default:
		return w.transitionError("go back")
	}
	return nil
}

// Cancel discards everything. Storage is never touched before Commit.
func (w *Workflow) Cancel() error {
	if w.state.Terminal() {
		return w.transitionError("cancel")
	}
	w.cancel(nil)
	return nil
}

// FinalMappings returns the mapping used for each matched template sheet: the
// confirmed one for reviewed sheets, the suggestion for the rest.
func (w *Workflow) FinalMappings() (map[string][]mapper.ColumnMapping, error) {
	if w.state != StatePreview && w.state != StateCommitted {
		return nil, w.transitionError("collect mappings")
	}
	out := make(map[string][]mapper.ColumnMapping)
	for i, sa := range w.analysis.Sheets {
		if !sa.Matched() {
			continue
		}
		if m, ok := w.confirmed[i]; ok {
			out[sa.TemplateSheet] = m
			continue
		}
		out[sa.TemplateSheet] = sa.Result.Mappings
	}
	return out, nil
}

// Build produces the dataset the commit would store: every matched sheet's rows
// projected through its final mapping with computed fields applied, keyed by
// template sheet name.
func (w *Workflow) Build() (*dataset.Dataset, error) {
	mappings, err := w.FinalMappings()
	if err != nil {
		return nil, err
	}

	ds := &dataset.Dataset{
		PageID:     w.pageID,
		Sheets:     make(map[string][]dataset.Row, len(mappings)),
		FileName:   w.fileName,
		Source:     dataset.SourceFile,
		UploadedAt: w.now().UTC(),
	}
	for i, sa := range w.analysis.Sheets {
		if !sa.Matched() {
			continue
		}
		rows := mapper.ApplyMappings(w.sheets[i].Rows, mappings[sa.TemplateSheet])
		ds.Sheets[sa.TemplateSheet] = computed.ApplyComputedFields(rows, w.tpl.ID)
	}
	return ds, nil
}

// Commit builds the dataset and hands it to sink. When the sink fails the workflow
// stays in Preview so the commit can be retried without redoing the review.
func (w *Workflow) Commit(ctx context.Context, sink Sink) (*dataset.Dataset, error) {
	if w.state != StatePreview {
		return nil, w.transitionError("commit")
	}
	ds, err := w.Build()
	if err != nil {
		return nil, err
	}
	if err := sink.SaveDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to save dataset: %w", err)
	}
	w.state = StateCommitted
	return ds, nil
}

func (w *Workflow) templateSheet(idx int) *schema.Sheet {
	ts, _ := w.tpl.Sheet(w.analysis.Sheets[idx].TemplateSheet)
	return ts
}

func (w *Workflow) resetAnalysis() {
	w.sheets = nil
	w.analysis = nil
	w.queue = nil
	w.cursor = 0
	w.drafts = nil
	w.confirmed = nil
}

func (w *Workflow) cancel(cause error) {
	w.resetAnalysis()
	w.failure = cause
	w.state = StateCancelled
}
