// Package service orchestrates dashboard imports: one reconciliation workflow per
// session, file reading, storage of committed datasets and read access to them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/common"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/import/repository"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/import/sniffer"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/mapper"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/reconcile"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/schema"
	"github.com/implementacao-techfala/dashboardfinanceiro/pkg/observability"
)

const (
	defaultSessionTTL     = 30 * time.Minute
	defaultMaxUploadBytes = 10 << 20
	previewRowLimit       = 5
)

var (
	ErrSessionNotFound = fmt.Errorf("import session: %w", common.ErrNotFound)
	ErrFileTooLarge    = fmt.Errorf("%w: file exceeds the upload limit", common.ErrBadRequest)
)

// Options tunes an ImportService. Zero values fall back to defaults.
type Options struct {
	SessionTTL          time.Duration
	MaxUploadBytes      int64
	AutoAcceptThreshold float64
	Now                 func() time.Time
}

// SessionView is a snapshot of an import session.
type SessionView struct {
	SessionID uuid.UUID           `json:"sessionId"`
	PageID    string              `json:"pageId"`
	State     string              `json:"state"`
	FileName  string              `json:"fileName,omitempty"`
	Template  *schema.Template    `json:"template,omitempty"`
	Analysis  *reconcile.Analysis `json:"analysis,omitempty"`
	Review    *reconcile.Review   `json:"review,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// SheetPreview is the mapped content of one sheet before commit.
type SheetPreview struct {
	Name     string        `json:"name"`
	RowCount int           `json:"rowCount"`
	Rows     []dataset.Row `json:"rows"`
}

// Preview summarises what a commit would store.
type Preview struct {
	SessionID uuid.UUID      `json:"sessionId"`
	PageID    string         `json:"pageId"`
	FileName  string         `json:"fileName"`
	Sheets    []SheetPreview `json:"sheets"`
	TotalRows int            `json:"totalRows"`
}

type session struct {
	mu sync.Mutex
	id uuid.UUID
	wf *reconcile.Workflow
	// lastSeen is unix nanoseconds
	lastSeen atomic.Int64
}

func (sess *session) touch(t time.Time) { sess.lastSeen.Store(t.UnixNano()) }

func (sess *session) idleSince(cutoff time.Time) bool {
	return sess.lastSeen.Load() < cutoff.UnixNano()
}

// ImportService owns the in-flight import sessions.
type ImportService struct {
	repo      repository.DatasetRepository
	templates *schema.Registry
	logger    *slog.Logger

	policy         mapper.Policy
	ttl            time.Duration
	maxUploadBytes int64
	now            func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewImportService creates a new import service
func NewImportService(repo repository.DatasetRepository, templates *schema.Registry, logger *slog.Logger, opts Options) *ImportService {
	s := &ImportService{
		repo:           repo,
		templates:      templates,
		logger:         logger,
		policy:         mapper.Policy{AutoAcceptThreshold: opts.AutoAcceptThreshold},
		ttl:            opts.SessionTTL,
		maxUploadBytes: opts.MaxUploadBytes,
		now:            opts.Now,
		sessions:       make(map[uuid.UUID]*session),
	}
	if s.ttl <= 0 {
		s.ttl = defaultSessionTTL
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ListTemplates returns every dashboard template.
func (s *ImportService) ListTemplates() []*schema.Template {
	return s.templates.All()
}

// StartImport opens a session for pageID and presents its template.
func (s *ImportService) StartImport(ctx context.Context, pageID string) (*SessionView, error) {
	tpl, err := s.templates.Template(pageID)
	if err != nil {
		return nil, err
	}

	wf := reconcile.New(tpl, pageID, reconcile.WithPolicy(s.policy), reconcile.WithClock(s.now))
	if err := wf.PresentSchema(); err != nil {
		return nil, err
	}

	sess := &session{id: uuid.New(), wf: wf}
	sess.touch(s.now())
	s.mu.Lock()
	s.sessions[sess.id] = sess
	observability.ImportSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "import session started",
		slog.String("session_id", sess.id.String()),
		slog.String("page_id", pageID))

	view := s.view(sess)
	view.Template = tpl
	return view, nil
}

// UploadFile reads the upload and analyses it against the session's template.
// Unreadable files and structural mismatches cancel the session; the error is returned.
func (s *ImportService) UploadFile(ctx context.Context, id uuid.UUID, fileName string, data []byte) (*SessionView, error) {
	if int64(len(data)) > s.maxUploadBytes {
		return nil, ErrFileTooLarge
	}

	return s.withSession(id, func(sess *session) error {
		wf := sess.wf
		if err := wf.SelectFile(fileName); err != nil {
			return err
		}
		if err := wf.BeginAnalysis(); err != nil {
			return err
		}

		templateID := wf.Template().ID
		wb, err := sniffer.ReadWorkbook(data, fileName)
		if err != nil {
			_ = wf.FailAnalysis(err)
			observability.AnalysesTotal.WithLabelValues(templateID, "parse_error").Inc()
			s.logger.WarnContext(ctx, "failed to read upload",
				slog.String("session_id", id.String()),
				slog.String("file_name", fileName),
				slog.Any("error", err))
			return fmt.Errorf("%w: %w", common.ErrBadRequest, err)
		}

		if err := wf.CompleteAnalysis(wb.Sheets); err != nil {
			observability.AnalysesTotal.WithLabelValues(templateID, "structural_error").Inc()
			s.logger.InfoContext(ctx, "upload rejected",
				slog.String("session_id", id.String()),
				slog.String("file_name", fileName),
				slog.Any("error", err))
			return err
		}

		analysis := wf.Analysis()
		outcome := "direct"
		if analysis.NeedsReview() {
			outcome = "review"
		}
		observability.AnalysesTotal.WithLabelValues(templateID, outcome).Inc()
		for _, sa := range analysis.Sheets {
			if sa.Result == nil {
				continue
			}
			for _, m := range sa.Result.Mappings {
				observability.MatchConfidence.WithLabelValues(templateID).Observe(m.Confidence)
			}
		}

		s.logger.InfoContext(ctx, "upload analysed",
			slog.String("session_id", id.String()),
			slog.String("file_name", fileName),
			slog.String("format", string(wb.Format)),
			slog.String("fingerprint", wb.Fingerprint),
			slog.Int("sheets", len(wb.Sheets)),
			slog.Int("rows", analysis.TotalRows),
			slog.String("outcome", outcome))
		return nil
	})
}

// GetSession returns the current snapshot of a session.
func (s *ImportService) GetSession(_ context.Context, id uuid.UUID) (*SessionView, error) {
	return s.withSession(id, func(*session) error { return nil })
}

// Advance moves past the analysis summary into review or preview.
func (s *ImportService) Advance(_ context.Context, id uuid.UUID) (*SessionView, error) {
	return s.withSession(id, func(sess *session) error { return sess.wf.Next() })
}

// AssignColumn connects source to targetKey on the sheet under review; an empty
// source disconnects it.
func (s *ImportService) AssignColumn(_ context.Context, id uuid.UUID, targetKey, source string) (*SessionView, error) {
	return s.withSession(id, func(sess *session) error { return sess.wf.Assign(targetKey, source) })
}

// ConfirmSheet accepts the mapping of the sheet under review.
func (s *ImportService) ConfirmSheet(_ context.Context, id uuid.UUID) (*SessionView, error) {
	return s.withSession(id, func(sess *session) error { return sess.wf.Confirm() })
}

// Back reverses the last step of the session.
func (s *ImportService) Back(_ context.Context, id uuid.UUID) (*SessionView, error) {
	return s.withSession(id, func(sess *session) error { return sess.wf.Back() })
}

// Cancel abandons the session. Nothing is written to storage.
func (s *ImportService) Cancel(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	view, err := s.withSession(id, func(sess *session) error {
		// sessions cancelled by a rejected upload only need to be dropped
		if sess.wf.State() == reconcile.StateCancelled {
			return nil
		}
		return sess.wf.Cancel()
	})
	if err != nil {
		return nil, err
	}
	s.remove(id)
	s.logger.InfoContext(ctx, "import session cancelled", slog.String("session_id", id.String()))
	return view, nil
}

// Preview shows the first mapped rows of every sheet the commit would store.
func (s *ImportService) Preview(_ context.Context, id uuid.UUID) (*Preview, error) {
	var preview *Preview
	_, err := s.withSession(id, func(sess *session) error {
		ds, err := sess.wf.Build()
		if err != nil {
			return err
		}
		preview = buildPreview(id, sess.wf.Template(), ds)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return preview, nil
}

// Commit stores the session's dataset. A storage failure leaves the session in
// preview so the commit can be retried.
func (s *ImportService) Commit(ctx context.Context, id uuid.UUID) (*repository.DatasetInfo, error) {
	var info *repository.DatasetInfo
	_, err := s.withSession(id, func(sess *session) error {
		templateID := sess.wf.Template().ID
		ds, err := sess.wf.Commit(ctx, s.repo)
		if err != nil {
			if errors.Is(err, reconcile.ErrInvalidTransition) {
				return err
			}
			observability.CommitsTotal.WithLabelValues(templateID, "error").Inc()
			s.logger.ErrorContext(ctx, "failed to commit dataset",
				slog.String("session_id", id.String()),
				slog.String("page_id", sess.wf.PageID()),
				slog.Any("error", err))
			return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
		}

		observability.CommitsTotal.WithLabelValues(templateID, "ok").Inc()
		info = &repository.DatasetInfo{
			PageID:     ds.PageID,
			FileName:   ds.FileName,
			Source:     ds.Source,
			UploadedAt: ds.UploadedAt,
			Sheets:     ds.SheetNames(),
			RowCount:   ds.RowCount(),
		}
		s.logger.InfoContext(ctx, "dataset committed",
			slog.String("session_id", id.String()),
			slog.String("page_id", ds.PageID),
			slog.Int("rows", info.RowCount))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.remove(id)
	return info, nil
}

// GetDataset returns a page's stored dataset.
func (s *ImportService) GetDataset(ctx context.Context, pageID string) (*dataset.Dataset, error) {
	ds, err := s.repo.GetDataset(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnavailable, err)
	}
	if ds == nil {
		return nil, fmt.Errorf("dataset for %s: %w", pageID, common.ErrNotFound)
	}
	return ds, nil
}

// ClearDataset removes a page's stored dataset.
func (s *ImportService) ClearDataset(ctx context.Context, pageID string) error {
	if err := s.repo.DeleteDataset(ctx, pageID); err != nil {
		return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
	}
	s.logger.InfoContext(ctx, "dataset cleared", slog.String("page_id", pageID))
	return nil
}

// ListDatasets returns upload information for every stored page.
func (s *ImportService) ListDatasets(ctx context.Context) ([]*repository.DatasetInfo, error) {
	infos, err := s.repo.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnavailable, err)
	}
	return infos, nil
}

// Run expires idle sessions until ctx is done.
func (s *ImportService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ExpireSessions(); n > 0 {
				s.logger.Info("expired import sessions", slog.Int("count", n))
			}
		}
	}
}

// ExpireSessions drops sessions idle for longer than the TTL and reports how many.
func (s *ImportService) ExpireSessions() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	expired := 0
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			delete(s.sessions, id)
			expired++
		}
	}
	observability.ImportSessions.Set(float64(len(s.sessions)))
	return expired
}

func (s *ImportService) lookup(id uuid.UUID) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.idleSince(s.now().Add(-s.ttl)) {
		delete(s.sessions, id)
		observability.ImportSessions.Set(float64(len(s.sessions)))
		return nil, ErrSessionNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

func (s *ImportService) remove(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	observability.ImportSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()
}

// withSession runs fn with the session locked and returns the resulting snapshot.
// The snapshot is returned alongside fn's error so callers can show the new state.
func (s *ImportService) withSession(id uuid.UUID, fn func(*session) error) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := fn(sess); err != nil {
		return s.view(sess), err
	}
	return s.view(sess), nil
}

func (s *ImportService) view(sess *session) *SessionView {
	wf := sess.wf
	v := &SessionView{
		SessionID: sess.id,
		PageID:    wf.PageID(),
		State:     wf.State().String(),
		FileName:  wf.FileName(),
		Analysis:  wf.Analysis(),
	}
	if wf.State() == reconcile.StateMappingInProgress {
		v.Review, _ = wf.CurrentReview()
	}
	if err := wf.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

// buildPreview lists sheets in template order.
func buildPreview(id uuid.UUID, tpl *schema.Template, ds *dataset.Dataset) *Preview {
	p := &Preview{SessionID: id, PageID: ds.PageID, FileName: ds.FileName}
	for _, name := range tpl.SheetNames() {
		rows, ok := ds.Sheets[name]
		if !ok {
			continue
		}
		shown := rows
		if len(shown) > previewRowLimit {
			shown = shown[:previewRowLimit]
		}
		p.Sheets = append(p.Sheets, SheetPreview{Name: name, RowCount: len(rows), Rows: shown})
		p.TotalRows += len(rows)
	}
	return p
}
