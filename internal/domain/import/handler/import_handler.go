// Package handler implements the ImportService Connect RPC handlers.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/common"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/import/repository"
	importservice "github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/import/service"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/reconcile"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/mapping/schema"
	"github.com/implementacao-techfala/dashboardfinanceiro/pkg/connectjson"
)

// ImportServiceName is the fully-qualified name of the import service.
const ImportServiceName = "dashboard.v1.ImportService"

const (
	ListTemplatesProcedure = "/" + ImportServiceName + "/ListTemplates"
	StartImportProcedure   = "/" + ImportServiceName + "/StartImport"
	UploadFileProcedure    = "/" + ImportServiceName + "/UploadFile"
	GetSessionProcedure    = "/" + ImportServiceName + "/GetSession"
	AdvanceProcedure       = "/" + ImportServiceName + "/Advance"
	AssignColumnProcedure  = "/" + ImportServiceName + "/AssignColumn"
	ConfirmSheetProcedure  = "/" + ImportServiceName + "/ConfirmSheet"
	BackProcedure          = "/" + ImportServiceName + "/Back"
	PreviewProcedure       = "/" + ImportServiceName + "/Preview"
	CommitProcedure        = "/" + ImportServiceName + "/Commit"
	CancelProcedure        = "/" + ImportServiceName + "/Cancel"
	GetDatasetProcedure    = "/" + ImportServiceName + "/GetDataset"
	ClearDatasetProcedure  = "/" + ImportServiceName + "/ClearDataset"
	ListDatasetsProcedure  = "/" + ImportServiceName + "/ListDatasets"
)

type ListTemplatesRequest struct{}

type ListTemplatesResponse struct {
	Templates []*schema.Template `json:"templates"`
}

type StartImportRequest struct {
	PageID string `json:"pageId"`
}

type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

type UploadFileRequest struct {
	SessionID string `json:"sessionId"`
	FileName  string `json:"fileName"`
	// Content is base64 in JSON.
	Content []byte `json:"content"`
}

type AssignColumnRequest struct {
	SessionID    string `json:"sessionId"`
	TargetKey    string `json:"targetKey"`
	SourceColumn string `json:"sourceColumn"`
}

type PageRequest struct {
	PageID string `json:"pageId"`
}

type ClearDatasetResponse struct{}

type ListDatasetsRequest struct{}

type ListDatasetsResponse struct {
	Datasets []*repository.DatasetInfo `json:"datasets"`
}

// ImportHandler implements the ImportService Connect handlers.
type ImportHandler struct {
	importSvc *importservice.ImportService
	logger    *slog.Logger
}

// NewImportHandler constructs a new handler.
func NewImportHandler(importSvc *importservice.ImportService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{importSvc: importSvc, logger: logger}
}

// NewImportServiceHandler builds an HTTP handler serving every ImportService
// procedure and returns the path prefix to mount it on.
func NewImportServiceHandler(h *ImportHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connectjson.WithCodec()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ListTemplatesProcedure, connect.NewUnaryHandler(ListTemplatesProcedure, h.ListTemplates, opts...))
	mux.Handle(StartImportProcedure, connect.NewUnaryHandler(StartImportProcedure, h.StartImport, opts...))
	mux.Handle(UploadFileProcedure, connect.NewUnaryHandler(UploadFileProcedure, h.UploadFile, opts...))
	mux.Handle(GetSessionProcedure, connect.NewUnaryHandler(GetSessionProcedure, h.GetSession, opts...))
	mux.Handle(AdvanceProcedure, connect.NewUnaryHandler(AdvanceProcedure, h.Advance, opts...))
	mux.Handle(AssignColumnProcedure, connect.NewUnaryHandler(AssignColumnProcedure, h.AssignColumn, opts...))
	mux.Handle(ConfirmSheetProcedure, connect.NewUnaryHandler(ConfirmSheetProcedure, h.ConfirmSheet, opts...))
	mux.Handle(BackProcedure, connect.NewUnaryHandler(BackProcedure, h.Back, opts...))
	mux.Handle(PreviewProcedure, connect.NewUnaryHandler(PreviewProcedure, h.Preview, opts...))
	mux.Handle(CommitProcedure, connect.NewUnaryHandler(CommitProcedure, h.Commit, opts...))
	mux.Handle(CancelProcedure, connect.NewUnaryHandler(CancelProcedure, h.Cancel, opts...))
	mux.Handle(GetDatasetProcedure, connect.NewUnaryHandler(GetDatasetProcedure, h.GetDataset, opts...))
	mux.Handle(ClearDatasetProcedure, connect.NewUnaryHandler(ClearDatasetProcedure, h.ClearDataset, opts...))
	mux.Handle(ListDatasetsProcedure, connect.NewUnaryHandler(ListDatasetsProcedure, h.ListDatasets, opts...))
	return "/" + ImportServiceName + "/", mux
}

func (h *ImportHandler) ListTemplates(
	_ context.Context,
	_ *connect.Request[ListTemplatesRequest],
) (*connect.Response[ListTemplatesResponse], error) {
	return connect.NewResponse(&ListTemplatesResponse{Templates: h.importSvc.ListTemplates()}), nil
}

func (h *ImportHandler) StartImport(
	ctx context.Context,
	req *connect.Request[StartImportRequest],
) (*connect.Response[importservice.SessionView], error) {
	if req.Msg.PageID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("pageId is required"))
	}
	view, err := h.importSvc.StartImport(ctx, req.Msg.PageID)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}
	return connect.NewResponse(view), nil
}

func (h *ImportHandler) UploadFile(
	ctx context.Context,
	req *connect.Request[UploadFileRequest],
) (*connect.Response[importservice.SessionView], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	if req.Msg.FileName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("fileName is required"))
	}
	if len(req.Msg.Content) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("content is required"))
	}

	view, err := h.importSvc.UploadFile(ctx, id, req.Msg.FileName, req.Msg.Content)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}
	return connect.NewResponse(view), nil
}

func (h *ImportHandler) GetSession(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[importservice.SessionView], error) {
	return h.sessionCall(ctx, req.Msg.SessionID, h.importSvc.GetSession)
}

func (h *ImportHandler) Advance(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[importservice.SessionView], error) {
	return h.sessionCall(ctx, req.Msg.SessionID, h.importSvc.Advance)
}

func (h *ImportHandler) AssignColumn(
	ctx context.Context,
	req *connect.Request[AssignColumnRequest],
) (*connect.Response[importservice.SessionView], error) {
	if req.Msg.TargetKey == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("targetKey is required"))
	}
	return h.sessionCall(ctx, req.Msg.SessionID, func(ctx context.Context, id uuid.UUID) (*importservice.SessionView, error) {
		return h.importSvc.AssignColumn(ctx, id, req.Msg.TargetKey, req.Msg.SourceColumn)
	})
}

func (h *ImportHandler) ConfirmSheet(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[importservice.SessionView], error) {
	return h.sessionCall(ctx, req.Msg.SessionID, h.importSvc.ConfirmSheet)
}

func (h *ImportHandler) Back(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[importservice.SessionView], error) {
	return h.sessionCall(ctx, req.Msg.SessionID, h.importSvc.Back)
}

func (h *ImportHandler) Cancel(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[importservice.SessionView], error) {
	return h.sessionCall(ctx, req.Msg.SessionID, h.importSvc.Cancel)
}

func (h *ImportHandler) Preview(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[importservice.Preview], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	preview, err := h.importSvc.Preview(ctx, id)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}
	return connect.NewResponse(preview), nil
}

func (h *ImportHandler) Commit(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[repository.DatasetInfo], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	info, err := h.importSvc.Commit(ctx, id)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}
	return connect.NewResponse(info), nil
}

func (h *ImportHandler) GetDataset(
	ctx context.Context,
	req *connect.Request[PageRequest],
) (*connect.Response[dataset.Dataset], error) {
	if req.Msg.PageID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("pageId is required"))
	}
	ds, err := h.importSvc.GetDataset(ctx, req.Msg.PageID)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}
	return connect.NewResponse(ds), nil
}

func (h *ImportHandler) ClearDataset(
	ctx context.Context,
	req *connect.Request[PageRequest],
) (*connect.Response[ClearDatasetResponse], error) {
	if req.Msg.PageID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("pageId is required"))
	}
	if err := h.importSvc.ClearDataset(ctx, req.Msg.PageID); err != nil {
		return nil, h.toConnectError(ctx, err)
	}
	return connect.NewResponse(&ClearDatasetResponse{}), nil
}

func (h *ImportHandler) ListDatasets(
	ctx context.Context,
	_ *connect.Request[ListDatasetsRequest],
) (*connect.Response[ListDatasetsResponse], error) {
	infos, err := h.importSvc.ListDatasets(ctx)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}
	return connect.NewResponse(&ListDatasetsResponse{Datasets: infos}), nil
}

func (h *ImportHandler) sessionCall(
	ctx context.Context,
	rawID string,
	call func(context.Context, uuid.UUID) (*importservice.SessionView, error),
) (*connect.Response[importservice.SessionView], error) {
	id, err := parseSessionID(rawID)
	if err != nil {
		return nil, err
	}
	view, err := call(ctx, id)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}
	return connect.NewResponse(view), nil
}

func parseSessionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid sessionId"))
	}
	return id, nil
}

// toConnectError maps domain errors onto Connect codes.
func (h *ImportHandler) toConnectError(ctx context.Context, err error) error {
	var structural *reconcile.StructuralError
	switch {
	case errors.As(err, &structural),
		errors.Is(err, common.ErrBadRequest),
		errors.Is(err, reconcile.ErrNoFile),
		errors.Is(err, reconcile.ErrUnknownTarget),
		errors.Is(err, reconcile.ErrUnknownSource),
		errors.Is(err, reconcile.ErrSourceInUse):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, schema.ErrTemplateNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, reconcile.ErrInvalidTransition),
		errors.Is(err, reconcile.ErrIncompleteMapping):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, common.ErrUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		h.logger.ErrorContext(ctx, "unexpected import error", slog.Any("error", err))
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}
