package conversation

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/transport"
)

type ServiceAPI interface {
	ListThreads(ctx context.Context, id *internal.Identity) ([]*Thread, error)
	CreateThread(ctx context.Context, id *internal.Identity, dto CreateThreadDTO) (*Thread, error)
	GetThread(ctx context.Context, id *internal.Identity, threadID int64) (*Thread, error)
	CheckThreadAccess(ctx context.Context, id *internal.Identity, threadID int64) (*Thread, error)
	Append(ctx context.Context, id *internal.Identity, threadID int64, dto AppendMessageDTO) (*Message, error)
	Page(ctx context.Context, id *internal.Identity, threadID int64, q PageQuery) (*Page, error)
	MarkRead(ctx context.Context, id *internal.Identity, threadID int64, dto MarkReadDTO) (*ReadMark, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}

	threads, err := h.Service.ListThreads(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ThreadsResponse{Items: threads})
}

func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}

	var dto CreateThreadDTO
	if appErr := h.DecodeJSON(w, r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	t, err := h.Service.CreateThread(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	threadID, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	t, err := h.Service.GetThread(r.Context(), id, threadID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	threadID, ok := h.accessibleThread(w, r, id)
	if !ok {
		return
	}
	q, appErr := parsePageQuery(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	page, err := h.Service.Page(r.Context(), id, threadID, q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	threadID, ok := h.accessibleThread(w, r, id)
	if !ok {
		return
	}

	var dto AppendMessageDTO
	if appErr := h.DecodeJSON(w, r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	msg, err := h.Service.Append(r.Context(), id, threadID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, msg)
}

// MarkRead accepts an empty body, which marks the thread read as of now.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	threadID, ok := h.accessibleThread(w, r, id)
	if !ok {
		return
	}

	var dto MarkReadDTO
	if appErr := h.DecodeOptionalJSON(w, r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	mark, err := h.Service.MarkRead(r.Context(), id, threadID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, mark)
}

// accessibleThread resolves the thread id and the caller's access to it, so a
// forbidden or missing thread is reported before any input is parsed.
func (h *Handler) accessibleThread(w http.ResponseWriter, r *http.Request, id *internal.Identity) (int64, bool) {
	threadID, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return 0, false
	}
	if _, err := h.Service.CheckThreadAccess(r.Context(), id, threadID); err != nil {
		h.HandleServiceError(w, err)
		return 0, false
	}
	return threadID, true
}

func parsePageQuery(r *http.Request) (PageQuery, *internal.AppError) {
	var q PageQuery
	values := r.URL.Query()

	if raw := values.Get("before"); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return q, internal.NewValidationFieldError("before", "before must be an RFC 3339 timestamp", internal.ErrCodeInvalidFormat)
		}
		q.Before = &before
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, internal.NewValidationFieldError("limit", "limit must be an integer", internal.ErrCodeInvalidFormat)
		}
		q.Limit = &limit
	}
	return q, nil
}
