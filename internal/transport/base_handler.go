package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/pkg/logger"
	"github.com/go-chi/chi"
)

const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteAppError writes the tagged error envelope.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	if status >= http.StatusInternalServerError {
		h.Logger.Error("http error", "status", status, "code", appErr.Code, "error", appErr.Error())
	} else {
		h.Logger.Debug("http error", "status", status, "code", appErr.Code, "message", appErr.GetDetailedMessage())
	}
	h.WriteJSON(w, status, body)
}

// HandleServiceError maps any service error onto the tagged envelope; unknown errors become server_error.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	h.WriteAppError(w, internal.AsAppError(err))
}

// DecodeJSON reads a JSON body, rejecting unknown fields and oversized payloads.
func (h *BaseHandler) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) *internal.AppError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return internal.NewValidationError("request body is required", internal.ErrCodeInvalidBody)
		}
		return internal.NewValidationError("invalid request body: "+err.Error(), internal.ErrCodeInvalidBody)
	}
	return nil
}

// DecodeOptionalJSON is DecodeJSON for endpoints where an empty body is valid.
func (h *BaseHandler) DecodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) *internal.AppError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return internal.NewValidationError("invalid request body: "+err.Error(), internal.ErrCodeInvalidBody)
	}
	return nil
}

// ParseIDParam reads a positive int64 chi URL parameter.
func (h *BaseHandler) ParseIDParam(r *http.Request, name string) (int64, *internal.AppError) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.NewValidationFieldError(name, "invalid "+name, internal.ErrCodeInvalidID)
	}
	return id, nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

// ExtractSessionToken prefers the Authorization header and falls back to the session cookie.
func (h *BaseHandler) ExtractSessionToken(r *http.Request, cookieName string) string {
	if token := h.ExtractTokenFromHeader(r); token != "" {
		return token
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// Identity returns the authenticated caller or writes unauthorized.
func (h *BaseHandler) Identity(w http.ResponseWriter, r *http.Request) (*internal.Identity, bool) {
	id, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrNoSession)
		return nil, false
	}
	return id, true
}
