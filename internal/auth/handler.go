package auth

import (
	"net/http"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/transport"
	"github.com/frahmantamala/teamspace/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service      ServiceAPI
	CookieName   string
	CookieSecure bool
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, cookieName string, cookieSecure bool) *Handler {
	if cookieName == "" {
		cookieName = "session_id"
	}
	return &Handler{
		BaseHandler:  baseHandler,
		Service:      svc,
		CookieName:   cookieName,
		CookieSecure: cookieSecure,
	}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var dto SignupDTO
	if appErr := h.DecodeJSON(w, r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	session, err := h.Service.Signup(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session)
	h.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if appErr := h.DecodeJSON(w, r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	session, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session)
	h.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// Logout always succeeds; the cookie is cleared even when the token was unknown.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractSessionToken(r, h.CookieName)
	if err := h.Service.Logout(r.Context(), token); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}

	h.WriteJSON(w, http.StatusOK, MeResponse{
		UserID:         id.UserID,
		OrganizationID: id.OrganizationID,
		Organization:   id.OrganizationSlug,
		Role:           string(id.Role),
		Capabilities:   Capabilities(id.Role),
	})
}

// SessionMiddleware resolves the session token and stores the identity in the request context.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractSessionToken(r, h.CookieName)

		id, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}

		ctx := internal.ContextWithIdentity(r.Context(), id)
		ctx = logger.With(ctx, "user_id", id.UserID, "organization", id.OrganizationSlug)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func toSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		Token:        s.Token,
		ExpiresAt:    s.ExpiresAt.UTC().Format(time.RFC3339Nano),
		UserID:       s.Identity.UserID,
		Organization: s.Identity.OrganizationSlug,
		Role:         string(s.Identity.Role),
		User:         s.User,
	}
}
