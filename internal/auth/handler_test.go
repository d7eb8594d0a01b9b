package auth_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
	authPostgres "github.com/frahmantamala/teamspace/internal/auth/postgres"
	"github.com/frahmantamala/teamspace/internal/testutil"
	"github.com/frahmantamala/teamspace/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

type errorEnvelope struct {
	Error struct {
		Type string `json:"type"`
		Code string `json:"code"`
	} `json:"error"`
}

var _ = Describe("Auth Handler Integration", func() {
	var router *chi.Mux

	BeforeEach(func() {
		db, err := testutil.OpenSQLite()
		Expect(err).NotTo(HaveOccurred())

		slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service := auth.NewService(authPostgres.NewRepository(db), auth.NewCredentialStore(bcrypt.MinCost), 0, slogger)
		handler := auth.NewHandler(transport.NewBaseHandler(slogger), service, "session_id", false)
		rbac := auth.NewRBACAuthorization(auth.NewPermissionChecker(), slogger)

		router = chi.NewRouter()
		router.Post("/auth/signup", handler.Signup)
		router.Post("/auth/login", handler.Login)
		router.Post("/auth/logout", handler.Logout)
		router.Group(func(r chi.Router) {
			r.Use(handler.SessionMiddleware)
			r.Get("/auth/me", handler.Me)
			r.With(rbac.Middleware(auth.CapDepartmentsCreate)).Post("/departments", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
			})
			r.With(rbac.RequireAdmin()).Delete("/members/{userID}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		})
	})

	do := func(method, path, token string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	signup := func(username string) auth.SessionResponse {
		w := do(http.MethodPost, "/auth/signup", "", auth.SignupDTO{
			Name:         username,
			Username:     username,
			Email:        username + "@example.com",
			Password:     "correct-horse",
			Organization: "acme",
		})
		Expect(w.Code).To(Equal(http.StatusCreated))

		var resp auth.SessionResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		return resp
	}

	decodeError := func(w *httptest.ResponseRecorder) errorEnvelope {
		var env errorEnvelope
		Expect(json.NewDecoder(w.Body).Decode(&env)).To(Succeed())
		return env
	}

	It("signs up, sets the session cookie and resolves the identity", func() {
		w := do(http.MethodPost, "/auth/signup", "", auth.SignupDTO{
			Name: "Alice", Username: "alice", Email: "alice@example.com", Password: "correct-horse", Organization: "acme",
		})
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(w.Header().Get("Set-Cookie")).To(ContainSubstring("session_id="))
		Expect(w.Header().Get("Set-Cookie")).To(ContainSubstring("HttpOnly"))

		var sess auth.SessionResponse
		Expect(json.NewDecoder(w.Body).Decode(&sess)).To(Succeed())
		Expect(sess.Role).To(Equal("admin"))

		me := do(http.MethodGet, "/auth/me", sess.Token, nil)
		Expect(me.Code).To(Equal(http.StatusOK))

		var resp auth.MeResponse
		Expect(json.NewDecoder(me.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Organization).To(Equal("acme"))
		Expect(resp.Capabilities).To(ContainElement("departments.create"))
	})

	It("reads the session from the cookie when no header is sent", func() {
		sess := signup("alice")

		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: sess.Token})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("answers unauthorized without a session", func() {
		w := do(http.MethodGet, "/auth/me", "", nil)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		env := decodeError(w)
		Expect(env.Error.Type).To(Equal(string(internal.ErrorTypeUnauthorized)))
		Expect(env.Error.Code).To(Equal(string(internal.ErrCodeNoSession)))
	})

	It("gates admin routes on the member's role", func() {
		signup("alice")
		bob := signup("bob")
		Expect(bob.Role).To(Equal("member"))

		w := do(http.MethodPost, "/departments", bob.Token, nil)
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(decodeError(w).Error.Type).To(Equal(string(internal.ErrorTypeForbidden)))
	})

	It("logs in with the same credentials and logs out", func() {
		signup("alice")

		w := do(http.MethodPost, "/auth/login", "", auth.LoginDTO{Identifier: "alice@example.com", Password: "correct-horse", Organization: "acme"})
		Expect(w.Code).To(Equal(http.StatusOK))
		var sess auth.SessionResponse
		Expect(json.NewDecoder(w.Body).Decode(&sess)).To(Succeed())

		Expect(do(http.MethodPost, "/auth/logout", sess.Token, nil).Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodGet, "/auth/me", sess.Token, nil).Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects a wrong password as unauthorized", func() {
		signup("alice")

		w := do(http.MethodPost, "/auth/login", "", auth.LoginDTO{Identifier: "alice", Password: "nope-nope", Organization: "acme"})
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(decodeError(w).Error.Code).To(Equal(string(internal.ErrCodeWrongPassword)))
	})

	It("rejects a duplicate username as a validation error", func() {
		signup("alice")

		w := do(http.MethodPost, "/auth/signup", "", auth.SignupDTO{
			Name: "Alice", Username: "alice", Email: "alice2@example.com", Password: "correct-horse", Organization: "acme",
		})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(w).Error.Type).To(Equal(string(internal.ErrorTypeValidation)))
	})

	It("gates admin-only routes on the live role", func() {
		admin := signup("alice")
		member := signup("bob")

		w := do(http.MethodDelete, "/members/2", member.Token, nil)
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(decodeError(w).Error.Code).To(Equal(string(internal.ErrCodeForbidden)))

		w = do(http.MethodDelete, "/members/2", admin.Token, nil)
		Expect(w.Code).To(Equal(http.StatusNoContent))
	})
})
