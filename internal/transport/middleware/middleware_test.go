package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var _ = Describe("RecoveryMiddleware", func() {
	It("answers a panic with the server_error envelope", func() {
		h := RecoveryMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("nil map")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/threads", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
		Expect(rec.Body.String()).To(MatchJSON(`{"error":{"type":"server_error","code":"INTERNAL_ERROR","message":"internal server error"}}`))
	})
})

var _ = Describe("RequestID", func() {
	var h http.Handler

	BeforeEach(func() {
		h = RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
	})

	It("echoes the caller's trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceHeader, "trace-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		Expect(rec.Header().Get(TraceHeader)).To(Equal("trace-123"))
	})

	It("mints one when absent", func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(rec.Header().Get(TraceHeader)).To(HaveLen(36))
	})
})

var _ = Describe("LoggingMiddleware", func() {
	It("redacts credentials in nested bodies", func() {
		out := redactBody([]byte(`{"login":"ada","password":"hunter2","nested":{"session_token":"abc","items":[{"secret":"x","ok":1}]}}`))
		Expect(out).To(MatchJSON(`{"login":"ada","password":"[FILTERED]","nested":{"session_token":"[FILTERED]","items":[{"secret":"[FILTERED]","ok":1}]}}`))
		Expect(redactBody([]byte("plain text"))).To(Equal("[NON-JSON]"))
	})

	It("redacts credential headers", func() {
		headers := http.Header{}
		headers.Set("Authorization", "Bearer abc")
		headers.Set("Cookie", "session_id=abc")
		headers.Set("Accept", "application/json")

		out := redactHeaders(headers)
		Expect(out).To(HaveKeyWithValue("Authorization", "[FILTERED]"))
		Expect(out).To(HaveKeyWithValue("Cookie", "[FILTERED]"))
		Expect(out).To(HaveKeyWithValue("Accept", "application/json"))
	})

	It("leaves the body readable for the next handler", func() {
		var seen map[string]string
		h := LoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(json.NewDecoder(r.Body).Decode(&seen)).To(Succeed())
			w.WriteHeader(http.StatusCreated)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"login":"ada","password":"hunter2"}`)))

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(seen).To(HaveKeyWithValue("password", "hunter2"))
	})
})

var _ = Describe("HTTPMetrics", func() {
	It("labels requests by route pattern", func() {
		reg := prometheus.NewRegistry()
		m := NewHTTPMetrics(reg)

		router := chi.NewRouter()
		router.Use(m.Middleware)
		router.Get("/threads/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		for _, path := range []string{"/threads/1", "/threads/2", "/missing"} {
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		}

		Expect(promtestutil.ToFloat64(m.requests.WithLabelValues("GET", "/threads/{id}", "200"))).To(Equal(2.0))
		Expect(promtestutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404"))).To(Equal(1.0))
	})
})
