package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/frahmantamala/teamspace/cmd"
	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/core/events"
	"github.com/frahmantamala/teamspace/internal/fanout"
	"github.com/frahmantamala/teamspace/internal/testutil"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
)

func TestTeamspace(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Teamspace Suite")
}

type client struct {
	server *httptest.Server
	token  string
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	}
	return c.send(method, path, reader)
}

// doRaw sends body as is, for requests that must not be valid JSON.
func (c *client) doRaw(method, path, body string) (int, map[string]interface{}) {
	return c.send(method, path, strings.NewReader(body))
}

func (c *client) send(method, path string, reader io.Reader) (int, map[string]interface{}) {
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var out map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	if len(raw) > 0 {
		Expect(json.Unmarshal(raw, &out)).To(Succeed(), string(raw))
	}
	return resp.StatusCode, out
}

func (c *client) as(token string) *client {
	return &client{server: c.server, token: token}
}

func id(v interface{}) string {
	return strconv.FormatInt(int64(v.(float64)), 10)
}

func errorCode(body map[string]interface{}) interface{} {
	return body["error"].(map[string]interface{})["code"]
}

var _ = Describe("Teamspace API", func() {
	var (
		api      *client
		deps     *cmd.Dependencies
		notifier *fanout.Notifier
	)

	BeforeEach(func() {
		db, err := testutil.OpenSQLite()
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())

		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		cfg := internal.LoadConfigFromEnv()
		cfg.Server.OpenAPIPath = ""
		cfg.Security.BCryptCost = 10
		cfg.Security.CookieSecure = false
		cfg.Observability.Metrics.Enabled = true
		cfg.Observability.Metrics.Path = "/metrics"

		notifier = fanout.NewNotifier(nil, fanout.Options{}, nil, lg)
		bus := events.NewEventBus(lg)
		fanout.Subscribe(bus, notifier)

		deps = &cmd.Dependencies{
			Config:    cfg,
			DB:        db,
			ProfileDB: sqlx.NewDb(sqlDB, "sqlite3"),
			HealthDB:  sqlx.NewDb(sqlDB, "sqlite3"),
			Bus:       bus,
			Notifier:  notifier,
			Registry:  prometheus.NewRegistry(),
			Logger:    lg,
		}
		router, err := cmd.NewRouter(context.Background(), deps)
		Expect(err).NotTo(HaveOccurred())

		server := httptest.NewServer(router)
		DeferCleanup(server.Close)
		DeferCleanup(notifier.Shutdown)
		api = &client{server: server}
	})

	signup := func(username, org string) string {
		status, body := api.do(http.MethodPost, "/api/v1/auth/signup", map[string]string{
			"name":         username,
			"username":     username,
			"email":        username + "@example.com",
			"password":     "correct-horse",
			"organization": org,
		})
		Expect(status).To(Equal(http.StatusCreated), "%v", body)
		return body["token"].(string)
	}

	It("runs a conversation from signup to read mark", func() {
		admin := api.as(signup("ada", "acme"))
		memberToken := signup("fadhil", "acme")
		member := api.as(memberToken)
		outsider := api.as(signup("rina", "acme"))

		status, me := member.do(http.MethodGet, "/api/v1/auth/me", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(me["role"]).To(Equal("member"))
		memberID := me["user_id"]

		status, dept := admin.do(http.MethodPost, "/api/v1/departments", map[string]string{"name": "Finance"})
		Expect(status).To(Equal(http.StatusCreated), "%v", dept)
		deptPath := "/api/v1/departments/" + id(dept["id"])

		status, _ = admin.do(http.MethodPost, deptPath+"/members", map[string]interface{}{"user_id": memberID})
		Expect(status).To(Equal(http.StatusNoContent))

		status, body := member.do(http.MethodPost, "/api/v1/threads", map[string]interface{}{"title": "Quarter close", "department_id": dept["id"]})
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(errorCode(body)).To(Equal("FORBIDDEN"))

		status, thread := admin.do(http.MethodPost, "/api/v1/threads", map[string]interface{}{"title": "Quarter close", "department_id": dept["id"]})
		Expect(status).To(Equal(http.StatusCreated), "%v", thread)
		threadPath := "/api/v1/threads/" + id(thread["id"])

		for _, text := range []string{"one", "two", "three"} {
			status, body = member.do(http.MethodPost, threadPath+"/messages", map[string]interface{}{
				"kind": "text",
				"body": map[string]string{"text": text},
			})
			Expect(status).To(Equal(http.StatusCreated), "%v", body)
			time.Sleep(time.Millisecond)
		}

		status, page := member.do(http.MethodGet, threadPath+"/messages?limit=2", nil)
		Expect(status).To(Equal(http.StatusOK))
		messages := page["messages"].([]interface{})
		Expect(messages).To(HaveLen(2))
		Expect(messages[0].(map[string]interface{})["body"]).To(HaveKeyWithValue("text", "two"))
		Expect(messages[1].(map[string]interface{})["body"]).To(HaveKeyWithValue("text", "three"))

		status, older := member.do(http.MethodGet, threadPath+"/messages?limit=2&before="+url.QueryEscape(page["next_cursor"].(string)), nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(older["messages"]).To(HaveLen(1))

		status, body = member.do(http.MethodGet, threadPath+"/messages?limit=500", nil)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(errorCode(body)).To(Equal("VALIDATION_FAILED"))

		status, body = member.do(http.MethodGet, threadPath+"/messages?before=yesterday", nil)
		Expect(status).To(Equal(http.StatusBadRequest))

		status, mark := member.do(http.MethodPut, threadPath+"/read", map[string]string{"last_seen_at": "2025-03-01T10:00:00Z"})
		Expect(status).To(Equal(http.StatusOK), "%v", mark)

		status, got := member.do(http.MethodGet, threadPath, nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(got["last_seen_at"]).To(Equal("2025-03-01T10:00:00Z"))

		status, list := member.do(http.MethodGet, "/api/v1/threads", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(list["items"]).To(HaveLen(1))

		status, list = outsider.do(http.MethodGet, "/api/v1/threads", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(list["items"]).To(BeEmpty())

		status, body = outsider.do(http.MethodGet, threadPath+"/messages", nil)
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(errorCode(body)).To(Equal("FORBIDDEN"))
	})

	It("reports access failures before malformed input", func() {
		admin := api.as(signup("ada", "acme"))
		outsider := api.as(signup("rina", "acme"))

		status, dept := admin.do(http.MethodPost, "/api/v1/departments", map[string]string{"name": "Finance"})
		Expect(status).To(Equal(http.StatusCreated), "%v", dept)
		_, thread := admin.do(http.MethodPost, "/api/v1/threads", map[string]interface{}{"title": "Quarter close", "department_id": dept["id"]})
		threadPath := "/api/v1/threads/" + id(thread["id"])

		status, body := outsider.do(http.MethodGet, threadPath+"/messages?before=yesterday", nil)
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(errorCode(body)).To(Equal("FORBIDDEN"))

		status, body = outsider.doRaw(http.MethodPost, threadPath+"/messages", "{not json")
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(errorCode(body)).To(Equal("FORBIDDEN"))

		status, body = outsider.doRaw(http.MethodPut, threadPath+"/read", "{not json")
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(errorCode(body)).To(Equal("FORBIDDEN"))

		status, body = outsider.do(http.MethodGet, "/api/v1/threads/99999/messages?limit=abc", nil)
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(errorCode(body)).To(Equal("THREAD_NOT_FOUND"))

		status, body = admin.doRaw(http.MethodPost, "/api/v1/threads/99999/messages", "{not json")
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(errorCode(body)).To(Equal("THREAD_NOT_FOUND"))

		status, body = admin.do(http.MethodGet, threadPath+"/messages?limit=abc", nil)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(errorCode(body)).To(Equal("VALIDATION_FAILED"))
	})

	It("keeps organizations apart", func() {
		acme := api.as(signup("ada", "acme"))
		globex := api.as(signup("gus", "globex"))

		_, thread := acme.do(http.MethodPost, "/api/v1/threads", map[string]string{"title": "Board"})
		Expect(thread["id"]).NotTo(BeNil())

		status, body := globex.do(http.MethodGet, "/api/v1/threads/"+id(thread["id"]), nil)
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(errorCode(body)).To(Equal("THREAD_NOT_FOUND"))
	})

	It("answers unknown routes and missing sessions with the error envelope", func() {
		status, body := api.do(http.MethodGet, "/api/v1/nowhere", nil)
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(errorCode(body)).To(Equal("ROUTE_NOT_FOUND"))

		status, body = api.do(http.MethodGet, "/api/v1/threads", nil)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(errorCode(body)).To(Equal("NO_SESSION"))
	})

	It("updates the caller's profile", func() {
		member := api.as(signup("fadhil", "acme"))

		status, profile := member.do(http.MethodPatch, "/api/v1/users/me", map[string]string{"nickname": "dhil", "display_name_pref": "nickname"})
		Expect(status).To(Equal(http.StatusOK), "%v", profile)
		Expect(profile["display_name"]).To(Equal("dhil"))
	})

	It("refuses to build a router without its own profile store", func() {
		withoutProfile := *deps
		withoutProfile.ProfileDB = nil

		_, err := cmd.NewRouter(context.Background(), &withoutProfile)
		Expect(err).To(HaveOccurred())
	})

	It("reports health and exposes metrics", func() {
		status, body := api.do(http.MethodGet, "/api/v1/health", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body["status"]).To(Equal("healthy"))

		resp, err := api.server.Client().Get(api.server.URL + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(raw)).To(ContainSubstring("http_requests_total"))
	})
})
