package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wikit-semantics/internal/model"
	"wikit-semantics/internal/secret"
	"wikit-semantics/internal/service"
	"wikit-semantics/internal/session"
)

type testServer struct {
	router   *gin.Engine
	h        *Handler
	db       *gorm.DB
	svc      *service.Services
	store    *session.MemoryStore
	sessions *session.Manager
	upstream *httptest.Server
	calls    atomic.Int32
}

type serverOptions struct {
	timeout   time.Duration
	streaming bool
}

func newTestServer(t *testing.T, upstream http.HandlerFunc, opts serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if opts.timeout == 0 {
		opts.timeout = 5 * time.Second
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))

	box, err := secret.NewBox(bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)

	ts := &testServer{db: db}
	ts.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls.Add(1)
		upstream(w, r)
	}))
	t.Cleanup(ts.upstream.Close)

	client, err := service.NewHTTPClient(service.ClientOptions{ConnectTimeout: time.Second, Timeout: opts.timeout})
	require.NoError(t, err)
	ts.svc = service.NewServices(db, box, client)

	base, org, app, key := ts.upstream.URL, "org-1", "app-1", "sk-test"
	require.NoError(t, ts.svc.Configs.Save(context.Background(), 1, service.ConfigInput{
		URLAPI: &base, OrganizationID: &org, AppID: &app, APIKey: &key, IsStreamingEnabled: &opts.streaming,
	}))

	ts.store = session.NewMemoryStore(session.Options{CSRFTTL: time.Hour, CSRFMax: 20})
	ts.sessions = session.NewManager(ts.store, session.Options{TTL: time.Hour})

	ts.h = NewHandler(ts.svc, ts.sessions, "")
	ts.router, err = ts.h.NewRouter()
	require.NoError(t, err)
	return ts
}

// techRights 可以使用回答功能并查看本实体全部工单
func techRights() map[string]int {
	return map[string]int{
		model.RightNameAnswer: model.RightRead,
		model.RightNameTicket: model.RightRead | model.RightReadAll,
	}
}

func adminRights() map[string]int {
	rights := techRights()
	rights[model.RightNameConfig] = model.RightRead | model.RightUpdate
	return rights
}

func (ts *testServer) login(t *testing.T, rights map[string]int) *session.Session {
	t.Helper()
	s, err := ts.sessions.Start(context.Background(), 7, "tech", 3, 1, rights)
	require.NoError(t, err)
	return s
}

func (ts *testServer) token(t *testing.T, s *session.Session) string {
	t.Helper()
	token, err := ts.store.IssueToken(context.Background(), s.ID)
	require.NoError(t, err)
	return token
}

func (ts *testServer) addTicket(t *testing.T, ticket model.Ticket) *model.Ticket {
	t.Helper()
	require.NoError(t, ts.db.Create(&ticket).Error)
	return &ticket
}

// postForm 表单令牌随表单提交;header为true时放在请求头里
func (ts *testServer) postForm(t *testing.T, path string, s *session.Session, form url.Values, header bool) *httptest.ResponseRecorder {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	var token string
	if s != nil {
		token = ts.token(t, s)
		if !header {
			form.Set(session.FormField, token)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s != nil {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.ID})
		if header {
			req.Header.Set(session.HeaderName, token)
		}
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) get(t *testing.T, path string, s *session.Session) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if s != nil {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.ID})
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// answerUpstream 缓冲模式的假上游
func answerUpstream(answer string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"answer": answer})
	}
}

type sseEvent struct {
	Name string
	Data string
}

func parseEvents(body string) []sseEvent {
	var events []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event:"):
				ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				ev.Data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			}
		}
		events = append(events, ev)
	}
	return events
}

func eventNames(events []sseEvent) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Name
	}
	return names
}

// postRaw 带会话但不带CSRF令牌
func (ts *testServer) postRaw(t *testing.T, path string, s *session.Session, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.ID})
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}
