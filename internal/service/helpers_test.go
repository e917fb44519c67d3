package service

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wikit-semantics/internal/model"
	"wikit-semantics/internal/secret"
	"wikit-semantics/internal/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))
	return db
}

func newTestBox(t *testing.T) *secret.Box {
	t.Helper()
	box, err := secret.NewBox(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)
	return box
}

// fakeUpstream 记录调用次数的假语义API
type fakeUpstream struct {
	*httptest.Server
	calls   atomic.Int32
	lastReq atomic.Pointer[http.Request]
}

func newFakeUpstream(t *testing.T, handler http.HandlerFunc) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.lastReq.Store(r.Clone(context.Background()))
		handler(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

type testEnv struct {
	db        *gorm.DB
	configs   *ConfigService
	semantics *SemanticsService
	tickets   *TicketService
	answers   *AnswerService
}

func newTestEnv(t *testing.T, upstreamURL string, timeout time.Duration) *testEnv {
	t.Helper()
	db := newTestDB(t)
	configs := NewConfigService(db, newTestBox(t))

	url, org, app, key := upstreamURL+"/", "org-1", "app-9", "plain-key"
	streaming := true
	require.NoError(t, configs.Save(context.Background(), 1, ConfigInput{
		URLAPI: &url, OrganizationID: &org, AppID: &app, APIKey: &key, IsStreamingEnabled: &streaming,
	}))

	client, err := NewHTTPClient(ClientOptions{ConnectTimeout: time.Second, Timeout: timeout})
	require.NoError(t, err)

	semantics := NewSemanticsService(configs, client)
	tickets := NewTicketService(db)
	return &testEnv{
		db:        db,
		configs:   configs,
		semantics: semantics,
		tickets:   tickets,
		answers:   NewAnswerService(tickets, semantics),
	}
}

func (e *testEnv) addTicket(t *testing.T, ticket model.Ticket) *model.Ticket {
	t.Helper()
	require.NoError(t, e.db.Create(&ticket).Error)
	return &ticket
}

func techSession() *session.Session {
	return &session.Session{
		ID:       "s-1",
		UserID:   7,
		EntityID: 1,
		Rights: map[string]int{
			model.RightNameAnswer: model.RightRead,
			model.RightNameTicket: model.RightRead | model.RightReadAll,
		},
	}
}
