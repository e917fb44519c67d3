package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session 当前登录用户的会话,权限在登录时从profile加载
type Session struct {
	ID        string         `json:"id"`
	UserID    uint           `json:"user_id"`
	UserName  string         `json:"user_name"`
	ProfileID uint           `json:"profile_id"`
	EntityID  uint           `json:"entity_id"`
	Rights    map[string]int `json:"rights"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// HaveRight 检查会话是否拥有权限位
func (s *Session) HaveRight(name string, right int) bool {
	if s == nil {
		return false
	}
	return s.Rights[name]&right == right
}

// Store 会话与CSRF令牌的存储
//
// 令牌是会话级的集合而不是单个值:每个令牌有自己的过期时间,
// 表单提交的令牌用后即废,AJAX头里的令牌在有效期内可以重复使用。
// 这样长连接结束时签发的新令牌不会让同一会话里的其他请求失效。
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	IssueToken(ctx context.Context, id string) (string, error)
	ValidateToken(ctx context.Context, id, token string, consume bool) (bool, error)
	Sweep(ctx context.Context) (int, error)
}

type Options struct {
	TTL     time.Duration
	CSRFTTL time.Duration
	CSRFMax int
}

// Manager 创建会话并签发令牌
type Manager struct {
	store Store
	opts  Options
}

func NewManager(store Store, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Manager{store: store, opts: opts}
}

func (m *Manager) Store() Store {
	return m.store
}

// Start 为用户创建新会话
func (m *Manager) Start(ctx context.Context, userID uint, userName string, profileID, entityID uint, rights map[string]int) (*Session, error) {
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserName:  userName,
		ProfileID: profileID,
		EntityID:  entityID,
		Rights:    rights,
		CreatedAt: now,
		ExpiresAt: now.Add(m.opts.TTL),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
