package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	session *Session
	tokens  map[string]time.Time
}

// MemoryStore 单进程内存存储
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	opts    Options
	now     func() time.Time
}

func NewMemoryStore(opts Options) *MemoryStore {
	if opts.CSRFTTL <= 0 {
		opts.CSRFTTL = 2 * time.Hour
	}
	if opts.CSRFMax <= 0 {
		opts.CSRFMax = 100
	}
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		opts:    opts,
		now:     time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[s.ID]; ok {
		e.session = s
		return nil
	}
	m.entries[s.ID] = &memoryEntry{session: s, tokens: make(map[string]time.Time)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || m.now().After(e.session.ExpiresAt) {
		return nil, ErrNotFound
	}
	return e.session, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) IssueToken(_ context.Context, id string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return "", ErrNotFound
	}

	now := m.now()
	for t, exp := range e.tokens {
		if now.After(exp) {
			delete(e.tokens, t)
		}
	}
	// 超出上限时丢弃最早过期的令牌
	for len(e.tokens) >= m.opts.CSRFMax {
		var oldest string
		var oldestExp time.Time
		for t, exp := range e.tokens {
			if oldest == "" || exp.Before(oldestExp) {
				oldest, oldestExp = t, exp
			}
		}
		delete(e.tokens, oldest)
	}

	e.tokens[token] = now.Add(m.opts.CSRFTTL)
	return token, nil
}

func (m *MemoryStore) ValidateToken(_ context.Context, id, token string, consume bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return false, ErrNotFound
	}

	exp, ok := e.tokens[token]
	if !ok {
		return false, nil
	}
	if m.now().After(exp) {
		delete(e.tokens, token)
		return false, nil
	}
	if consume {
		delete(e.tokens, token)
	}
	return true, nil
}

// Sweep 删除过期会话,返回删除数量
func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int
	for id, e := range m.entries {
		if now.After(e.session.ExpiresAt) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}
