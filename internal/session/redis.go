package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore 多实例部署时共享会话
type RedisStore struct {
	rdb  *redis.Client
	opts Options
}

func NewRedisStore(rdb *redis.Client, opts Options) *RedisStore {
	if opts.CSRFTTL <= 0 {
		opts.CSRFTTL = 2 * time.Hour
	}
	if opts.CSRFMax <= 0 {
		opts.CSRFMax = 100
	}
	return &RedisStore{rdb: rdb, opts: opts}
}

func sessionKey(id string) string { return "semantics:session:" + id }
func tokenKey(id string) string   { return "semantics:csrf:" + id }

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	return r.rdb.Set(ctx, sessionKey(s.ID), data, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKey(id), tokenKey(id)).Err()
}

// IssueToken 令牌存放在有序集合里,score为过期时间
func (r *RedisStore) IssueToken(ctx context.Context, id string) (string, error) {
	ttl, err := r.rdb.TTL(ctx, sessionKey(id)).Result()
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", ErrNotFound
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	key := tokenKey(id)
	pipe := r.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Unix(), 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.Add(r.opts.CSRFTTL).Unix()), Member: token})
	// 只保留最新的 CSRFMax 个
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-r.opts.CSRFMax-1))
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

func (r *RedisStore) ValidateToken(ctx context.Context, id, token string, consume bool) (bool, error) {
	score, err := r.rdb.ZScore(ctx, tokenKey(id), token).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if time.Now().Unix() > int64(score) {
		return false, nil
	}
	if !consume {
		return true, nil
	}

	// ZREM 返回1才算本次请求拿到了令牌
	removed, err := r.rdb.ZRem(ctx, tokenKey(id), token).Result()
	if err != nil {
		return false, err
	}
	return removed == 1, nil
}

// Sweep 过期由redis的TTL处理
func (r *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}
