package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"wikit-semantics/config"
	"wikit-semantics/internal/model"
	"wikit-semantics/internal/secret"
	"wikit-semantics/internal/service"
	"wikit-semantics/internal/session"
)

// app 各个命令共用的依赖
type app struct {
	cfg *config.Config
	db  *gorm.DB
	svc *service.Services
}

// openApp 加载配置,打开数据库并初始化服务
func openApp(path string) (*app, error) {
	// .env 可选
	_ = godotenv.Load()

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// 自动迁移
	if err := model.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	box, err := secret.Open(cfg.Security.SecretKey, cfg.Security.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("open secret key: %w", err)
	}

	client, err := service.NewHTTPClient(service.ClientOptions{
		ConnectTimeout: cfg.Upstream.ConnectTimeout,
		Timeout:        cfg.Upstream.Timeout,
		ProxyURL:       cfg.Proxy.URL,
		ProxyUser:      cfg.Proxy.User,
		ProxyPassword:  cfg.Proxy.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	return &app{
		cfg: cfg,
		db:  db,
		svc: service.NewServices(db, box, client),
	}, nil
}

// sessionStore 按配置选择内存或Redis存储
func (a *app) sessionStore(ctx context.Context) (session.Store, func(), error) {
	opts := a.sessionOptions()
	switch a.cfg.Session.Store {
	case "", "memory":
		return session.NewMemoryStore(opts), func() {}, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: a.cfg.Session.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", a.cfg.Session.RedisAddr, err)
		}
		log.Printf("[Session] Using redis at %s", a.cfg.Session.RedisAddr)
		return session.NewRedisStore(rdb, opts), func() { rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", a.cfg.Session.Store)
	}
}

func (a *app) sessionOptions() session.Options {
	return session.Options{
		TTL:     a.cfg.Session.TTL,
		CSRFTTL: a.cfg.Session.CSRFTTL,
		CSRFMax: a.cfg.Session.CSRFMax,
	}
}
