package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"wikit-semantics/internal/model"
	"wikit-semantics/internal/secret"
)

// MaskedAPIKey 表单回显的占位符,原样提交表示不修改
const MaskedAPIKey = "••••••••••••••••"

// ConfigInput 配置表单,nil字段不修改
type ConfigInput struct {
	URLAPI             *string `json:"url_api" form:"url_api" validate:"omitempty,http_url"`
	OrganizationID     *string `json:"organization_id" form:"organization_id" validate:"omitempty,max=255"`
	AppID              *string `json:"app_id" form:"app_id" validate:"omitempty,max=255"`
	APIKey             *string `json:"api_key" form:"api_key"`
	IsStreamingEnabled *bool   `json:"is_streaming_enabled" form:"is_streaming_enabled"`
}

// ConfigService 单行配置的读写,解密只在出站调用前进行
type ConfigService struct {
	db       *gorm.DB
	box      *secret.Box
	validate *validator.Validate

	group  singleflight.Group
	mu     sync.RWMutex
	cached *model.Config
}

func NewConfigService(db *gorm.DB, box *secret.Box) *ConfigService {
	return &ConfigService{
		db:       db,
		box:      box,
		validate: validator.New(),
	}
}

// Get 获取配置,首次访问时加载,之后使用缓存直到下次保存
func (s *ConfigService) Get(ctx context.Context) (*model.Config, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		cp := *cached
		return &cp, nil
	}

	v, err, _ := s.group.Do("config", func() (any, error) {
		return s.Refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*model.Config)
	return &cp, nil
}

// Refresh 从数据库重新加载配置
func (s *ConfigService) Refresh(ctx context.Context) (*model.Config, error) {
	var cfg model.Config
	if err := s.db.WithContext(ctx).FirstOrCreate(&cfg, model.Config{ID: model.ConfigID}).Error; err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	s.mu.Lock()
	s.cached = &cfg
	s.mu.Unlock()

	cp := cfg
	return &cp, nil
}

// Save 保存配置,API密钥加密后入库,并记录修改历史
func (s *ConfigService) Save(ctx context.Context, userID uint, in ConfigInput) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	current, err := s.Refresh(ctx)
	if err != nil {
		return err
	}
	next := *current

	if in.URLAPI != nil {
		next.URLAPI = *in.URLAPI
	}
	if in.OrganizationID != nil {
		next.OrganizationID = *in.OrganizationID
	}
	if in.AppID != nil {
		next.AppID = *in.AppID
	}
	if in.IsStreamingEnabled != nil {
		next.IsStreamingEnabled = *in.IsStreamingEnabled
	}
	if in.APIKey != nil {
		switch key := *in.APIKey; {
		case key == MaskedAPIKey:
			// 未修改
		case key == "" || secret.IsEncrypted(key):
			next.APIKey = key
		default:
			encrypted, err := s.box.Encrypt(key)
			if err != nil {
				return fmt.Errorf("encrypt api key: %w", err)
			}
			next.APIKey = encrypted
		}
	}

	logs := diffConfig(current, &next, userID)
	if len(logs) == 0 {
		return nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		return tx.Create(&logs).Error
	})
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	log.Printf("[Config] updated by user %d: %d field(s)", userID, len(logs))
	_, err = s.Refresh(ctx)
	return err
}

// APIKey 返回解密后的密钥,失败时返回空字符串
func (s *ConfigService) APIKey(ctx context.Context) string {
	cfg, err := s.Get(ctx)
	if err != nil {
		log.Printf("[Config] %v", err)
		return ""
	}
	plain, err := s.box.Decrypt(cfg.APIKey)
	if err != nil {
		log.Printf("[Config] decrypt api key: %v", err)
		return ""
	}
	return plain
}

// History 最近的配置修改记录
func (s *ConfigService) History(ctx context.Context, limit int) ([]model.ConfigLog, error) {
	var logs []model.ConfigLog
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// Masked 返回可以展示给表单的配置副本
func Masked(cfg *model.Config) model.Config {
	cp := *cfg
	if cp.APIKey != "" {
		cp.APIKey = MaskedAPIKey
	}
	return cp
}

func diffConfig(old, next *model.Config, userID uint) []model.ConfigLog {
	var logs []model.ConfigLog
	add := func(field, a, b string) {
		if a != b {
			logs = append(logs, model.ConfigLog{Field: field, OldValue: a, NewValue: b, UserID: userID})
		}
	}
	add("url_api", old.URLAPI, next.URLAPI)
	add("organization_id", old.OrganizationID, next.OrganizationID)
	add("app_id", old.AppID, next.AppID)
	add("is_streaming_enabled", fmt.Sprint(old.IsStreamingEnabled), fmt.Sprint(next.IsStreamingEnabled))
	if old.APIKey != next.APIKey {
		mask := func(v string) string {
			if v == "" {
				return ""
			}
			return MaskedAPIKey
		}
		logs = append(logs, model.ConfigLog{Field: "api_key", OldValue: mask(old.APIKey), NewValue: mask(next.APIKey), UserID: userID})
	}
	return logs
}
