package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Session  SessionConfig  `yaml:"session"`
	Security SecurityConfig `yaml:"security"`
	Cron     CronConfig     `yaml:"cron"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
	// BasePath 页面里按钮描述符使用的路由前缀
	BasePath string `yaml:"base_path"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// UpstreamConfig 外部语义API的超时设置
type UpstreamConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Timeout        time.Duration `yaml:"timeout"`
}

// ProxyConfig 出站代理,URL为空时直连
type ProxyConfig struct {
	URL      string `yaml:"url"` // host:port 或 http://host:port
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type SessionConfig struct {
	Store     string        `yaml:"store"` // memory, redis
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
	CSRFTTL   time.Duration `yaml:"csrf_ttl"`
	CSRFMax   int           `yaml:"csrf_max"`
}

type SecurityConfig struct {
	SecretKey string `yaml:"secret_key"` // base64, 32字节
	KeyFile   string `yaml:"key_file"`
}

type CronConfig struct {
	ProbeInterval string `yaml:"probe_interval"` // 连接探测间隔
	SweepInterval string `yaml:"sweep_interval"` // 过期会话清理间隔
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "3000",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Path: "data/semantics.db",
		},
		Upstream: UpstreamConfig{
			ConnectTimeout: 10 * time.Second,
			Timeout:        30 * time.Second,
		},
		Session: SessionConfig{
			Store:   "memory",
			TTL:     24 * time.Hour,
			CSRFTTL: 2 * time.Hour,
			CSRFMax: 100,
		},
		Security: SecurityConfig{
			KeyFile: "data/semantics.key",
		},
		Cron: CronConfig{
			ProbeInterval: "*/15 * * * *", // 每15分钟
			SweepInterval: "0 * * * *",    // 每小时
		},
	}
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// 如果配置文件存在,读取配置
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else {
		log.Printf("配置文件不存在: %s, 使用默认配置", configPath)
	}

	// 环境变量覆盖配置
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		cfg.Server.Mode = mode
	}

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if key := os.Getenv("SEMANTICS_SECRET_KEY"); key != "" {
		cfg.Security.SecretKey = key
	}

	if proxy := os.Getenv("SEMANTICS_PROXY_URL"); proxy != "" {
		cfg.Proxy.URL = proxy
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Session.Store = "redis"
		cfg.Session.RedisAddr = addr
	}

	return cfg, nil
}

// GetServerAddress 获取服务器监听地址
func (c *Config) GetServerAddress() string {
	// 如果端口是纯数字,加上冒号前缀
	if _, err := strconv.Atoi(c.Server.Port); err == nil {
		return ":" + c.Server.Port
	}
	return c.Server.Port
}
