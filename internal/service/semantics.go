package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"wikit-semantics/internal/metrics"
)

// ProbeQuery 连接测试时发送的问题
const ProbeQuery = "Hello! This is a connection test from the ticket assistant."

const maxResponseBytes = 4 << 20

type QueryPayload struct {
	Query string `json:"query"`
}

// CallResult 一次缓冲调用的结果,传输失败时HTTPCode为0
type CallResult struct {
	HTTPCode int
	Data     map[string]any
	Error    string
}

type ClientOptions struct {
	ConnectTimeout time.Duration
	Timeout        time.Duration
	ProxyURL       string
	ProxyUser      string
	ProxyPassword  string
}

// NewHTTPClient 创建带连接超时、总超时和可选代理的客户端
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: opts.ConnectTimeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = opts.ConnectTimeout
	transport.Proxy = nil

	if opts.ProxyURL != "" {
		raw := opts.ProxyURL
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		proxy, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		if opts.ProxyUser != "" {
			proxy.User = url.UserPassword(opts.ProxyUser, opts.ProxyPassword)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}, nil
}

// SemanticsService 调用外部语义问答API
type SemanticsService struct {
	config *ConfigService
	client *http.Client

	mu       sync.Mutex
	probedAt time.Time
	probeErr error
}

func NewSemanticsService(config *ConfigService, client *http.Client) *SemanticsService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SemanticsService{
		config: config,
		client: client,
	}
}

// QueryPath 问答端点路径
func QueryPath(appID string) string {
	return "/semantics/apps/" + url.PathEscape(appID) + "/query-executions"
}

// joinURL 去掉基础地址末尾的一个斜杠
func joinURL(base, path string) string {
	if strings.HasSuffix(base, "/") {
		base = base[:len(base)-1]
	}
	return base + path
}

func (s *SemanticsService) newRequest(ctx context.Context, path string, payload *QueryPayload) (*http.Request, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.URLAPI == "" || cfg.AppID == "" {
		return nil, ErrNotConfigured
	}

	if payload == nil || payload.Query == "" {
		payload = &QueryPayload{Query: ProbeQuery}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(cfg.URLAPI, path), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Wikit-Semantics-API-Key", s.config.APIKey(ctx))
	req.Header.Set("X-Wikit-Response-Format", "json")
	req.Header.Set("X-Wikit-Organization-Id", cfg.OrganizationID)
	return req, nil
}

// Call 发送一次缓冲POST,任何失败都转换成CallResult
func (s *SemanticsService) Call(ctx context.Context, path string, payload *QueryPayload) *CallResult {
	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(metrics.ModeBuffered).Observe(time.Since(start).Seconds())
	}()

	req, err := s.newRequest(ctx, path, payload)
	if err != nil {
		log.Printf("[Semantics] build request failed: %v", err)
		metrics.UpstreamRequests.WithLabelValues(metrics.ModeBuffered, "error").Inc()
		return &CallResult{Error: err.Error()}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Semantics] API call failed: %v", err)
		metrics.UpstreamRequests.WithLabelValues(metrics.ModeBuffered, "error").Inc()
		return &CallResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Printf("[Semantics] read response failed: %v", err)
		metrics.UpstreamRequests.WithLabelValues(metrics.ModeBuffered, "error").Inc()
		return &CallResult{Error: err.Error()}
	}

	result := &CallResult{HTTPCode: resp.StatusCode}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err == nil {
		result.Data = data
	}
	metrics.UpstreamRequests.WithLabelValues(metrics.ModeBuffered, fmt.Sprint(resp.StatusCode)).Inc()
	return result
}

// GetAPIAnswer 获取一次性回答
func (s *SemanticsService) GetAPIAnswer(ctx context.Context, query string) (string, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return "", err
	}

	res := s.Call(ctx, QueryPath(cfg.AppID), &QueryPayload{Query: query})
	if res.HTTPCode == 0 {
		return "", fmt.Errorf("%w: %s", ErrUpstreamUnavailable, res.Error)
	}
	if res.HTTPCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, res.HTTPCode)
	}

	answer, ok := res.Data["answer"].(string)
	if !ok {
		return "", ErrMalformedPayload
	}
	return answer, nil
}

// TestConnection 用测试问题检查配置是否可用
func (s *SemanticsService) TestConnection(ctx context.Context) error {
	_, err := s.GetAPIAnswer(ctx, "")

	s.mu.Lock()
	s.probedAt = time.Now()
	s.probeErr = err
	s.mu.Unlock()

	if err != nil {
		log.Printf("[Semantics] connection test failed: %v", err)
	}
	return err
}

// LastProbe 最近一次连接测试的时间和结果
func (s *SemanticsService) LastProbe() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probedAt, s.probeErr
}

// Stream 以流模式调用,每个chunk按到达顺序回调一次
//
// 已经回调的chunk不会撤回;传输错误在这之后返回。
// onChunk返回错误时停止读取并原样返回该错误。
func (s *SemanticsService) Stream(ctx context.Context, query string, onChunk func(string) error) error {
	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(metrics.ModeStream).Observe(time.Since(start).Seconds())
	}()

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return err
	}

	req, err := s.newRequest(ctx, QueryPath(cfg.AppID)+"?is_stream_mode=true", &QueryPayload{Query: query})
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.ModeStream, "error").Inc()
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.ModeStream, "error").Inc()
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequests.WithLabelValues(metrics.ModeStream, fmt.Sprint(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	dec := NewFrameDecoder(onChunk)
	if _, err := io.Copy(dec, resp.Body); err != nil {
		if emitErr := dec.Err(); emitErr != nil {
			return emitErr
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return dec.Close()
}
