package service

import (
	"context"
	"time"
)

type StatusService struct {
	configs   *ConfigService
	tickets   *TicketService
	semantics *SemanticsService
}

type SystemStatus struct {
	// 配置
	Configured       bool `json:"configured"`
	StreamingEnabled bool `json:"streaming_enabled"`

	// 工单统计
	TotalTickets int64 `json:"total_tickets"`

	// 最近一次连接测试
	LastProbeAt    *time.Time `json:"last_probe_at,omitempty"`
	LastProbeOK    bool       `json:"last_probe_ok"`
	LastProbeError string     `json:"last_probe_error,omitempty"`

	// 定时任务信息
	NextProbeTime time.Time `json:"next_probe_time"`
}

func NewStatusService(configs *ConfigService, tickets *TicketService, semantics *SemanticsService) *StatusService {
	return &StatusService{configs: configs, tickets: tickets, semantics: semantics}
}

// GetSystemStatus 获取系统状态
func (s *StatusService) GetSystemStatus(ctx context.Context) (*SystemStatus, error) {
	status := &SystemStatus{}

	cfg, err := s.configs.Get(ctx)
	if err != nil {
		return nil, err
	}
	status.Configured = cfg.URLAPI != "" && cfg.AppID != "" && cfg.APIKey != ""
	status.StreamingEnabled = cfg.IsStreamingEnabled

	if status.TotalTickets, err = s.tickets.Count(ctx); err != nil {
		return nil, err
	}

	if at, probeErr := s.semantics.LastProbe(); !at.IsZero() {
		status.LastProbeAt = &at
		status.LastProbeOK = probeErr == nil
		if probeErr != nil {
			status.LastProbeError = GenericFailureMessage
		}
	}

	return status, nil
}
