package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"wikit-semantics/config"
	"wikit-semantics/internal/session"
)

// Prober 定时测试语义API的连通性
type Prober interface {
	TestConnection(ctx context.Context) error
}

type Scheduler struct {
	cron         *cron.Cron
	prober       Prober
	sessions     session.Store
	config       config.CronConfig
	timeout      time.Duration
	probeEntryID cron.EntryID
	sweepEntryID cron.EntryID
}

func NewScheduler(prober Prober, sessions session.Store, cfg config.CronConfig, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		prober:   prober,
		sessions: sessions,
		config:   cfg,
		timeout:  timeout,
	}
}

func (s *Scheduler) Start() error {
	var err error

	// 连接探测任务
	if s.probeEntryID, err = s.cron.AddFunc(s.config.ProbeInterval, s.Probe); err != nil {
		return err
	}

	// 过期会话清理任务
	if s.sweepEntryID, err = s.cron.AddFunc(s.config.SweepInterval, s.Sweep); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("[Cron] Scheduler started (probe: %s, sweep: %s)", s.config.ProbeInterval, s.config.SweepInterval)
	return nil
}

// Probe 测试一次连接,结果记录在SemanticsService里
func (s *Scheduler) Probe() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.prober.TestConnection(ctx); err != nil {
		log.Printf("[Cron] Probe failed: %v", err)
		return
	}
	log.Println("[Cron] Probe ok")
}

// Sweep 清理过期会话
func (s *Scheduler) Sweep() {
	n, err := s.sessions.Sweep(context.Background())
	if err != nil {
		log.Printf("[Cron] Sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[Cron] Swept %d expired session(s)", n)
	}
}

// GetNextProbeTime 获取下次探测时间
func (s *Scheduler) GetNextProbeTime() time.Time {
	entry := s.cron.Entry(s.probeEntryID)
	return entry.Next
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
