package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"wikit-semantics/internal/handler"
	"wikit-semantics/internal/scheduler"
	"wikit-semantics/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	gin.SetMode(a.cfg.Server.Mode)

	// 补齐权限记录
	if err := a.svc.Profiles.InitProfile(ctx); err != nil {
		return err
	}

	store, closeStore, err := a.sessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	sessions := session.NewManager(store, a.sessionOptions())

	// 启动定时任务
	sched := scheduler.NewScheduler(a.svc.Semantics, store, a.cfg.Cron, a.cfg.Upstream.Timeout)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	// 注册路由
	h := handler.NewHandler(a.svc, sessions, a.cfg.Server.BasePath)
	h.SetScheduler(sched)
	r, err := h.NewRouter()
	if err != nil {
		return err
	}

	// 启动服务
	addr := a.cfg.GetServerAddress()
	log.Printf("Server starting on %s", addr)
	return r.Run(addr)
}
