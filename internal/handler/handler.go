package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"wikit-semantics/internal/metrics"
	"wikit-semantics/internal/model"
	"wikit-semantics/internal/service"
	"wikit-semantics/internal/session"
	"wikit-semantics/web"
)

// Labels 界面文案
type Labels struct {
	Button        string
	Add           string
	Close         string
	Error         string
	EditorMissing string
}

var defaultLabels = Labels{
	Button:        "Suggest an answer with AI",
	Add:           "Add to ticket",
	Close:         "Close",
	Error:         service.GenericFailureMessage,
	EditorMissing: "The ticket editor could not be found on this page.",
}

const modalTitle = "Wikit Semantics Application Response"

type Handler struct {
	configs   *service.ConfigService
	semantics *service.SemanticsService
	tickets   *service.TicketService
	answers   *service.AnswerService
	profiles  *service.ProfileService
	status    *service.StatusService
	sessions  *session.Manager
	basePath  string
	scheduler interface {
		GetNextProbeTime() time.Time
	}
}

func NewHandler(svc *service.Services, sessions *session.Manager, basePath string) *Handler {
	return &Handler{
		configs:   svc.Configs,
		semantics: svc.Semantics,
		tickets:   svc.Tickets,
		answers:   svc.Answers,
		profiles:  svc.Profiles,
		status:    svc.Status,
		sessions:  sessions,
		basePath:  strings.TrimRight(basePath, "/"),
	}
}

// SetScheduler 设置调度器引用
func (h *Handler) SetScheduler(scheduler interface {
	GetNextProbeTime() time.Time
}) {
	h.scheduler = scheduler
}

// NewRouter 创建带模板和中间件的gin引擎
func (h *Handler) NewRouter() (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.SetHTMLTemplate(tmpl)
	h.RegisterRoutes(r)
	return r, nil
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	store := h.sessions.Store()
	r.Use(session.Middleware(store))

	r.StaticFS("/static", http.FS(web.Static()))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 开发模式下的登录入口,生产环境由宿主系统负责认证
	if gin.Mode() != gin.ReleaseMode {
		r.GET("/login", h.LoginPage)
		r.POST("/login", h.Login)
	}

	auth := r.Group("/", session.Require(), session.CSRF(store))
	{
		auth.GET("/", h.IndexPage)
		auth.POST("/logout", h.Logout)
		auth.GET("/tickets/:id", h.TicketPage)
		auth.GET("/config", requireRight(model.RightNameConfig, model.RightRead), h.ConfigPage)
	}

	// 回答生成
	ajax := auth.Group("/ajax", requireRight(model.RightNameAnswer, model.RightRead))
	{
		ajax.GET("/button", h.Button)
		ajax.POST("/generateanswer", h.GenerateAnswer)
		ajax.POST("/generateanswer/stream", h.StreamAnswer)
	}

	api := auth.Group("/api")
	{
		api.GET("/status", h.GetStatus)

		api.GET("/config", requireRight(model.RightNameConfig, model.RightRead), h.GetConfig)
		api.POST("/config", requireRight(model.RightNameConfig, model.RightUpdate), h.SaveConfig)
		api.POST("/config/test", requireRight(model.RightNameConfig, model.RightUpdate), h.TestConnection)
		api.GET("/config/history", requireRight(model.RightNameConfig, model.RightRead), h.ConfigHistory)
	}
}

// requireRight 缺少权限时在输出任何内容之前返回403
func requireRight(name string, right int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !session.FromContext(c).HaveRight(name, right) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient rights"})
			return
		}
		c.Next()
	}
}

func (h *Handler) url(path string) string {
	return h.basePath + path
}

// issueToken 为页面签发CSRF令牌
func (h *Handler) issueToken(c *gin.Context) string {
	sess := session.FromContext(c)
	if sess == nil {
		return ""
	}
	token, err := h.sessions.Store().IssueToken(c.Request.Context(), sess.ID)
	if err != nil {
		log.Printf("[Session] issue token: %v", err)
		return ""
	}
	return token
}

// ===== 页面 =====

func (h *Handler) IndexPage(c *gin.Context) {
	sess := session.FromContext(c)
	if sess.HaveRight(model.RightNameConfig, model.RightRead) {
		c.Redirect(http.StatusFound, h.url("/config"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": sess.UserName})
}

func (h *Handler) TicketPage(c *gin.Context) {
	ctx := c.Request.Context()
	sess := session.FromContext(c)

	id, err := service.ParseTicketID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket ID"})
		return
	}
	ticket, err := h.tickets.Find(ctx, id)
	if err == nil && !h.tickets.CanView(sess, ticket) {
		err = service.ErrForbidden
	}
	if err != nil {
		h.ticketError(c, err)
		return
	}

	cfg, err := h.configs.Get(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	forms := make([]gin.H, 0, len(model.ItemTypes))
	var buttons []ButtonDescriptor
	for _, t := range model.ItemTypes {
		forms = append(forms, gin.H{"ItemType": t})
		if sess.HaveRight(model.RightNameAnswer, model.RightRead) {
			buttons = append(buttons, h.descriptor(ticket.ID, t, cfg.IsStreamingEnabled))
		}
	}

	c.HTML(http.StatusOK, "ticket.html", gin.H{
		"Ticket":    ticket,
		"Content":   service.DecodeContent(ticket.Content),
		"Forms":     forms,
		"Buttons":   buttons,
		"CSRFToken": h.issueToken(c),
		"BasePath":  h.basePath,
		"Modal":     gin.H{"Title": modalTitle},
	})
}

func (h *Handler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"BasePath": h.basePath,
		"Redirect": c.Query("redirect"),
	})
}

// Login 按登录名建立会话,权限从用户的profile加载
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	name := strings.TrimSpace(c.PostForm("name"))

	user, err := h.profiles.FindUser(ctx, name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user == nil {
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{"BasePath": h.basePath, "Error": "Unknown user"})
		return
	}

	rights, err := h.profiles.Rights(ctx, user.ProfileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.sessions.Start(ctx, user.ID, user.Name, user.ProfileID, user.EntityID, rights)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, sess.ID, int(time.Until(sess.ExpiresAt).Seconds()), "/", "", false, true)

	redirect := c.PostForm("redirect")
	if redirect == "" || !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") {
		redirect = h.url("/")
	}
	c.Redirect(http.StatusFound, redirect)
}

func (h *Handler) Logout(c *gin.Context) {
	sess := session.FromContext(c)
	if err := h.sessions.Store().Delete(c.Request.Context(), sess.ID); err != nil {
		log.Printf("[Session] delete %s: %v", sess.ID, err)
	}
	c.SetCookie(session.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// ===== Status相关 =====

func (h *Handler) GetStatus(c *gin.Context) {
	status, err := h.status.GetSystemStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 添加定时任务信息
	if h.scheduler != nil {
		status.NextProbeTime = h.scheduler.GetNextProbeTime()
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) ticketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidTicketID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket ID"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, service.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
	default:
		log.Printf("[Ticket] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
