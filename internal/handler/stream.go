package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"wikit-semantics/internal/metrics"
	"wikit-semantics/internal/service"
	"wikit-semantics/internal/session"
)

// SSE事件名
const (
	eventConnected = "connected"
	eventChunk     = "chunk"
	eventToken     = "csrf_token"
	eventError     = "error"
	eventDone      = "done"
)

// eventWriter 每个事件写完立即flush
type eventWriter struct {
	w gin.ResponseWriter
}

func (e *eventWriter) send(event string, data any) error {
	if err := sse.Encode(e.w, sse.Event{Event: event, Data: data}); err != nil {
		return err
	}
	e.w.Flush()
	return nil
}

// StreamAnswer 流模式,把上游的chunk逐个转发给浏览器
//
// 权限和CSRF由中间件在输出之前检查。连接建立后的每个结局
// (成功、校验失败、上游错误)都以新的CSRF令牌和done事件结束。
func (h *Handler) StreamAnswer(c *gin.Context) {
	ctx := c.Request.Context()
	sess := session.FromContext(c)

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	out := &eventWriter{w: c.Writer}
	if err := out.send(eventConnected, gin.H{"status": "connected"}); err != nil {
		return
	}

	result := h.relay(ctx, c, sess, out)
	metrics.GenerateRequests.WithLabelValues(endpointStream, result).Inc()

	if ctx.Err() != nil {
		log.Printf("[Stream] client went away: %v", ctx.Err())
		return
	}
	h.finish(ctx, sess, out)
}

// relay 执行一次生成,返回结果标签
func (h *Handler) relay(ctx context.Context, c *gin.Context, sess *session.Session, out *eventWriter) string {
	raw, ok := c.GetPostForm("ticketId")
	if !ok || raw == "" {
		out.send(eventError, gin.H{"error": "Missing ticket ID"})
		return "invalid"
	}
	id, err := service.ParseTicketID(raw)
	if err != nil {
		out.send(eventError, gin.H{"error": "Invalid ticket ID"})
		return "invalid"
	}

	query, err := h.answers.Prepare(ctx, sess, id)
	switch {
	case errors.Is(err, service.ErrTicketNotFound), errors.Is(err, service.ErrForbidden):
		out.send(eventError, gin.H{"error": "Ticket not found"})
		return "rejected"
	case errors.Is(err, service.ErrEmptyContent):
		out.send(eventError, gin.H{"error": "Unable to retrieve ticket content"})
		return "failed"
	case err != nil:
		out.send(eventError, gin.H{"error": service.GenericFailureMessage})
		return "failed"
	}

	err = h.answers.Stream(ctx, query, func(chunk string) error {
		if err := out.send(eventChunk, gin.H{"chunk": chunk}); err != nil {
			return err
		}
		metrics.StreamChunks.Inc()
		return nil
	})
	if err != nil {
		log.Printf("[Stream] ticket %d: %v", id, err)
		out.send(eventError, gin.H{"error": service.GenericFailureMessage})
		return "failed"
	}
	return "ok"
}

// finish 签发新令牌,之后的请求不受本次消耗的表单令牌影响
func (h *Handler) finish(ctx context.Context, sess *session.Session, out *eventWriter) {
	token, err := h.sessions.Store().IssueToken(ctx, sess.ID)
	if err != nil {
		log.Printf("[Stream] issue token: %v", err)
	} else {
		out.send(eventToken, gin.H{"token": token})
	}
	out.send(eventDone, gin.H{})
}
