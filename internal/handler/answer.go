package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"html"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wikit-semantics/internal/metrics"
	"wikit-semantics/internal/model"
	"wikit-semantics/internal/service"
	"wikit-semantics/internal/session"
)

const (
	endpointBuffered = "buffered"
	endpointStream   = "stream"
)

// ButtonDescriptor 页面上按钮占位元素携带的配置
type ButtonDescriptor struct {
	TicketID          uint
	ItemType          model.ItemType
	ContainerSelector string
	StreamingEnabled  bool
	AjaxURL           string
	AjaxStreamURL     string
	Labels            Labels
}

// answerPayload 添加到工单的内容,base64后放在按钮的data属性里
type answerPayload struct {
	Content string `json:"content"`
}

func (h *Handler) descriptor(ticketID uint, itemType model.ItemType, streaming bool) ButtonDescriptor {
	return ButtonDescriptor{
		TicketID:          ticketID,
		ItemType:          itemType,
		ContainerSelector: itemType.ContainerSelector(),
		StreamingEnabled:  streaming,
		AjaxURL:           h.url("/ajax/generateanswer"),
		AjaxStreamURL:     h.url("/ajax/generateanswer/stream"),
		Labels:            defaultLabels,
	}
}

// Button 返回按钮占位元素,供宿主系统在渲染子表单时插入
func (h *Handler) Button(c *gin.Context) {
	id, err := service.ParseTicketID(c.Query("ticketId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket ID"})
		return
	}
	itemType, err := model.ParseItemType(c.Query("itemType"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item type"})
		return
	}

	cfg, err := h.configs.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.HTML(http.StatusOK, "button.html", h.descriptor(id, itemType, cfg.IsStreamingEnabled))
}

// resolveItemType answer和close两个动作必须指向同一种子表单
func resolveItemType(answerAction, closeAction string) (model.ItemType, error) {
	if answerAction == "" && closeAction == "" {
		return "", model.ErrUnknownItemType
	}
	var resolved model.ItemType
	for _, raw := range []string{answerAction, closeAction} {
		if raw == "" {
			continue
		}
		t, err := model.ParseItemType(raw)
		if err != nil {
			return "", err
		}
		if resolved != "" && resolved != t {
			return "", model.ErrUnknownItemType
		}
		resolved = t
	}
	return resolved, nil
}

// answerHTML 转义后把换行变成<br>
func answerHTML(answer string) string {
	escaped := html.EscapeString(strings.ReplaceAll(answer, "\r\n", "\n"))
	return strings.ReplaceAll(escaped, "\n", "<br>\n")
}

func encodePayload(content string) (string, error) {
	data, err := json.Marshal(answerPayload{Content: content})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// GenerateAnswer 缓冲模式,返回可直接放进弹窗的HTML片段
func (h *Handler) GenerateAnswer(c *gin.Context) {
	ctx := c.Request.Context()
	sess := session.FromContext(c)

	id, err := service.ParseTicketID(c.PostForm("ticketId"))
	if err != nil {
		metrics.GenerateRequests.WithLabelValues(endpointBuffered, "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket ID"})
		return
	}
	itemType, err := resolveItemType(c.PostForm("answer"), c.PostForm("close"))
	if err != nil {
		metrics.GenerateRequests.WithLabelValues(endpointBuffered, "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
		return
	}

	answer, err := h.answers.Generate(ctx, sess, id)
	switch {
	case errors.Is(err, service.ErrInvalidTicketID),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrTicketNotFound):
		metrics.GenerateRequests.WithLabelValues(endpointBuffered, "rejected").Inc()
		h.ticketError(c, err)
		return
	case err != nil:
		log.Printf("[Answer] ticket %d: %v", id, err)
		metrics.GenerateRequests.WithLabelValues(endpointBuffered, "failed").Inc()
		c.HTML(http.StatusOK, "answer.html", gin.H{"Labels": defaultLabels})
		return
	}

	content := answerHTML(answer)
	payload, err := encodePayload(content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	metrics.GenerateRequests.WithLabelValues(endpointBuffered, "ok").Inc()
	c.HTML(http.StatusOK, "answer.html", gin.H{
		"Answer":   template.HTML(content),
		"Payload":  payload,
		"ItemType": itemType,
		"Labels":   defaultLabels,
	})
}
