package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"wikit-semantics/internal/model"
	"wikit-semantics/internal/service"
	"wikit-semantics/internal/session"
)

// ===== Config相关 =====

func (h *Handler) ConfigPage(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := h.configs.Get(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	history, err := h.configs.History(ctx, 20)
	if err != nil {
		log.Printf("[Config] history: %v", err)
	}

	c.HTML(http.StatusOK, "config.html", gin.H{
		"Config":    service.Masked(cfg),
		"History":   history,
		"CanUpdate": session.FromContext(c).HaveRight(model.RightNameConfig, model.RightUpdate),
		"CSRFToken": h.issueToken(c),
		"BasePath":  h.basePath,
	})
}

func (h *Handler) GetConfig(c *gin.Context) {
	cfg, err := h.configs.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, service.Masked(cfg))
}

func (h *Handler) SaveConfig(c *gin.Context) {
	var input service.ConfigInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := session.FromContext(c)
	if err := h.configs.Save(c.Request.Context(), sess.UserID, input); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "saved"})
}

func (h *Handler) TestConnection(c *gin.Context) {
	if err := h.semantics.TestConnection(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   service.GenericFailureMessage,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Connection successful",
	})
}

func (h *Handler) ConfigHistory(c *gin.Context) {
	logs, err := h.configs.History(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}
