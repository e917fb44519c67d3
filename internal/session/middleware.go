package session

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CookieName = "semantics_session"
	// FormField 表单提交的令牌,用后即废
	FormField = "_csrf_token"
	// HeaderName AJAX请求头里的令牌,不消耗
	HeaderName = "X-CSRF-Token"

	contextKey = "semantics.session"
)

// Middleware 从cookie加载会话,不存在时继续但不设置会话
func Middleware(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err == nil && id != "" {
			s, err := store.Get(c.Request.Context(), id)
			switch {
			case err == nil:
				c.Set(contextKey, s)
			case !errors.Is(err, ErrNotFound):
				log.Printf("[Session] load %s: %v", id, err)
			}
		}
		c.Next()
	}
}

// FromContext 返回当前请求的会话,未登录时为nil
func FromContext(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Session)
	return s
}

// Require 未登录时返回401
func Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if FromContext(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// CSRF 校验会改变状态的请求
func CSRF(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		s := FromContext(c)
		if s == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token"})
			return
		}

		token, consume := c.GetHeader(HeaderName), false
		if token == "" {
			token, consume = c.PostForm(FormField), true
		}

		ok := false
		if token != "" {
			var err error
			ok, err = store.ValidateToken(c.Request.Context(), s.ID, token, consume)
			if err != nil && !errors.Is(err, ErrNotFound) {
				log.Printf("[Session] validate token: %v", err)
			}
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token"})
			return
		}
		c.Next()
	}
}
