package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tally/internal/domain"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxIdentity  = "identity"
	ctxToken     = "session_token"
)

// requestID propagates or mints a correlation identifier.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(ctxRequestID, reqID)
		c.Writer.Header().Set(requestIDHeader, reqID)
		c.Next()
	}
}

// accessLog emits one entry per request.
func accessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString(ctxRequestID),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
			"client_ip":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Error("request failed")
			return
		}
		entry.Info("request completed")
	}
}

// loadSession resolves the session cookie into an identity on the context.
// Lookup failures leave the request anonymous.
func (h *Handler) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(h.sessions.CookieName())
		if err != nil || token == "" {
			c.Next()
			return
		}
		c.Set(ctxToken, token)

		identity, ok, err := h.sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			h.log(c).WithError(err).Warn("resolve session")
		}
		if ok {
			c.Set(ctxIdentity, identity)
		}
		c.Next()
	}
}

// requireLogin redirects anonymous requests to the landing page.
func requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentIdentity(c); !ok {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

func (h *Handler) log(c *gin.Context) *logrus.Entry {
	return h.logger.WithField("request_id", c.GetString(ctxRequestID))
}
