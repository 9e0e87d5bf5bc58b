package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/garvazsof/MVC/core"
	"github.com/garvazsof/MVC/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxSession = "session"
	ctxShell   = "shell"
)

// AuthMiddleware creates middleware that resolves the bearer token to its
// mounted shell
func AuthMiddleware(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if len(auth) < 8 || !strings.EqualFold(auth[:7], "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		session, err := sessions.ValidateAccessToken(c.Request.Context(), auth[7:])
		if err != nil {
			switch {
			case errors.Is(err, core.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			case errors.Is(err, core.ErrSessionNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		shell, err := sessions.Lookup(session.ID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
			return
		}

		c.Set(ctxSession, session)
		c.Set(ctxShell, shell)

		c.Next()
	}
}

// LoggerMiddleware logs every request with zap
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}

func sessionFrom(c *gin.Context) *core.Session {
	return c.MustGet(ctxSession).(*core.Session)
}

func shellFrom(c *gin.Context) *service.Shell {
	return c.MustGet(ctxShell).(*service.Shell)
}
