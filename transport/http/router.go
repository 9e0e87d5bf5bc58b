package http

import (
	"net/http"

	"github.com/garvazsof/MVC/ports"
	"github.com/garvazsof/MVC/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig selects optional surfaces of the router
type RouterConfig struct {
	DebugRoutes bool
	Store       ports.Store // health check target, optional
	Logger      *zap.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(sessions *service.SessionService, cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	sessionHandlers := NewSessionHandlers(sessions, logger)
	appHandlers := NewAppHandlers(logger)
	requireSession := AuthMiddleware(sessions)

	router.GET("/healthz", func(c *gin.Context) {
		if cfg.Store != nil {
			if err := cfg.Store.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": sessions.Mounted()})
	})

	router.POST("/session", sessionHandlers.Mount)
	router.DELETE("/session", requireSession, sessionHandlers.Unmount)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/refresh", sessionHandlers.Refresh)
		auth.POST("/login", requireSession, sessionHandlers.Login)
		auth.POST("/logout", requireSession, sessionHandlers.Logout)
	}

	// Page routes
	app := router.Group("/app")
	app.Use(requireSession)
	{
		app.GET("/view", appHandlers.View)
		app.PUT("/mint/uri", appHandlers.SetURI)
		app.POST("/mint", appHandlers.Mint)
	}

	if cfg.DebugRoutes {
		debugHandlers := NewDebugHandlers(logger)
		debug := app.Group("/debug")
		{
			debug.GET("/user", debugHandlers.UserInfo)
			debug.GET("/chain-id", debugHandlers.ChainID)
			debug.GET("/accounts", debugHandlers.Accounts)
			debug.GET("/balance", debugHandlers.Balance)
			debug.GET("/private-key", debugHandlers.PrivateKey)
			debug.POST("/sign", debugHandlers.SignMessage)
			debug.POST("/send", debugHandlers.SendTransaction)
		}
	}

	return router
}
