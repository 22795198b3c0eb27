package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/tradeclient/metrics"
	"github.com/layer-3/tradeclient/ports"
	"github.com/layer-3/tradeclient/service"
	"github.com/sirupsen/logrus"
)

// SetupRouter sets up the control surface. Everything except /healthz needs an operator token.
func SetupRouter(state *service.AppState, tokenizer ports.Tokenizer, m *metrics.Metrics, log logrus.FieldLogger) *gin.Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(log.WithField("component", "http")))

	handlers := NewStateHandlers(state)

	router.GET("/healthz", handlers.Health)

	api := router.Group("/")
	api.Use(AuthMiddleware(tokenizer))
	{
		if m != nil {
			api.GET("/metrics", gin.WrapH(m.Handler()))
		}
		api.GET("/state", handlers.State)
		api.POST("/navigate", handlers.Navigate)
		api.POST("/reset", handlers.Reset)
		api.POST("/balances/refresh", handlers.RefreshBalances)
		api.POST("/ticker/refresh", handlers.RefreshTicker)
	}

	session := api.Group("/session")
	{
		session.POST("/login", handlers.Login)
		session.POST("/logout", handlers.Logout)
	}

	return router
}
