// Package rest assembles the HTTP surface: the Telegram webhook, the
// periodic trigger endpoints and the admin API. It is glue; everything
// interesting happens in the dispatcher and the roster engine.
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/itamarbiton/klinika-dw-bot/internal/config"
	"github.com/itamarbiton/klinika-dw-bot/internal/rest/handlers"
)

// Handler registers its routes on the router.
type Handler interface {
	EnrichRoutes(router *gin.Engine)
}

// New builds the gin engine with all routes registered.
func New(env string, log *logrus.Entry, hs ...Handler) *gin.Engine {
	if env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for _, h := range hs {
		h.EnrichRoutes(router)
	}
	return router
}

// Ensure the handler types keep satisfying Handler.
var (
	_ Handler = (*handlers.Webhook)(nil)
	_ Handler = (*handlers.Triggers)(nil)
	_ Handler = (*handlers.Tasks)(nil)
)
