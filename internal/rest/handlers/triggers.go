package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/itamarbiton/klinika-dw-bot/pkg/roster"
)

// Triggers exposes the rotation and reminder passes so an external
// cron can drive them over HTTP instead of the in-process loop.
type Triggers struct {
	engine *roster.Engine
	send   roster.Sender
	log    *logrus.Entry
}

// NewTriggersHandler creates a Triggers handler.
func NewTriggersHandler(engine *roster.Engine, send roster.Sender, log *logrus.Entry) *Triggers {
	return &Triggers{engine: engine, send: send, log: log}
}

// EnrichRoutes registers the trigger routes.
func (h *Triggers) EnrichRoutes(router *gin.Engine) {
	triggers := router.Group("/triggers")
	triggers.POST("/rotate", h.rotateAction)
	triggers.POST("/inform", h.informAction)
}

func (h *Triggers) rotateAction(c *gin.Context) {
	outcomes, err := h.engine.AdvanceAll(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("rotation pass failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
}

func (h *Triggers) informAction(c *gin.Context) {
	outcomes, err := h.engine.NotifyAll(c.Request.Context(), h.send)
	if err != nil {
		h.log.WithError(err).Error("reminder pass failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
}
