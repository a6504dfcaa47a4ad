package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/itamarbiton/klinika-dw-bot/internal/bot"
	"github.com/itamarbiton/klinika-dw-bot/pkg/roster"
)

// Webhook receives Telegram updates, runs them through the dispatcher
// and sends the reply back over the bot client.
type Webhook struct {
	dispatcher *bot.Dispatcher
	send       roster.Sender
	log        *logrus.Entry
}

// NewWebhookHandler creates a Webhook handler.
func NewWebhookHandler(dispatcher *bot.Dispatcher, send roster.Sender, log *logrus.Entry) *Webhook {
	return &Webhook{dispatcher: dispatcher, send: send, log: log}
}

// EnrichRoutes registers the webhook route.
func (h *Webhook) EnrichRoutes(router *gin.Engine) {
	router.POST("/webhook", h.updateAction)
}

// updateAction always answers 200 to Telegram; a retried update would
// only replay the same command.
func (h *Webhook) updateAction(c *gin.Context) {
	var update bot.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.log.WithError(err).Warn("ignoring malformed update")
		c.Status(http.StatusOK)
		return
	}

	cmd, ok := bot.ParseCommand(&update)
	if !ok {
		c.Status(http.StatusOK)
		return
	}

	reply := h.dispatcher.Dispatch(c.Request.Context(), cmd)
	if reply != "" {
		if err := h.send.Send(c.Request.Context(), cmd.From.ChatID, reply); err != nil {
			h.log.WithError(err).WithField("chat_id", cmd.From.ChatID).Error("failed to send reply")
		}
	}
	c.Status(http.StatusOK)
}
