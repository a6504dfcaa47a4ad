package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const apiBase = "https://api.telegram.org"

// Client is a minimal Telegram Bot API client. The bot only ever sends
// plain text messages, so sendMessage is the whole surface.
type Client struct {
	token string
	httpc *http.Client
	log   *logrus.Entry
}

// NewClient creates a Client for the given bot token.
func NewClient(token string, log *logrus.Entry) *Client {
	return &Client{
		token: token,
		httpc: &http.Client{Timeout: 10 * time.Second},
		log:   log,
	}
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers a text message to a chat. Implements roster.Sender.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", apiBase, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode sendMessage response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("send message to chat %d: telegram: %s", chatID, result.Description)
	}

	c.log.WithField("chat_id", chatID).Debug("message sent")
	return nil
}
