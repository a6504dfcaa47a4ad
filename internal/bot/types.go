// Package bot is the Telegram collaborator: wire types for incoming
// updates, a minimal Bot API client for outgoing messages, and the
// dispatcher that maps parsed commands onto the roster engine.
package bot

import (
	"strconv"
	"strings"
)

// Update is an incoming Telegram update, reduced to the fields the
// dispatcher cares about.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an incoming chat message.
type Message struct {
	MessageID int64    `json:"message_id"`
	From      *Account `json:"from"`
	Chat      *Chat    `json:"chat"`
	Text      string   `json:"text"`
}

// Account identifies the sender of a message.
type Account struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// Chat is the conversation a message arrived in.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Command is one parsed inbound command with its trusted sender
// identity, ready for the dispatcher.
type Command struct {
	Name string
	Args []string
	From From
}

// From is the sender identity attached to a command.
type From struct {
	ID        string
	ChatID    int64
	FirstName string
	LastName  string
}

// ParseCommand extracts a command from an update. It reports false for
// updates that carry no message, no sender, or no leading slash. A
// "@botname" suffix on the command is dropped.
func ParseCommand(u *Update) (Command, bool) {
	if u == nil || u.Message == nil || u.Message.From == nil || u.Message.Chat == nil {
		return Command{}, false
	}
	fields := strings.Fields(u.Message.Text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, false
	}

	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}

	return Command{
		Name: strings.ToLower(name),
		Args: fields[1:],
		From: From{
			ID:        strconv.FormatInt(u.Message.From.ID, 10),
			ChatID:    u.Message.Chat.ID,
			FirstName: u.Message.From.FirstName,
			LastName:  u.Message.From.LastName,
		},
	}, true
}
