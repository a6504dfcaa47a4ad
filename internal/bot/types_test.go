package bot

import "testing"

func update(text string) *Update {
	return &Update{
		Message: &Message{
			From: &Account{ID: 7, FirstName: "Dana", LastName: "Levi"},
			Chat: &Chat{ID: 77},
			Text: text,
		},
	}
}

func TestParseCommand(t *testing.T) {
	cmd, ok := ParseCommand(update("/join 3"))
	if !ok {
		t.Fatal("expected a command")
	}
	if cmd.Name != "join" {
		t.Errorf("name: %q", cmd.Name)
	}
	if len(cmd.Args) != 1 || cmd.Args[0] != "3" {
		t.Errorf("args: %v", cmd.Args)
	}
	if cmd.From.ID != "7" || cmd.From.ChatID != 77 {
		t.Errorf("sender: %+v", cmd.From)
	}
}

func TestParseCommandStripsBotMention(t *testing.T) {
	cmd, ok := ParseCommand(update("/Summary@klinika_dw_bot"))
	if !ok {
		t.Fatal("expected a command")
	}
	if cmd.Name != "summary" {
		t.Errorf("name: %q", cmd.Name)
	}
}

func TestParseCommandRejectsPlainText(t *testing.T) {
	for _, text := range []string{"", "hello there", "   "} {
		if _, ok := ParseCommand(update(text)); ok {
			t.Errorf("%q parsed as a command", text)
		}
	}
	if _, ok := ParseCommand(&Update{}); ok {
		t.Error("update without a message parsed as a command")
	}
	if _, ok := ParseCommand(nil); ok {
		t.Error("nil update parsed as a command")
	}
}
