package telegram

import (
	"strings"

	"github.com/artchaos/booking-platform/internal/conversation"
)

// Update is one event delivered by the Bot API.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is an incoming chat message. Only text messages drive the dialogue.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// ReplyKeyboardMarkup is the one-tap keyboard shown under the input field.
type ReplyKeyboardMarkup struct {
	Keyboard       [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

type KeyboardButton struct {
	Text string `json:"text"`
}

// markupFromRows converts plain label rows into Bot API keyboard markup.
func markupFromRows(rows [][]string) *ReplyKeyboardMarkup {
	keyboard := make([][]KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, KeyboardButton{Text: label})
		}
		keyboard = append(keyboard, buttons)
	}
	return &ReplyKeyboardMarkup{Keyboard: keyboard, ResizeKeyboard: true}
}

// incomingFromUpdate flattens an update into the dialogue's input shape.
// Updates without a text message report ok=false and are skipped.
func incomingFromUpdate(u Update) (conversation.IncomingMessage, bool) {
	if u.Message == nil || strings.TrimSpace(u.Message.Text) == "" {
		return conversation.IncomingMessage{}, false
	}
	msg := conversation.IncomingMessage{
		ChatID: u.Message.Chat.ID,
		Text:   u.Message.Text,
	}
	if u.Message.From != nil {
		msg.FirstName = u.Message.From.FirstName
		msg.Username = u.Message.From.Username
	}
	return msg, true
}
