package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers one pre-rendered message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Bot posts HTML messages to one chat or channel.
type Bot struct {
	api  *tgbotapi.BotAPI
	chat string
}

var _ Sender = (*Bot)(nil)

// NewBot connects to the Bot API. chat is a numeric chat id or a public
// channel username such as "@hh_resumes".
func NewBot(token, chat string) (*Bot, error) {
	if strings.TrimSpace(chat) == "" {
		return nil, fmt.Errorf("telegram chat is empty")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	//turn this on in case of debug
	//api.Debug = true

	return &Bot{api: api, chat: strings.TrimSpace(chat)}, nil
}

func (b *Bot) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := newMessage(b.chat, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

// Username is the bot's own @name, for logs.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

func newMessage(chat, text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	if !strings.HasPrefix(chat, "@") {
		chat = "@" + chat
	}
	return tgbotapi.NewMessageToChannel(chat, text)
}
