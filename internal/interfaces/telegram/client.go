package telegraminterface

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

const (
	// DefaultSendRate is the default max number of outbound messages per
	// second.
	DefaultSendRate = 25
	// DefaultPollTimeout is the default long polling timeout in seconds.
	DefaultPollTimeout = 60
)

// UpdateSource is the stream of inbound messages consumed by the service.
type UpdateSource interface {
	Updates(pollTimeout int) <-chan Message
	StopUpdates()
}

// Client is the Telegram Bot API transport. It implements both Messenger and
// UpdateSource.
type Client struct {
	bot     *tgbotapi.BotAPI
	limiter ratelimit.Limiter
}

func NewClient(token string, sendRate int) (*Client, error) {
	if sendRate <= 0 {
		sendRate = DefaultSendRate
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bot api: %w", err)
	}
	log.Infof("authorized on bot account @%s", bot.Self.UserName)

	return &Client{
		bot:     bot,
		limiter: ratelimit.New(sendRate),
	}, nil
}

// Username returns the username of the bot account.
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

func (c *Client) Send(
	ctx context.Context, to Recipient, text string, replyTo int,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if to.ChannelUsername != "" {
		msg = tgbotapi.NewMessageToChannel(to.ChannelUsername, text)
	} else {
		msg = tgbotapi.NewMessage(to.ChatID, text)
	}
	msg.ReplyToMessageID = replyTo
	msg.DisableWebPagePreview = true

	c.limiter.Take()
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	return nil
}

// Updates starts long polling and returns the channel of inbound messages.
// The channel is closed once StopUpdates is called.
func (c *Client) Updates(pollTimeout int) <-chan Message {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	cfg.AllowedUpdates = []string{"message"}

	updates := c.bot.GetUpdatesChan(cfg)
	messages := make(chan Message)
	go func() {
		defer close(messages)
		for update := range updates {
			msg, ok := MessageFromAPI(update.Message)
			if !ok {
				continue
			}
			messages <- msg
		}
	}()
	return messages
}

func (c *Client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

// MessageFromAPI converts a Bot API message. Messages without sender,
// chat, or text are discarded.
func MessageFromAPI(m *tgbotapi.Message) (Message, bool) {
	if m == nil || m.From == nil || m.Chat == nil {
		return Message{}, false
	}
	text := m.Text
	if text == "" {
		text = m.Caption
	}

	msg := Message{
		ID:     m.MessageID,
		ChatID: m.Chat.ID,
		From:   userFromAPI(m.From),
		Text:   text,
	}
	if reply, ok := MessageFromAPI(m.ReplyToMessage); ok {
		msg.ReplyTo = &reply
	}
	return msg, msg.Text != "" || msg.ReplyTo != nil
}

func userFromAPI(u *tgbotapi.User) User {
	return User{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
	}
}
