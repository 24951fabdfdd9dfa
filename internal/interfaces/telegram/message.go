package telegraminterface

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// User is the sender of an inbound message.
type User struct {
	ID        int64
	Username  string
	FirstName string
}

// Handle returns the @-prefixed username, or an empty string if the user
// has none.
func (u User) Handle() string {
	if u.Username == "" {
		return ""
	}
	return "@" + u.Username
}

// Mention returns how the user is referred to in receipts.
func (u User) Mention() string {
	if h := u.Handle(); h != "" {
		return h
	}
	return strconv.FormatInt(u.ID, 10)
}

func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Mention()
}

// Message is an inbound chat message, decoupled from the transport.
type Message struct {
	ID      int
	ChatID  int64
	From    User
	Text    string
	ReplyTo *Message
}

// Recipient is either a chat, identified by id, or a public channel,
// identified by its @username.
type Recipient struct {
	ChatID          int64
	ChannelUsername string
}

func ChatRecipient(chatID int64) Recipient {
	return Recipient{ChatID: chatID}
}

// ParseRecipient parses a chat id or a @channel username.
func ParseRecipient(s string) (Recipient, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "@") && len(s) > 1 {
		return Recipient{ChannelUsername: s}, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return Recipient{}, fmt.Errorf("invalid recipient %q, must be a chat id or a @channel", s)
	}
	return Recipient{ChatID: id}, nil
}

func (r Recipient) IsZero() bool {
	return r.ChatID == 0 && r.ChannelUsername == ""
}

func (r Recipient) String() string {
	if r.ChannelUsername != "" {
		return r.ChannelUsername
	}
	return strconv.FormatInt(r.ChatID, 10)
}

// Messenger delivers outbound messages. A non-zero replyTo makes the
// message a reply to the given message of the recipient chat.
type Messenger interface {
	Send(ctx context.Context, to Recipient, text string, replyTo int) error
}
