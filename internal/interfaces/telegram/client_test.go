package telegraminterface_test

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	telegraminterface "github.com/tdex-network/tdex-escrow/internal/interfaces/telegram"
)

func TestMessageFromAPI(t *testing.T) {
	reply := &tgbotapi.Message{
		MessageID: 4,
		From:      &tgbotapi.User{ID: aliceID, UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Caption:   "🆔 Trade ID : #3",
	}
	apiMsg := &tgbotapi.Message{
		MessageID:      5,
		From:           &tgbotapi.User{ID: admin, UserName: "boss", FirstName: "Bob"},
		Chat:           &tgbotapi.Chat{ID: chatID},
		Text:           "/done",
		ReplyToMessage: reply,
	}

	msg, ok := telegraminterface.MessageFromAPI(apiMsg)
	require.True(t, ok)
	require.Equal(t, 5, msg.ID)
	require.Equal(t, chatID, msg.ChatID)
	require.Equal(t, "@boss", msg.From.Handle())
	require.Equal(t, "Bob", msg.From.DisplayName())
	require.NotNil(t, msg.ReplyTo)
	require.Equal(t, 4, msg.ReplyTo.ID)
	require.Equal(t, "🆔 Trade ID : #3", msg.ReplyTo.Text)

	tests := []struct {
		name string
		msg  *tgbotapi.Message
	}{
		{"nil", nil},
		{"no_sender", &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "/start"}},
		{"no_chat", &tgbotapi.Message{From: &tgbotapi.User{ID: 1}, Text: "/start"}},
		{"no_text", &tgbotapi.Message{From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}}},
	}
	for _, tt := range tests {
		_, ok := telegraminterface.MessageFromAPI(tt.msg)
		require.False(t, ok, tt.name)
	}
}

func TestParseRecipient(t *testing.T) {
	r, err := telegraminterface.ParseRecipient(" @escrowlogs ")
	require.NoError(t, err)
	require.Equal(t, "@escrowlogs", r.String())

	r, err = telegraminterface.ParseRecipient("-100123")
	require.NoError(t, err)
	require.Equal(t, int64(-100123), r.ChatID)

	for _, s := range []string{"", "@", "abc", "0"} {
		_, err := telegraminterface.ParseRecipient(s)
		require.Error(t, err, s)
	}
}

func TestDirectory(t *testing.T) {
	d := telegraminterface.NewDirectory()
	d.Learn(aliceUser)
	d.Learn(telegraminterface.User{ID: 5})

	id, ok := d.Lookup("@ALICE")
	require.True(t, ok)
	require.Equal(t, aliceID, id)

	id, ok = d.Lookup("alice")
	require.True(t, ok)
	require.Equal(t, aliceID, id)

	id, ok = d.Lookup("12345")
	require.True(t, ok)
	require.Equal(t, int64(12345), id)

	_, ok = d.Lookup("@bob")
	require.False(t, ok)
	require.Equal(t, 1, d.Len())
}
