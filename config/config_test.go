package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	datadir := t.TempDir()
	t.Setenv("ESCROW_BOT_TOKEN", "123:abc")
	t.Setenv("ESCROW_OWNER_IDS", "1, 2,,3")
	t.Setenv("ESCROW_DATADIR", datadir)
	t.Setenv("ESCROW_FEE_PERCENTAGE", "2.5")
	t.Setenv("ESCROW_BOT_USERNAME", "@EscrowBot")
	t.Setenv("ESCROW_STATS_INTERVAL", "600")
	t.Setenv(
		"ESCROW_WEBHOOK_ENDPOINTS",
		"trade_created=https://audit.example.com/created, https://audit.example.com/all?key=1",
	)

	cfg, err := Load(filepath.Join(datadir, "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "123:abc", cfg.BotToken)
	require.Equal(t, "EscrowBot", cfg.BotUsername)
	require.Equal(t, []int64{1, 2, 3}, cfg.OwnerIDs)
	require.Equal(t, 2.5, cfg.FeePercentage)
	require.True(t, cfg.Persist)
	require.Equal(t, log.InfoLevel, cfg.LogLevel)
	require.Equal(t, "127.0.0.1", cfg.OpsAddress)
	require.Equal(t, 9090, cfg.OpsPort)
	require.Equal(t, 15*time.Second, cfg.WebhookTimeout)
	require.Equal(t, 10*time.Minute, cfg.StatsInterval)
	require.Equal(t, 25, cfg.SendRateLimit)
	require.Equal(t, []WebhookEndpoint{
		{Topic: "TRADE_CREATED", URL: "https://audit.example.com/created"},
		{Topic: "*", URL: "https://audit.example.com/all?key=1"},
	}, cfg.WebhookEndpoints)
	require.DirExists(t, filepath.Join(datadir, StatsLocation))
}

func TestLoadEnvFile(t *testing.T) {
	datadir := t.TempDir()
	envFile := filepath.Join(datadir, ".env")
	err := os.WriteFile(envFile, []byte(
		"ESCROW_DM_FOOTER=\"Thanks for trading with us\"\n",
	), 0600)
	require.NoError(t, err)
	t.Cleanup(func() { os.Unsetenv("ESCROW_DM_FOOTER") })

	t.Setenv("ESCROW_BOT_TOKEN", "123:abc")
	t.Setenv("ESCROW_OWNER_IDS", "1")
	t.Setenv("ESCROW_DATADIR", datadir)

	cfg, err := Load(envFile)
	require.NoError(t, err)
	require.Equal(t, "Thanks for trading with us", cfg.DMFooter)
}

func TestFailingLoad(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing_bot_token",
			env:  map[string]string{"ESCROW_BOT_TOKEN": ""},
		},
		{
			name: "missing_owners",
			env:  map[string]string{"ESCROW_OWNER_IDS": ""},
		},
		{
			name: "invalid_owner",
			env:  map[string]string{"ESCROW_OWNER_IDS": "1,abc"},
		},
		{
			name: "negative_owner",
			env:  map[string]string{"ESCROW_OWNER_IDS": "-1"},
		},
		{
			name: "fee_out_of_range",
			env:  map[string]string{"ESCROW_FEE_PERCENTAGE": "101"},
		},
		{
			name: "invalid_port",
			env:  map[string]string{"ESCROW_OPS_LISTENING_PORT": "70000"},
		},
		{
			name: "invalid_ops_address",
			env:  map[string]string{"ESCROW_OPS_LISTENING_ADDRESS": "somewhere"},
		},
		{
			name: "invalid_webhook_url",
			env:  map[string]string{"ESCROW_WEBHOOK_ENDPOINTS": "not an url"},
		},
		{
			name: "missing_webhook_topic",
			env:  map[string]string{"ESCROW_WEBHOOK_ENDPOINTS": "=https://audit.example.com"},
		},
		{
			name: "invalid_send_rate",
			env:  map[string]string{"ESCROW_SEND_RATE_LIMIT": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ESCROW_BOT_TOKEN", "123:abc")
			t.Setenv("ESCROW_OWNER_IDS", "1")
			t.Setenv("ESCROW_DATADIR", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
			require.Nil(t, cfg)
		})
	}
}
