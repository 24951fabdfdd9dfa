package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// BotTokenKey is the token of the Telegram bot account
	BotTokenKey = "BOT_TOKEN"
	// BotUsernameKey is the username of the bot, used to filter commands
	// addressed to other bots. Defaults to the one of the bot account
	BotUsernameKey = "BOT_USERNAME"
	// OwnerIDsKey is the comma separated list of the user ids of the owners
	OwnerIDsKey = "OWNER_IDS"
	// LogChannelKey is the chat id or @username of the channel where a copy
	// of every receipt is sent
	LogChannelKey = "LOG_CHANNEL"
	// DatadirKey is the local data directory to store the ledger state
	DatadirKey = "DATADIR"
	// PersistKey enables the on-disk ledger. When disabled the state lives
	// in memory only
	PersistKey = "PERSIST"
	// FeePercentageKey is the fee charged with the +fee commands, in percent
	FeePercentageKey = "FEE_PERCENTAGE"
	// CurrencyKey is the symbol prefixed to amounts in receipts
	CurrencyKey = "CURRENCY"
	// DMFooterKey is the text appended to the receipts sent by DM
	DMFooterKey = "DM_FOOTER"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// OpsListeningAddressKey is the interface the ops HTTP server binds to.
	// Defaults to loopback, empty means every interface
	OpsListeningAddressKey = "OPS_LISTENING_ADDRESS"
	// OpsListeningPortKey is the port of the ops HTTP server (health, metrics
	// and live events). 0 disables it
	OpsListeningPortKey = "OPS_LISTENING_PORT"
	// WebhookEndpointsKey is the comma separated list of the audit webhooks,
	// each in the form [TOPIC=]url. Endpoints without topic get all events
	WebhookEndpointsKey = "WEBHOOK_ENDPOINTS"
	// WebhookSecretKey is the secret used to sign the webhook bearer tokens
	WebhookSecretKey = "WEBHOOK_SECRET"
	// WebhookTimeoutKey are the seconds to wait for webhook responses
	WebhookTimeoutKey = "WEBHOOK_TIMEOUT"
	// SendRateLimitKey is the max number of outbound messages per second
	SendRateLimitKey = "SEND_RATE_LIMIT"
	// StatsIntervalKey defines the interval in seconds for printing memory
	// statistics. 0 disables them
	StatsIntervalKey = "STATS_INTERVAL"
	// PollTimeoutKey is the long polling timeout in seconds
	PollTimeoutKey = "POLL_TIMEOUT"

	StatsLocation = "stats"

	anyTopic = "*"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("tdex-escrow", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("ESCROW")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(PersistKey, true)
	vip.SetDefault(FeePercentageKey, 3)
	vip.SetDefault(CurrencyKey, "₹")
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(OpsListeningAddressKey, "127.0.0.1")
	vip.SetDefault(OpsListeningPortKey, 9090)
	vip.SetDefault(WebhookTimeoutKey, 15)
	vip.SetDefault(SendRateLimitKey, 25)
	vip.SetDefault(StatsIntervalKey, 0)
	vip.SetDefault(PollTimeoutKey, 60)
}

// WebhookEndpoint is an audit webhook subscribed to a topic.
type WebhookEndpoint struct {
	Topic string `validate:"required"`
	URL   string `validate:"required,url"`
}

// Config is the validated configuration of the daemon.
type Config struct {
	BotToken         string `validate:"required"`
	BotUsername      string
	OwnerIDs         []int64 `validate:"min=1,dive,gt=0"`
	LogChannel       string
	Datadir          string `validate:"required"`
	Persist          bool
	FeePercentage    float64 `validate:"gte=0,lte=100"`
	Currency         string
	DMFooter         string
	LogLevel         log.Level         `validate:"lte=6"`
	OpsAddress       string            `validate:"omitempty,ip"`
	OpsPort          int               `validate:"gte=0,lte=65535"`
	WebhookEndpoints []WebhookEndpoint `validate:"dive"`
	WebhookSecret    string
	WebhookTimeout   time.Duration `validate:"gte=0"`
	SendRateLimit    int           `validate:"gt=0"`
	StatsInterval    time.Duration `validate:"gte=0"`
	PollTimeout      int           `validate:"gte=0"`
}

// Load reads the configuration from the environment, after loading the
// given env files (or .env if none) when they exist, and validates it.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) <= 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	ownerIDs, err := parseOwnerIDs(GetString(OwnerIDsKey))
	if err != nil {
		return nil, err
	}
	webhooks, err := parseWebhookEndpoints(GetString(WebhookEndpointsKey))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BotToken:         GetString(BotTokenKey),
		BotUsername:      strings.TrimPrefix(GetString(BotUsernameKey), "@"),
		OwnerIDs:         ownerIDs,
		LogChannel:       GetString(LogChannelKey),
		Datadir:          GetDatadir(),
		Persist:          GetBool(PersistKey),
		FeePercentage:    GetFloat(FeePercentageKey),
		Currency:         GetString(CurrencyKey),
		DMFooter:         GetString(DMFooterKey),
		LogLevel:         log.Level(GetInt(LogLevelKey)),
		OpsAddress:       GetString(OpsListeningAddressKey),
		OpsPort:          GetInt(OpsListeningPortKey),
		WebhookEndpoints: webhooks,
		WebhookSecret:    GetString(WebhookSecretKey),
		WebhookTimeout:   time.Duration(GetInt(WebhookTimeoutKey)) * time.Second,
		SendRateLimit:    GetInt(SendRateLimitKey),
		StatsInterval:    time.Duration(GetInt(StatsIntervalKey)) * time.Second,
		PollTimeout:      GetInt(PollTimeoutKey),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := initDatadir(cfg); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %w", err)
	}
	return cfg, nil
}

//GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

//GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

//GetFloat ...
func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

//GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the give key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

func parseOwnerIDs(s string) ([]int64, error) {
	ids := make([]int64, 0)
	for _, field := range splitList(s) {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid owner id %q: %w", field, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseWebhookEndpoints(s string) ([]WebhookEndpoint, error) {
	endpoints := make([]WebhookEndpoint, 0)
	for _, field := range splitList(s) {
		topic, endpoint, ok := strings.Cut(field, "=")
		if !ok || strings.Contains(topic, "://") {
			topic, endpoint = anyTopic, field
		}
		if topic == "" {
			return nil, fmt.Errorf("missing topic for webhook %q", field)
		}
		endpoints = append(endpoints, WebhookEndpoint{
			Topic: strings.ToUpper(strings.TrimSpace(topic)),
			URL:   strings.TrimSpace(endpoint),
		})
	}
	return endpoints, nil
}

func splitList(s string) []string {
	list := make([]string, 0)
	for _, field := range strings.Split(s, ",") {
		if field = strings.TrimSpace(field); field != "" {
			list = append(list, field)
		}
	}
	return list
}

func initDatadir(cfg *Config) error {
	if cfg.Persist {
		if err := makeDirectoryIfNotExists(cfg.Datadir); err != nil {
			return err
		}
	}
	if cfg.StatsInterval > 0 {
		statsDir := filepath.Join(cfg.Datadir, StatsLocation)
		if err := makeDirectoryIfNotExists(statsDir); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
