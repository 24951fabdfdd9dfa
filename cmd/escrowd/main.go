package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/config"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/pubsub"
	filedb "github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/file"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/inmemory"
	"github.com/tdex-network/tdex-escrow/internal/interfaces"
	httpinterface "github.com/tdex-network/tdex-escrow/internal/interfaces/http"
	telegraminterface "github.com/tdex-network/tdex-escrow/internal/interfaces/telegram"
	"github.com/tdex-network/tdex-escrow/pkg/stats"
	"golang.org/x/sync/errgroup"
)

const metricsDumpFile = "metrics.txt"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error while loading config: %s", err)
	}
	log.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())

	repo, err := newStateRepository(cfg)
	if err != nil {
		log.Fatalf("error while opening ledger storage: %s", err)
	}

	webhookSvc, err := newWebhookService(cfg)
	if err != nil {
		log.Fatalf("error while registering webhooks: %s", err)
	}
	metrics := stats.NewLedgerMetrics()
	feed := httpinterface.NewEventFeed()
	publisher := pubsub.NewMultiPublisher(webhookSvc, metrics, feed)

	feePolicy, err := domain.NewPercentageFee(cfg.FeePercentage)
	if err != nil {
		log.Fatalf("invalid fee percentage: %s", err)
	}
	escrowSvc, err := application.NewEscrowService(
		ctx, cfg.OwnerIDs, feePolicy, repo, publisher, nil,
	)
	if err != nil {
		log.Fatalf("error while initializing escrow service: %s", err)
	}
	if err := registerLedgerGauges(metrics, escrowSvc, feed); err != nil {
		log.Fatalf("error while registering metrics: %s", err)
	}

	services, err := newInterfaces(cfg, escrowSvc, feed, metrics)
	if err != nil {
		log.Fatalf("error while setting up interfaces: %s", err)
	}

	if cfg.StatsInterval > 0 {
		dumpPath := filepath.Join(cfg.Datadir, config.StatsLocation, metricsDumpFile)
		stats.EnableMemoryStatistics(ctx, cfg.StatsInterval, metrics.Gatherer(), dumpPath)
	}

	for _, svc := range services {
		if err := svc.Start(); err != nil {
			log.Fatalf("error while starting interface: %s", err)
		}
	}

	log.WithFields(log.Fields{
		"owners":  len(cfg.OwnerIDs),
		"persist": cfg.Persist,
		"fee":     feePolicy.Percentage.String(),
	}).Info("escrow daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down escrow daemon")

	eg := &errgroup.Group{}
	for _, svc := range services {
		eg.Go(func() error {
			svc.Stop()
			return nil
		})
	}
	//nolint
	eg.Wait()

	cancel()
	if err := repo.Close(); err != nil {
		log.WithError(err).Warn("error while closing ledger storage")
	}

	log.Info("exiting")
}

func newStateRepository(cfg *config.Config) (ports.StateRepository, error) {
	if !cfg.Persist {
		log.Warn("persistence disabled, the ledger lives in memory only")
		return inmemory.NewStateRepositoryImpl(), nil
	}
	return filedb.NewStateRepository(cfg.Datadir)
}

func newWebhookService(cfg *config.Config) (ports.PubSub, error) {
	if len(cfg.WebhookEndpoints) <= 0 {
		return nil, nil
	}

	pubsubSvc := pubsub.NewService(cfg.WebhookTimeout)
	for _, endpoint := range cfg.WebhookEndpoints {
		id, err := pubsubSvc.Subscribe(endpoint.Topic, endpoint.URL, cfg.WebhookSecret)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"id":    id,
			"topic": endpoint.Topic,
		}).Debug("webhook registered")
	}
	return pubsubSvc, nil
}

func registerLedgerGauges(
	metrics *stats.LedgerMetrics,
	escrowSvc application.EscrowService,
	feed *httpinterface.EventFeed,
) error {
	gauges := []struct {
		name string
		help string
		fn   func() float64
	}{
		{
			name: "open_trades",
			help: "Number of trades currently on hold.",
			fn: func() float64 {
				return float64(escrowSvc.GetChatStats(0).Open)
			},
		},
		{
			name: "trades",
			help: "Number of trades recorded in the ledger.",
			fn: func() float64 {
				return float64(escrowSvc.GetChatStats(0).Total)
			},
		},
		{
			name: "admins",
			help: "Number of admins, owners excluded.",
			fn: func() float64 {
				return float64(len(escrowSvc.ListAdmins().Admins))
			},
		},
		{
			name: "feed_clients",
			help: "Number of clients connected to the live event feed.",
			fn: func() float64 {
				return float64(feed.NumOfClients())
			},
		},
	}

	for _, g := range gauges {
		if err := metrics.RegisterGaugeFunc(g.name, g.help, g.fn); err != nil {
			return err
		}
	}
	return nil
}

func newInterfaces(
	cfg *config.Config,
	escrowSvc application.EscrowService,
	feed *httpinterface.EventFeed,
	metrics *stats.LedgerMetrics,
) ([]interfaces.Service, error) {
	client, err := telegraminterface.NewClient(cfg.BotToken, cfg.SendRateLimit)
	if err != nil {
		return nil, err
	}

	botUsername := cfg.BotUsername
	if botUsername == "" {
		botUsername = client.Username()
	}
	var logChannel telegraminterface.Recipient
	if cfg.LogChannel != "" {
		if logChannel, err = telegraminterface.ParseRecipient(cfg.LogChannel); err != nil {
			return nil, err
		}
	}

	router := telegraminterface.NewRouter(
		escrowSvc, client, telegraminterface.NewDirectory(),
		telegraminterface.RouterConfig{
			BotUsername: botUsername,
			LogChannel:  logChannel,
			Currency:    cfg.Currency,
			DMFooter:    cfg.DMFooter,
		},
	)
	services := []interfaces.Service{
		telegraminterface.NewService(client, router, cfg.PollTimeout),
	}

	if cfg.OpsPort > 0 {
		opsSvc, err := httpinterface.NewService(
			cfg.OpsAddress, cfg.OpsPort, escrowSvc, feed, metrics.Handler(),
		)
		if err != nil {
			return nil, err
		}
		services = append(services, opsSvc)
	}
	return services, nil
}
