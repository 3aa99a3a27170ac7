package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"starshop/internal/bot"
	"starshop/internal/config"
	"starshop/internal/handler"
	"starshop/internal/infrastructure/cache"
	"starshop/internal/infrastructure/database"
	"starshop/internal/infrastructure/mq"
	"starshop/internal/job"
	"starshop/internal/logger"
	"starshop/internal/metrics"
	"starshop/internal/model"
	"starshop/internal/repository"
	"starshop/internal/service"
	"starshop/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	pflag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "starshop:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Storage.LogFile())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := idgen.Init(1); err != nil {
		return fmt.Errorf("init id generator: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos := repository.Open(cfg.Storage.DataDir, log)
	m := metrics.New(prometheus.DefaultRegisterer)

	tb, err := bot.NewTelebot(cfg.Bot, log)
	if err != nil {
		return err
	}
	messenger := bot.NewMessenger(tb)

	settings := service.NewSettingsService(repos.Settings, offerFromConfig(cfg.Guide), log)
	offer, err := settings.Apply(ctx)
	if err != nil {
		return fmt.Errorf("apply stored settings: %w", err)
	}
	log.Info("offer loaded",
		zap.Int64("price_uah", offer.PriceUAH),
		zap.Int64("price_stars", offer.PriceStars()),
		zap.Bool("sales_enabled", offer.SalesEnabled))

	// Assigned only when enabled so the interface stays nil otherwise.
	var redisClient redis.Cmdable
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		defer client.Close()
		redisClient = client
	}

	var producer *mq.Producer
	topic := ""
	if cfg.Kafka.Enabled {
		producer, err = mq.NewKafkaProducer(cfg.Kafka, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		topic = cfg.Kafka.Topic.PaymentEvents
	}

	counters := service.NewCounterService(repos.Counters)
	users := service.NewUserService(repos.Users, counters)
	access := service.NewAccessService(repos.Access)
	admins := service.NewAdminService(repos.Admins, cfg.Bot.AdminIDs)
	content := service.NewContentService(repos.Content)
	ledger := service.NewLedgerService(repos.Purchases, repos.Ledger, m, log)
	outbox := service.NewOutboxService(repos.Outbox, topic)
	notifier := service.NewNotifier(messenger, cfg.Bot.AlertChatIDs, log)

	pay := service.NewPayService(service.PayServiceDeps{
		Repos:       repos,
		Counters:    counters,
		Settings:    settings,
		Users:       users,
		Access:      access,
		Outbox:      outbox,
		Notifier:    notifier,
		Messenger:   messenger,
		RedisClient: redisClient,
		Metrics:     m,
		Logger:      log,
	})
	refunds := service.NewRefundService(service.RefundServiceDeps{
		Repos:       repos,
		Settings:    settings,
		Outbox:      outbox,
		Notifier:    notifier,
		Messenger:   messenger,
		RedisClient: redisClient,
		Metrics:     m,
		Logger:      log,
	})
	broadcast := service.NewBroadcastService(users, repos.Alerts, messenger, cfg.Jobs.BroadcastRate, m, log)

	tgBot := bot.New(tb, cfg.Bot, bot.Services{
		Pay:      pay,
		Ledger:   ledger,
		Users:    users,
		Counters: counters,
		Access:   access,
		Settings: settings,
		Content:  content,
		Admins:   admins,
	}, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := settings.Watch(gctx); err != nil {
			log.Warn("settings watcher stopped", zap.Error(err))
		}
		return nil
	})

	if producer != nil {
		sender := job.NewOutboxSender(repos.Outbox, producer, cfg.Jobs.OutboxInterval, cfg.Jobs.OutboxBatchSize, cfg.Jobs.MaxRetryCount, m, log)
		g.Go(func() error {
			sender.Start(gctx)
			return nil
		})
	}

	if cfg.Export.Enabled {
		db, err := database.Open(cfg.Export, log)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("get export db: %w", err)
		}
		defer sqlDB.Close()
		export := job.NewLedgerExportJob(db, repos.Purchases, repos.Ledger, cfg.Export.Interval, m, log)
		g.Go(func() error {
			export.Start(gctx)
			return nil
		})
	}

	if cfg.Server.Enabled {
		router := handler.SetupRouter(handler.NewHandler(handler.Deps{
			Repos:     repos,
			Ledger:    ledger,
			Refunds:   refunds,
			Access:    access,
			Settings:  settings,
			Users:     users,
			Counters:  counters,
			Admins:    admins,
			Content:   content,
			Broadcast: broadcast,
			System:    service.NewSystemService(cfg.Storage.LogFile()),
			Logger:    log,
		}), handler.RouterConfig{
			AdminToken: cfg.Server.AdminToken,
			Admins:     admins,
			Gatherer:   prometheus.DefaultGatherer,
			Logger:     log,
		})

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Info("admin api listening", zap.Int("port", cfg.Server.Port))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin api: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		tgBot.Start()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		tgBot.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("stopped with error", zap.Error(err))
		return err
	}
	log.Info("stopped")
	return nil
}

func offerFromConfig(g config.GuideConfig) model.Offer {
	return model.Offer{
		Title:        g.Title,
		Description:  g.Description,
		Mode:         g.Mode,
		GuideURL:     g.URL,
		Payload:      g.Payload,
		PriceUAH:     g.PriceUAH,
		OldPriceUAH:  g.OldPriceUAH,
		UAHPerStar:   g.UAHPerStar,
		TONPerStar:   g.TONPerStar,
		TONWallet:    g.TONWallet,
		SalesEnabled: g.SalesEnabled,
	}
}
