package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habit_reminder_bot/internal/app"
	"habit_reminder_bot/internal/domain/reminder"
	"habit_reminder_bot/internal/infra/config"
	idb "habit_reminder_bot/internal/infra/database"
	"habit_reminder_bot/internal/infra/dedup"
	"habit_reminder_bot/internal/infra/logger"
	"habit_reminder_bot/internal/infra/metrics"
	"habit_reminder_bot/internal/infra/scheduler"
	"habit_reminder_bot/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const metricsNamespace = "habit_reminder"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	log := logger.New(cfg)
	mainLogger := log.WithField("component", "main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Habit Reminder Bot starting...")

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	if cfg.DBAutoMigrate {
		if err := idb.ApplySchema(context.Background(), db); err != nil {
			mainLogger.WithError(err).Fatal("Could not apply database schema")
		}
		mainLogger.Info("Database schema applied.")
	}

	// Initialize Repositories
	habitRepo := idb.NewPostgresHabitRepository(db)
	userRepo := idb.NewPostgresUserRepository(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(metricsNamespace, registry)

	// Outbound delivery
	sender := telegram.NewHTTPSender(telegram.SenderConfig{
		BaseURL:       cfg.TelegramAPIURL,
		Token:         cfg.TelegramToken,
		Timeout:       cfg.SendTimeout,
		MaxRetries:    cfg.SendMaxRetries,
		RatePerSecond: cfg.SendRatePerSecond,
		Burst:         int(cfg.SendRatePerSecond),
	}, m, log.WithField("service", "sender"))

	dispatcher := app.NewDispatcher(sender, cfg.DispatchQueueSize, cfg.DispatchWorkers, cfg.DeliveryDeadline, m, log.WithField("service", "dispatcher"))
	dispatcher.Start()

	// Optional duplicate guard
	var deduper reminder.Deduper
	if cfg.RedisAddr != "" {
		rdb := dedup.NewRedisClient(dedup.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		deduper = dedup.NewRedisDeduper(rdb, cfg.DedupTTL, log.WithField("service", "dedup"))
		mainLogger.WithField("redis_addr", cfg.RedisAddr).Info("Reminder duplicate guard enabled.")
	} else {
		mainLogger.Warn("REDIS_ADDR not set, reminders are not protected against duplicate triggers.")
	}

	reminderService := app.NewReminderServiceImpl(habitRepo, dispatcher, deduper, m, time.Now, log.WithField("service", "reminders"))

	reminderScheduler := scheduler.NewReminderScheduler(reminderService, log.WithField("service", "scheduler"), cfg.CronSpecReminderCheck, cfg.RunTimeout)
	if err := reminderScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start reminder scheduler")
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				mainLogger.WithError(err).Error("Metrics server failed")
			}
		}()
		mainLogger.WithField("addr", cfg.MetricsAddr).Info("Metrics endpoint listening.")
	}

	// Initialize Telegram Bot for inbound commands
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var bot *telebot.Bot
	if cfg.BotCommandsEnabled {
		botLogger := log.WithField("service", "bot")
		pref := telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) { // Global error handler
				entry := botLogger.WithError(err)
				if c != nil && c.Chat() != nil {
					entry = entry.WithField("chat_id", c.Chat().ID)
				}
				entry.Error("Telebot error")
			},
		}
		bot, err = telebot.NewBot(pref)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		telegram.RegisterBotCommands(ctx, bot, userRepo, botLogger)
		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
		mainLogger.Info("Bot command handlers registered.")
	}

	mainLogger.Info("Application setup complete. Scheduler is running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	cancel()
	if bot != nil {
		bot.Stop()
	}
	reminderScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DeliveryDeadline)
	defer shutdownCancel()
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("Pending deliveries were not finished")
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	mainLogger.Info("Application shut down gracefully.")
}
