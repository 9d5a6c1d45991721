// cmd/reminder-engine/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vetcare-reminders/internal/api"
	awsclients "vetcare-reminders/internal/common/aws"
	"vetcare-reminders/internal/common/config"
	"vetcare-reminders/internal/common/database"
	"vetcare-reminders/internal/common/logger"
	"vetcare-reminders/internal/engine/directory"
	"vetcare-reminders/internal/engine/dispatcher"
	"vetcare-reminders/internal/engine/reminders"
	"vetcare-reminders/internal/engine/scheduler"
	"vetcare-reminders/internal/engine/templates"
	"vetcare-reminders/migrations"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrapLog := logger.New("info", "console")
		bootstrapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting reminder engine...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	loc, err := cfg.Practice.Location()
	if err != nil {
		zapLog.Fatal("invalid practice timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	if err := pg.Bootstrap(ctx, migrations.Schema); err != nil {
		zapLog.Fatal("schema bootstrap failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected, schema applied")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Delivery channels ---
	var email dispatcher.EmailChannel = dispatcher.DisabledEmail{}
	var sms dispatcher.SMSChannel = dispatcher.DisabledSMS{}
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		aws, err := awsclients.NewClients(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws client init failed", zap.Error(err))
		}
		if cfg.Notifications.Email.Enabled {
			email = dispatcher.NewEmailSender(aws.SES, cfg.Notifications.Email.FromEmail)
		}
		if cfg.Notifications.SMS.Enabled {
			sms = dispatcher.NewSMSSender(aws.SNS, cfg.Notifications.SMS.SenderID)
		}
	}

	// --- Engine wiring ---
	templateStore := templates.NewStore(pg.GetDB())
	reminderRepo := reminders.NewRepository(pg.GetDB())
	reminderService := reminders.NewService(reminderRepo, templateStore, loc)

	dirClient := directory.NewClient(cfg.Directory.BaseURL, config.GetDuration(cfg.Directory.Timeout))

	disp := dispatcher.New(reminderRepo, dirClient, email, sms, rdb.GetClient(), dispatcher.Config{
		MaxAttempts: cfg.Delivery.MaxAttempts,
		BaseBackoff: config.GetDuration(cfg.Delivery.BaseBackoff),
		SendTimeout: config.GetDuration(cfg.Delivery.SendTimeout),
	}, log)

	sweep := scheduler.NewSweep(reminderRepo, disp, scheduler.SweepConfig{
		Interval:  config.GetDuration(cfg.Scheduler.SweepInterval),
		LeaseTTL:  config.GetDuration(cfg.Scheduler.LeaseTTL),
		BatchSize: cfg.Scheduler.BatchSize,
		Workers:   cfg.Scheduler.Workers,
	}, log)

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweep.Run(ctx)
	}()

	// --- HTTP API ---
	window := time.Duration(cfg.Scheduler.UpcomingWindow) * time.Hour
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewServer(templateStore, reminderService, window, log),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// pprof on a separate listener, never exposed on the API port.
	if cfg.Server.DebugAddress != "" {
		go func() {
			zapLog.Info("Debug server listening", zap.String("address", cfg.Server.DebugAddress))
			if err := http.ListenAndServe(cfg.Server.DebugAddress, nil); err != nil {
				zapLog.Warn("debug server stopped", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownGrace))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("http shutdown incomplete", zap.Error(err))
	}

	select {
	case <-sweepDone:
	case <-shutdownCtx.Done():
		zapLog.Warn("sweep did not finish within shutdown grace")
	}

	zapLog.Info("Reminder engine stopped")
}
