package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/storehub/admin-identity/internal/infrastructure/db/redis"
	"github.com/storehub/admin-identity/internal/infrastructure/queue"
	"github.com/storehub/admin-identity/internal/pkg/config"
	"github.com/storehub/admin-identity/pkg/logger"
)

// mailworker consumes the durable mail queue and delivers jobs. Delivery uses
// the log transport until a real provider is plugged in behind MailSender.
func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}

	mailQueue := queue.NewRedisMailQueue(rdb, cfg.Mail.QueueName)
	worker := queue.NewWorker(mailQueue, queue.NewLogSender(log), cfg.Mail.Consumer, log)

	log.Info().Str("queue", cfg.Mail.QueueName).Str("consumer", cfg.Mail.Consumer).Msg("mail worker started")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker stopped")
	}
	log.Info().Msg("mail worker stopped")
}
