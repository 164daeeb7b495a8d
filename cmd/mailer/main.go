package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-assignment/internal/config"
	"github.com/spec-kit/staff-assignment/internal/observability"
	"github.com/spec-kit/staff-assignment/internal/persistence"
	"github.com/spec-kit/staff-assignment/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.RabbitMQ.DSN == "" {
		logger.Fatal("RABBITMQ_DSN is required")
	}

	client, err := mail.NewClient(cfg.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.SMTP.Port),
		mail.WithUsername(cfg.SMTP.Username),
		mail.WithPassword(cfg.SMTP.Password),
	)
	if err != nil {
		logger.Fatal("failed to create mail client", zap.Error(err))
	}
	defer client.Close() //nolint:errcheck

	dialCtx, cancelDial := context.WithTimeout(context.Background(), time.Duration(cfg.SMTP.DialTimeoutSeconds)*time.Second)
	if err := client.DialWithContext(dialCtx); err != nil {
		cancelDial()
		logger.Fatal("failed to reach smtp server", zap.Error(err))
	}
	cancelDial()

	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Fatal("failed to connect rabbitmq", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("failed to open channel", zap.Error(err))
	}
	defer ch.Close()

	q, err := persistence.DeclareQueue(ch, cfg.RabbitMQ.Queue)
	if err != nil {
		logger.Fatal("failed to declare queue", zap.Error(err))
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer tag assigned by the broker
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		logger.Fatal("failed to consume", zap.String("queue", q.Name), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("mailer waiting for messages", zap.String("queue", q.Name))
	worker.NewMailWorker(client, cfg.Notification.EmailFrom, logger).Run(ctx, deliveries)
	logger.Info("mailer stopped")
}
