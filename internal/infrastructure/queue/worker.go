package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/storehub/admin-identity/internal/api/metrics"
	"github.com/storehub/admin-identity/internal/core/ports"
)

const (
	consumeBatch = 16
	consumeBlock = 5 * time.Second
)

// MailSender performs the actual delivery of a single job. The SMTP/provider
// implementation lives outside this service; LogSender stands in for it.
type MailSender interface {
	Send(ctx context.Context, job ports.MailJob) error
}

// Worker drains the mail queue and hands each job to the sender. A job is
// acked only after the sender returns without error; failed jobs stay pending
// and the queue redelivers them, so Send must be idempotent per job id.
type Worker struct {
	queue    ports.MailQueue
	sender   MailSender
	consumer string
	log      zerolog.Logger
}

func NewWorker(queue ports.MailQueue, sender MailSender, consumer string, log zerolog.Logger) *Worker {
	return &Worker{queue: queue, sender: sender, consumer: consumer, log: log}
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.queue.CreateConsumerGroup(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		jobs, err := w.queue.Consume(ctx, w.consumer, consumeBatch, consumeBlock)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error().Err(err).Msg("consume failed")
			time.Sleep(time.Second)
			continue
		}

		for _, job := range jobs {
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job ports.MailJob) {
	if err := w.sender.Send(ctx, job); err != nil {
		metrics.MailJobsDeliveredTotal.WithLabelValues(job.Kind, "error").Inc()
		w.log.Error().Err(err).
			Str("job_id", job.ID).
			Str("kind", job.Kind).
			Msg("delivery failed, job left pending")
		return
	}

	if err := w.queue.Ack(ctx, job.ID); err != nil {
		// The job was delivered; a failed ack only risks a redelivery.
		w.log.Warn().Err(err).Str("job_id", job.ID).Msg("ack failed")
	}
	metrics.MailJobsDeliveredTotal.WithLabelValues(job.Kind, "ok").Inc()
	w.log.Info().
		Str("job_id", job.ID).
		Str("kind", job.Kind).
		Str("email", job.Email).
		Msg("mail job delivered")
}

// LogSender is the bundled MailSender: it records the delivery instead of
// talking to a mail provider. Useful in development and as the default until
// a transport is wired in.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, job ports.MailJob) error {
	evt := s.log.Info().
		Str("kind", job.Kind).
		Str("account_id", job.AccountID).
		Str("email", job.Email)
	if job.OTP != 0 {
		evt = evt.Int("otp", job.OTP)
	}
	evt.Msg("mail delivery (log transport)")
	return nil
}
