package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/storehub/admin-identity/internal/api/metrics"
	"github.com/storehub/admin-identity/internal/core/domain"
	"github.com/storehub/admin-identity/internal/core/ports"
)

const defaultEnqueueTimeout = 5 * time.Second

// MailService is the notification dispatcher. It builds one typed job per
// account event and enqueues it onto the durable mail queue.
//
// Errors never escape: a failed enqueue is logged, counted and reported as
// false, leaving the triggering account operation's outcome intact. Retrying
// is the queue's concern, not the dispatcher's.
type MailService struct {
	queue   ports.MailPublisher
	timeout time.Duration
	log     zerolog.Logger
}

func NewMailService(queue ports.MailPublisher, timeout time.Duration, log zerolog.Logger) *MailService {
	if timeout <= 0 {
		timeout = defaultEnqueueTimeout
	}
	return &MailService{queue: queue, timeout: timeout, log: log}
}

// SendRegistrationOTP enqueues the registration verification code.
func (s *MailService) SendRegistrationOTP(ctx context.Context, account *domain.Account, otp int) bool {
	return s.enqueue(ctx, ports.MailJob{
		Kind:      ports.JobRegistrationOTP,
		AccountID: account.ID,
		Name:      account.Name,
		Email:     account.Email,
		OTP:       otp,
	})
}

// SendEmailUpdateOTP enqueues the email-change code, addressed to the new
// address rather than the one currently on record.
func (s *MailService) SendEmailUpdateOTP(ctx context.Context, account *domain.Account, otp int, newEmail string) bool {
	return s.enqueue(ctx, ports.MailJob{
		Kind:      ports.JobEmailUpdateOTP,
		AccountID: account.ID,
		Name:      account.Name,
		Email:     newEmail,
		OTP:       otp,
	})
}

// SendPasswordChanged enqueues the password-change confirmation.
func (s *MailService) SendPasswordChanged(ctx context.Context, account *domain.Account) bool {
	return s.enqueue(ctx, ports.MailJob{
		Kind:      ports.JobPasswordChangedMail,
		AccountID: account.ID,
		Name:      account.Name,
		Email:     account.Email,
	})
}

// enqueue performs the single queue write. The caller's cancellation is
// detached: a client disconnect after the account mutation committed must not
// abort the matching notification. The write itself is bounded by timeout;
// hitting it counts as an enqueue failure.
func (s *MailService) enqueue(ctx context.Context, job ports.MailJob) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	job.EnqueuedAt = time.Now().UTC()

	id, err := s.queue.Publish(ctx, job)
	if err != nil {
		metrics.MailEnqueueFailuresTotal.WithLabelValues(job.Kind).Inc()
		s.log.Error().Err(err).
			Str("kind", job.Kind).
			Str("account_id", job.AccountID).
			Msg("failed to enqueue mail job")
		return false
	}

	metrics.MailJobsEnqueuedTotal.WithLabelValues(job.Kind).Inc()
	s.log.Info().
		Str("kind", job.Kind).
		Str("job_id", id).
		Str("email", job.Email).
		Msg("mail job enqueued")
	return true
}
