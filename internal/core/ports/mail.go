package ports

import (
	"context"
	"time"

	"github.com/storehub/admin-identity/internal/core/domain"
)

// Job kinds, one per account-lifecycle event. The names double as the worker
// routing key inside the queue payload.
const (
	JobRegistrationOTP     = "send-registered-user-email"
	JobEmailUpdateOTP      = "send-otp-update-email"
	JobPasswordChangedMail = "send-success-change-password"
)

// MailJob is the typed message handed to the queue. It references the account
// by id and carries only what delivery needs — credential material such as the
// password hash is never part of a payload.
type MailJob struct {
	ID         string // assigned by the queue at enqueue time
	Kind       string
	AccountID  string
	Name       string
	Email      string // recipient; for email updates this is the new address
	OTP        int    // zero when the kind carries no code
	EnqueuedAt time.Time
}

// MailPublisher is the enqueue side of the job queue. Publish blocks only
// until the queue acknowledges the durable write and returns the job id.
type MailPublisher interface {
	Publish(ctx context.Context, job MailJob) (string, error)
}

// MailQueue is the full queue contract: durable, at-least-once. Consumers must
// be idempotent per job id since an unacked job is redelivered.
type MailQueue interface {
	MailPublisher

	// CreateConsumerGroup is idempotent and must be called before Consume.
	CreateConsumerGroup(ctx context.Context) error
	Consume(ctx context.Context, consumer string, count int64, block time.Duration) ([]MailJob, error)
	Ack(ctx context.Context, jobID string) error
	Length(ctx context.Context) (int64, error)
}

// MailDispatcher translates completed account events into enqueue calls.
// Each method enqueues exactly one job and reports whether the enqueue
// succeeded; failures are logged and swallowed so that notification
// infrastructure problems never fail the triggering operation.
type MailDispatcher interface {
	SendRegistrationOTP(ctx context.Context, account *domain.Account, otp int) bool
	SendEmailUpdateOTP(ctx context.Context, account *domain.Account, otp int, newEmail string) bool
	SendPasswordChanged(ctx context.Context, account *domain.Account) bool
}
