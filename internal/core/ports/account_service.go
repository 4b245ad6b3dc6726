package ports

import (
	"context"

	"github.com/storehub/admin-identity/internal/core/domain"
)

// RegisterInput carries everything needed to create a new account.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        string // empty = AdminEmployee
	Address     string
	PhoneNumber string
}

// AccountService defines the account lifecycle use cases.
//
// Every mutation is durably persisted before the matching notification job is
// enqueued, and a failed enqueue never rolls back the mutation.
type AccountService interface {
	// Register creates an unverified account with a hashed password, opens an
	// OTP challenge and dispatches the registration code.
	Register(ctx context.Context, input RegisterInput) (*domain.Account, error)

	// Login verifies credentials and returns a signed session token.
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)

	// ConsumeOTP closes the account's open challenge when code matches,
	// marking the account verified and committing any pending email change.
	// Any mismatch fails with domain.ErrInvalidOTP and mutates nothing.
	ConsumeOTP(ctx context.Context, email string, code int) (*domain.Account, error)

	// ResendOTP reopens the registration challenge for an unverified account
	// and dispatches a fresh code.
	ResendOTP(ctx context.Context, email string) error

	// ChangePassword re-hashes and stores the new password, then dispatches a
	// confirmation message.
	ChangePassword(ctx context.Context, accountID, newPassword string) (*domain.Account, error)

	// ChangeEmail records newEmail as pending, opens an OTP challenge and
	// dispatches the code to the new address. The stored email is untouched
	// until the challenge is consumed.
	ChangeEmail(ctx context.Context, accountID, newEmail string) (*domain.Account, error)

	// Profile returns the account behind the given id.
	Profile(ctx context.Context, accountID string) (*domain.Account, error)
}
