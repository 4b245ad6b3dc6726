package ports

import (
	"context"

	"github.com/storehub/admin-identity/internal/core/domain"
)

// AccountRepository defines persistence operations for accounts.
//
// Uniqueness of email, phone_number and avatar is enforced by the store and
// surfaced as domain.ErrAccountExists. Update applies optimistic concurrency:
// the write only lands when the stored version still equals account.Version,
// otherwise domain.ErrConcurrentUpdate is returned and nothing changes.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) (*domain.Account, error)
}
