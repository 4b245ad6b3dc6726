package ports

import (
	"context"

	"github.com/storehub/admin-identity/internal/core/domain"
)

// SessionResolver turns a bearer token into the account it belongs to.
// Any failure — malformed token, bad signature, expiry, or an account that no
// longer exists — yields domain.ErrUnauthenticated.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Account, error)
}
