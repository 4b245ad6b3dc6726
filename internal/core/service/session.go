package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storehub/admin-identity/internal/core/domain"
	"github.com/storehub/admin-identity/internal/core/ports"
)

// SessionResolver validates HS256 session tokens and loads the account they
// reference. The account is re-read on every resolution, so a token for a
// deleted account denies as unauthenticated rather than forbidden.
type SessionResolver struct {
	repo      ports.AccountRepository
	jwtSecret string
}

func NewSessionResolver(repo ports.AccountRepository, jwtSecret string) *SessionResolver {
	return &SessionResolver{repo: repo, jwtSecret: jwtSecret}
}

func (r *SessionResolver) Resolve(ctx context.Context, token string) (*domain.Account, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(r.jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.ErrUnauthenticated
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, domain.ErrUnauthenticated
	}

	account, err := r.repo.FindByID(ctx, sub)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return account, nil
}

// signToken issues a session token for the account. Shared by the auth
// service; kept here so token format and resolution stay in one file.
func signToken(account *domain.Account, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  account.ID,
		"role": string(account.Role),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}
