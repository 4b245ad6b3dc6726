package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/storehub/admin-identity/internal/api/metrics"
	"github.com/storehub/admin-identity/internal/core/domain"
	"github.com/storehub/admin-identity/internal/core/ports"
)

const defaultOTPTTL = 15 * time.Minute

// AccountService implements the account lifecycle: registration, login, OTP
// verification and the OTP-gated profile mutations.
type AccountService struct {
	repo      ports.AccountRepository
	mailer    ports.MailDispatcher
	jwtSecret string
	tokenTTL  time.Duration
	otpTTL    time.Duration
	log       zerolog.Logger
}

func NewAccountService(
	repo ports.AccountRepository,
	mailer ports.MailDispatcher,
	jwtSecret string,
	tokenTTL, otpTTL time.Duration,
	log zerolog.Logger,
) *AccountService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if otpTTL <= 0 {
		otpTTL = defaultOTPTTL
	}
	return &AccountService{
		repo:      repo,
		mailer:    mailer,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		otpTTL:    otpTTL,
		log:       log,
	}
}

// Register creates an unverified account. The raw password is hashed before
// any persistence attempt — no code path may store it as given. The OTP
// challenge is opened as part of the same insert, and the registration code
// is dispatched only after the record is durably created.
func (s *AccountService) Register(ctx context.Context, input ports.RegisterInput) (*domain.Account, error) {
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	role := domain.RoleAdminEmployee
	if input.Role != "" {
		r, ok := domain.FindRole(input.Role)
		if !ok {
			return nil, domain.ErrRoleNotFound
		}
		role = r
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	otp := generateOTP()
	account := &domain.Account{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         role,
		Address:      input.Address,
		PhoneNumber:  input.PhoneNumber,
		OTP:          &otp,
		OTPExpiresAt: now.Add(s.otpTTL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", created.ID).Str("role", string(role)).Msg("account registered")
	metrics.AccountsRegisteredTotal.WithLabelValues(string(role)).Inc()

	// Enqueue failure is non-fatal: the account exists either way and the
	// code can be re-sent.
	s.mailer.SendRegistrationOTP(ctx, created, otp)

	return created, nil
}

// Login verifies credentials and issues a session token. The token is also
// stored on the record, best-effort: losing the write race against another
// mutation does not invalidate the freshly signed token.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := signToken(account, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	account.AccessToken = token
	account.UpdatedAt = time.Now().UTC()
	if updated, err := s.repo.Update(ctx, account); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to store access token")
	} else {
		account = updated
	}

	return token, account, nil
}

// ConsumeOTP closes the open challenge. On success the account becomes
// verified, the code is cleared, and a pending email change is committed —
// all in one versioned write, so two racing consumers cannot both succeed.
func (s *AccountService) ConsumeOTP(ctx context.Context, email string, code int) (*domain.Account, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			return nil, domain.ErrInvalidOTP
		}
		return nil, err
	}

	if !account.OTPMatches(code, time.Now().UTC()) {
		metrics.OTPConsumedTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidOTP
	}

	account.IsVerified = true
	account.ClearOTP()
	if account.PendingEmail != "" {
		account.Email = account.PendingEmail
		account.PendingEmail = ""
	}
	account.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		// A lost race means someone else already consumed or replaced the
		// code; either way this code no longer validates.
		if err == domain.ErrConcurrentUpdate {
			metrics.OTPConsumedTotal.WithLabelValues("invalid").Inc()
			return nil, domain.ErrInvalidOTP
		}
		return nil, err
	}

	metrics.OTPConsumedTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("account_id", updated.ID).Msg("otp consumed, account verified")
	return updated, nil
}

// ResendOTP reopens the registration challenge for an unverified account and
// dispatches a fresh code. A verified account has no challenge to reopen.
func (s *AccountService) ResendOTP(ctx context.Context, email string) error {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			return domain.ErrInvalidOTP
		}
		return err
	}
	if account.IsVerified {
		return domain.ErrInvalidOTP
	}

	otp := generateOTP()
	account.OTP = &otp
	account.OTPExpiresAt = time.Now().UTC().Add(s.otpTTL)
	account.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return err
	}

	s.mailer.SendRegistrationOTP(ctx, updated, otp)
	return nil
}

// ChangePassword re-hashes and stores the new password, then dispatches a
// confirmation message. The password change stands even when the confirmation
// cannot be queued.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, newPassword string) (*domain.Account, error) {
	if newPassword == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account.PasswordHash = string(hash)
	account.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", updated.ID).Msg("password changed")
	s.mailer.SendPasswordChanged(ctx, updated)

	return updated, nil
}

// ChangeEmail records the new address as pending and opens an OTP challenge.
// The stored email only changes when that challenge is consumed; the code is
// dispatched to the new address, proving the caller controls it.
func (s *AccountService) ChangeEmail(ctx context.Context, accountID, newEmail string) (*domain.Account, error) {
	if newEmail == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if newEmail == account.Email {
		return account, nil
	}

	// Early uniqueness check; the unique index still guards the commit.
	if _, err := s.repo.FindByEmail(ctx, newEmail); err == nil {
		return nil, domain.ErrAccountExists
	} else if err != domain.ErrAccountNotFound {
		return nil, err
	}

	otp := generateOTP()
	account.PendingEmail = newEmail
	account.OTP = &otp
	account.OTPExpiresAt = time.Now().UTC().Add(s.otpTTL)
	account.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", updated.ID).Msg("email change requested")
	s.mailer.SendEmailUpdateOTP(ctx, updated, otp, newEmail)

	return updated, nil
}

// Profile returns the account behind the given id.
func (s *AccountService) Profile(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.repo.FindByID(ctx, accountID)
}

// generateOTP returns a uniformly random six-digit code.
func generateOTP() int {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// fallback: derive from the clock
		return int(time.Now().UnixNano()%900000) + 100000
	}
	return int(n.Int64()) + 100000
}
