package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/storehub/admin-identity/internal/core/domain"
	"github.com/storehub/admin-identity/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository with optimistic versioning
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	byID      map[string]*domain.Account
	nextID    int
	updateErr error // if set, Update returns this error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{byID: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.OTP != nil {
		otp := *a.OTP
		clone.OTP = &otp
	}
	return &clone
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	for _, existing := range r.byID {
		if existing.Email == a.Email {
			return nil, domain.ErrAccountExists
		}
		if a.PhoneNumber != "" && existing.PhoneNumber == a.PhoneNumber {
			return nil, domain.ErrAccountExists
		}
	}
	r.nextID++
	clone := cloneAccount(a)
	clone.ID = fmt.Sprintf("acc_%d", r.nextID)
	clone.Version = 1
	r.byID[clone.ID] = cloneAccount(clone)
	return clone, nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range r.byID {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

// Update mirrors the Mongo implementation: the write only lands when the
// stored version matches, and it bumps the version.
func (r *stubAccountRepo) Update(_ context.Context, a *domain.Account) (*domain.Account, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	stored, ok := r.byID[a.ID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if stored.Version != a.Version {
		return nil, domain.ErrConcurrentUpdate
	}
	clone := cloneAccount(a)
	clone.Version = a.Version + 1
	r.byID[a.ID] = cloneAccount(clone)
	return clone, nil
}

// ---------------------------------------------------------------------------
// Recording mail dispatcher
// ---------------------------------------------------------------------------

type mailCall struct {
	kind      string
	accountID string
	email     string
	otp       int
}

type recordingMailer struct {
	calls   []mailCall
	failAll bool // simulate enqueue failure: record nothing, report false
}

func (m *recordingMailer) SendRegistrationOTP(_ context.Context, a *domain.Account, otp int) bool {
	if m.failAll {
		return false
	}
	m.calls = append(m.calls, mailCall{kind: ports.JobRegistrationOTP, accountID: a.ID, email: a.Email, otp: otp})
	return true
}

func (m *recordingMailer) SendEmailUpdateOTP(_ context.Context, a *domain.Account, otp int, newEmail string) bool {
	if m.failAll {
		return false
	}
	m.calls = append(m.calls, mailCall{kind: ports.JobEmailUpdateOTP, accountID: a.ID, email: newEmail, otp: otp})
	return true
}

func (m *recordingMailer) SendPasswordChanged(_ context.Context, a *domain.Account) bool {
	if m.failAll {
		return false
	}
	m.calls = append(m.calls, mailCall{kind: ports.JobPasswordChangedMail, accountID: a.ID, email: a.Email})
	return true
}

func newTestService(repo *stubAccountRepo, mailer *recordingMailer, otpTTL time.Duration) *AccountService {
	return NewAccountService(repo, mailer, "secret", time.Hour, otpTTL, zerolog.Nop())
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestRegister_HashesPasswordAndDispatchesOTP(t *testing.T) {
	repo := newStubAccountRepo()
	mailer := &recordingMailer{}
	svc := newTestService(repo, mailer, time.Hour)

	account, err := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if account.PasswordHash == "" || account.PasswordHash == "secret1!" {
		t.Fatalf("password must be stored hashed, got %q", account.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("secret1!")); err != nil {
		t.Fatalf("stored hash does not verify the raw password: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("other")) == nil {
		t.Fatalf("hash must not verify a different password")
	}

	if account.Role != domain.RoleAdminEmployee {
		t.Fatalf("expected default role AdminEmployee, got %s", account.Role)
	}
	if account.IsVerified {
		t.Fatalf("new account must not be verified")
	}
	if account.OTP == nil {
		t.Fatalf("expected open OTP challenge")
	}
	if *account.OTP < 100000 || *account.OTP > 999999 {
		t.Fatalf("expected six-digit code, got %d", *account.OTP)
	}

	if len(mailer.calls) != 1 {
		t.Fatalf("expected one mail job, got %d", len(mailer.calls))
	}
	job := mailer.calls[0]
	if job.kind != ports.JobRegistrationOTP || job.accountID != account.ID || job.otp != *account.OTP {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestRegister_UnknownRole(t *testing.T) {
	svc := newTestService(newStubAccountRepo(), &recordingMailer{}, time.Hour)

	if _, err := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Bob", Email: "b@x.com", Password: "secret1!", Role: "SuperUser",
	}); err != domain.ErrRoleNotFound {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestService(repo, &recordingMailer{}, time.Hour)

	input := ports.RegisterInput{Name: "Bob", Email: "b@x.com", Password: "secret1!"}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register(context.Background(), input); err != domain.ErrAccountExists {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestRegister_SucceedsWhenEnqueueFails(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestService(repo, &recordingMailer{failAll: true}, time.Hour)

	account, err := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Carol", Email: "c@x.com", Password: "secret1!",
	})
	if err != nil {
		t.Fatalf("register must succeed despite enqueue failure: %v", err)
	}
	if _, err := repo.FindByID(context.Background(), account.ID); err != nil {
		t.Fatalf("account must be persisted: %v", err)
	}
}

// ---------------------------------------------------------------------------
// OTP consumption
// ---------------------------------------------------------------------------

func TestConsumeOTP_SucceedsExactlyOnce(t *testing.T) {
	repo := newStubAccountRepo()
	mailer := &recordingMailer{}
	svc := newTestService(repo, mailer, time.Hour)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})
	code := *account.OTP

	verified, err := svc.ConsumeOTP(context.Background(), "a@x.com", code)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if !verified.IsVerified {
		t.Fatalf("expected account to be verified")
	}
	if verified.OTP != nil {
		t.Fatalf("expected OTP to be cleared")
	}

	// same code a second time must fail
	if _, err := svc.ConsumeOTP(context.Background(), "a@x.com", code); err != domain.ErrInvalidOTP {
		t.Fatalf("expected ErrInvalidOTP on replay, got %v", err)
	}

	stored, _ := repo.FindByEmail(context.Background(), "a@x.com")
	if !stored.IsVerified {
		t.Fatalf("verified flag must not revert")
	}
}

func TestConsumeOTP_WrongCode(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestService(repo, &recordingMailer{}, time.Hour)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})

	wrong := *account.OTP + 1
	if _, err := svc.ConsumeOTP(context.Background(), "a@x.com", wrong); err != domain.ErrInvalidOTP {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}

	stored, _ := repo.FindByEmail(context.Background(), "a@x.com")
	if stored.IsVerified {
		t.Fatalf("failed consume must not set verified")
	}
	if stored.OTP == nil {
		t.Fatalf("failed consume must not clear the challenge")
	}
}

func TestConsumeOTP_UnknownAccount(t *testing.T) {
	svc := newTestService(newStubAccountRepo(), &recordingMailer{}, time.Hour)

	if _, err := svc.ConsumeOTP(context.Background(), "ghost@x.com", 123456); err != domain.ErrInvalidOTP {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}
}

func TestConsumeOTP_ExpiredCode(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestService(repo, &recordingMailer{}, time.Nanosecond)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})
	time.Sleep(time.Millisecond)

	if _, err := svc.ConsumeOTP(context.Background(), "a@x.com", *account.OTP); err != domain.ErrInvalidOTP {
		t.Fatalf("expected ErrInvalidOTP for expired code, got %v", err)
	}
}

func TestConsumeOTP_LostRaceReportsInvalidOTP(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestService(repo, &recordingMailer{}, time.Hour)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})

	repo.updateErr = domain.ErrConcurrentUpdate
	if _, err := svc.ConsumeOTP(context.Background(), "a@x.com", *account.OTP); err != domain.ErrInvalidOTP {
		t.Fatalf("expected ErrInvalidOTP on lost race, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Resend
// ---------------------------------------------------------------------------

func TestResendOTP_ReissuesForUnverified(t *testing.T) {
	repo := newStubAccountRepo()
	mailer := &recordingMailer{}
	svc := newTestService(repo, mailer, time.Hour)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})
	first := *account.OTP

	if err := svc.ResendOTP(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if len(mailer.calls) != 2 {
		t.Fatalf("expected two registration jobs, got %d", len(mailer.calls))
	}

	stored, _ := repo.FindByEmail(context.Background(), "a@x.com")
	if stored.OTP == nil {
		t.Fatalf("expected a fresh challenge")
	}
	// the old code is replaced; it must no longer validate unless it collides
	if *stored.OTP != mailer.calls[1].otp {
		t.Fatalf("dispatched code %d does not match stored %d", mailer.calls[1].otp, *stored.OTP)
	}
	_ = first
}

func TestResendOTP_VerifiedAccount(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestService(repo, &recordingMailer{}, time.Hour)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})
	if _, err := svc.ConsumeOTP(context.Background(), "a@x.com", *account.OTP); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	if err := svc.ResendOTP(context.Background(), "a@x.com"); err != domain.ErrInvalidOTP {
		t.Fatalf("expected ErrInvalidOTP for verified account, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Password change
// ---------------------------------------------------------------------------

func TestChangePassword_RehashesAndDispatches(t *testing.T) {
	repo := newStubAccountRepo()
	mailer := &recordingMailer{}
	svc := newTestService(repo, mailer, time.Hour)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})
	oldHash := account.PasswordHash

	updated, err := svc.ChangePassword(context.Background(), account.ID, "newpass9!")
	if err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if updated.PasswordHash == oldHash {
		t.Fatalf("expected a new hash")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpass9!")); err != nil {
		t.Fatalf("new hash does not verify: %v", err)
	}

	last := mailer.calls[len(mailer.calls)-1]
	if last.kind != ports.JobPasswordChangedMail || last.accountID != account.ID {
		t.Fatalf("unexpected confirmation job: %+v", last)
	}
}

func TestChangePassword_SucceedsWhenEnqueueFails(t *testing.T) {
	repo := newStubAccountRepo()
	mailer := &recordingMailer{}
	svc := newTestService(repo, mailer, time.Hour)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})

	mailer.failAll = true
	updated, err := svc.ChangePassword(context.Background(), account.ID, "newpass9!")
	if err != nil {
		t.Fatalf("password change must not fail on enqueue failure: %v", err)
	}

	stored, _ := repo.FindByID(context.Background(), account.ID)
	if stored.PasswordHash != updated.PasswordHash {
		t.Fatalf("mutation must be persisted despite enqueue failure")
	}
}

// ---------------------------------------------------------------------------
// Email change
// ---------------------------------------------------------------------------

func TestChangeEmail_PendingUntilConsumed(t *testing.T) {
	repo := newStubAccountRepo()
	mailer := &recordingMailer{}
	svc := newTestService(repo, mailer, time.Hour)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})

	updated, err := svc.ChangeEmail(context.Background(), account.ID, "new@x.com")
	if err != nil {
		t.Fatalf("change email failed: %v", err)
	}
	if updated.Email != "a@x.com" {
		t.Fatalf("email must not change before OTP consumption, got %s", updated.Email)
	}
	if updated.PendingEmail != "new@x.com" {
		t.Fatalf("expected pending email, got %q", updated.PendingEmail)
	}

	// the code goes to the new address
	last := mailer.calls[len(mailer.calls)-1]
	if last.kind != ports.JobEmailUpdateOTP || last.email != "new@x.com" {
		t.Fatalf("unexpected job: %+v", last)
	}

	// consuming commits the pending address
	verified, err := svc.ConsumeOTP(context.Background(), "a@x.com", last.otp)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if verified.Email != "new@x.com" || verified.PendingEmail != "" {
		t.Fatalf("expected committed email, got %s pending=%q", verified.Email, verified.PendingEmail)
	}
	if _, err := repo.FindByEmail(context.Background(), "new@x.com"); err != nil {
		t.Fatalf("account not reachable under new email: %v", err)
	}
}

func TestChangeEmail_TakenAddress(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestService(repo, &recordingMailer{}, time.Hour)

	a, _ := svc.Register(context.Background(), ports.RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1!"})
	_, _ = svc.Register(context.Background(), ports.RegisterInput{Name: "B", Email: "b@x.com", Password: "secret1!"})

	if _, err := svc.ChangeEmail(context.Background(), a.ID, "b@x.com"); err != domain.ErrAccountExists {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestChangeEmail_LostRacePropagates(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestService(repo, &recordingMailer{}, time.Hour)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})

	repo.updateErr = domain.ErrConcurrentUpdate
	if _, err := svc.ChangeEmail(context.Background(), account.ID, "new@x.com"); err != domain.ErrConcurrentUpdate {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
}

// Serialized email changes: the later request replaces the pending pair, so
// the record always holds one consistent OTP/new-email combination.
func TestChangeEmail_SecondRequestReplacesPending(t *testing.T) {
	repo := newStubAccountRepo()
	mailer := &recordingMailer{}
	svc := newTestService(repo, mailer, time.Hour)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "a@x.com", Password: "secret1!",
	})

	_, _ = svc.ChangeEmail(context.Background(), account.ID, "first@x.com")
	firstJob := mailer.calls[len(mailer.calls)-1]
	_, _ = svc.ChangeEmail(context.Background(), account.ID, "second@x.com")
	secondJob := mailer.calls[len(mailer.calls)-1]

	stored, _ := repo.FindByID(context.Background(), account.ID)
	if stored.PendingEmail != "second@x.com" {
		t.Fatalf("expected second request to win, pending=%q", stored.PendingEmail)
	}
	if *stored.OTP != secondJob.otp {
		t.Fatalf("stored code must match the second dispatch")
	}

	// the superseded code must not commit the first address
	if firstJob.otp != secondJob.otp {
		if _, err := svc.ConsumeOTP(context.Background(), "a@x.com", firstJob.otp); err != domain.ErrInvalidOTP {
			t.Fatalf("superseded code must be invalid, got %v", err)
		}
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLogin_IssuesToken(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestService(repo, &recordingMailer{}, time.Hour)

	account, _ := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Carol", Email: "c@x.com", Password: "s3cret99", Role: "Administrator",
	})

	token, logged, err := svc.Login(context.Background(), "c@x.com", "s3cret99")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" || logged.ID != account.ID {
		t.Fatalf("unexpected login result")
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["sub"] != account.ID || claims["role"] != "Administrator" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	stored, _ := repo.FindByID(context.Background(), account.ID)
	if stored.AccessToken != token {
		t.Fatalf("token not stored on the record")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestService(repo, &recordingMailer{}, time.Hour)

	_, _ = svc.Register(context.Background(), ports.RegisterInput{
		Name: "Carol", Email: "c@x.com", Password: "s3cret99",
	})

	if _, _, err := svc.Login(context.Background(), "c@x.com", "wrong"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "ghost@x.com", "s3cret99"); err != domain.ErrInvalidCredentials {
		t.Fatalf("unknown email must report invalid credentials, got %v", err)
	}
}
