package domain

import "time"

// Account models a backoffice user identity.
//
// The OTP pair (OTP, OTPExpiresAt) is only populated while a verification
// challenge is open; a consumed or expired code is cleared and must never
// validate again. PendingEmail holds a requested address change until the
// matching OTP is consumed — Email itself is only rewritten at that point.
// Version implements optimistic concurrency: every persisted mutation of a
// record must carry the version it was read at.
type Account struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PendingEmail string     `json:"pending_email,omitempty"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Address      string     `json:"address,omitempty"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
	OTP          *int       `json:"-"`
	OTPExpiresAt time.Time  `json:"-"`
	IsVerified   bool       `json:"is_verified"`
	AccessToken  string     `json:"-"`
	Version      int64      `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasPendingOTP reports whether a challenge is open and not yet expired.
func (a *Account) HasPendingOTP(now time.Time) bool {
	return a.OTP != nil && now.Before(a.OTPExpiresAt)
}

// OTPMatches reports whether code can consume the open challenge. A missing
// or expired challenge never matches, regardless of the supplied code.
func (a *Account) OTPMatches(code int, now time.Time) bool {
	return a.HasPendingOTP(now) && *a.OTP == code
}

// ClearOTP closes the challenge. Idempotent.
func (a *Account) ClearOTP() {
	a.OTP = nil
	a.OTPExpiresAt = time.Time{}
}
