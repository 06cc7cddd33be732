// Package identity is the contract of the identity provider the login flow
// authenticates against: which methods a collection offers, password and
// one-time-passcode authentication, and the failures those calls return.
package identity

import (
	"context"

	"github.com/jrsteele09/go-auth-login/accounts"
)

// PasswordMethod describes password authentication for a collection.
type PasswordMethod struct {
	Enabled        bool     `json:"enabled"`
	IdentityFields []string `json:"identityFields"`
}

// OTPMethod describes one-time-passcode authentication for a collection.
type OTPMethod struct {
	Enabled  bool `json:"enabled"`
	Duration int  `json:"duration,omitempty"`
}

// AuthMethods lists the authentication methods a collection supports.
type AuthMethods struct {
	Password PasswordMethod `json:"password"`
	OTP      OTPMethod      `json:"otp"`
}

// AuthResult is a successful authentication.
type AuthResult struct {
	Token  string           `json:"token"`
	Record *accounts.Record `json:"record"`
}

// OTPChallenge is the handle of an issued one-time passcode.
type OTPChallenge struct {
	OTPID string `json:"otpId"`
}

// Provider is the identity provider API.
type Provider interface {
	ListAuthMethods(ctx context.Context, collection string) (*AuthMethods, error)
	AuthWithPassword(ctx context.Context, collection, identity, password string) (*AuthResult, error)
	RequestOTP(ctx context.Context, collection, email string) (*OTPChallenge, error)
	// AuthWithOTP verifies code for otpID. mfaID is the challenge returned by
	// a failed password attempt and may be empty.
	AuthWithOTP(ctx context.Context, collection, otpID, code, mfaID string) (*AuthResult, error)
}

// Refresher is implemented by providers that can confirm a cached session
// is still accepted and issue a fresh token for it.
type Refresher interface {
	AuthRefresh(ctx context.Context, collection, token string) (*AuthResult, error)
}
