package loginflow

import (
	"net/url"

	"github.com/jrsteele09/go-auth-login/accounts"
	"github.com/jrsteele09/go-auth-login/identity"
	"github.com/jrsteele09/go-auth-login/oauthmodel"
)

// Page is the interactive step the flow is on.
type Page string

const (
	PageAccountSelection Page = "account-selection"
	PageLoginPassword    Page = "login-password"
	PageLoginOTP         Page = "login-otp"
	PageConsent          Page = "consent"
)

type PasswordForm struct {
	Submitting bool
	Identity   string
	Password   string
}

// OTPForm tracks the passcode step. ID is the active challenge; PrevID is
// the last challenge the provider issued and is used when ID is empty.
type OTPForm struct {
	Requesting bool
	Submitting bool
	ID         string
	PrevID     string
	Identity   string
	Password   string
}

type ConsentForm struct {
	Submitting bool
}

// Redirect is the terminal POST the flow ended with.
type Redirect struct {
	Location string
	Fields   url.Values
}

// State is everything the login page renders from.
type State struct {
	Page   Page
	Params oauthmodel.LoginParameters

	PasswordForm PasswordForm
	OTPForm      OTPForm
	ConsentForm  ConsentForm
	Selecting    bool

	// MFAID is the second-factor challenge of a failed password attempt.
	MFAID   string
	Methods *identity.AuthMethods

	// AuthRecord is the account the consent page is for.
	AuthRecord *accounts.Record
	// ValidAccounts are the cached sessions usable for this request.
	ValidAccounts []*accounts.Record

	// Error halts the flow. Once set no page is shown.
	Error string

	// Redirect is set once the flow has ended.
	Redirect *Redirect
}

func (s State) ready() bool {
	return s.Error == "" && s.Methods != nil && s.Redirect == nil
}

func (s State) ShowAccountSelection() bool {
	return s.ready() && s.Page == PageAccountSelection
}

func (s State) ShowLoginPassword() bool {
	return s.ready() && s.Page == PageLoginPassword
}

// ShowLoginRequestOTP is the passcode page before a challenge was issued.
func (s State) ShowLoginRequestOTP() bool {
	return s.ready() && s.Page == PageLoginOTP && s.OTPForm.ID == ""
}

// ShowLoginOTP is the passcode page with an active challenge.
func (s State) ShowLoginOTP() bool {
	return s.ready() && s.Page == PageLoginOTP && s.OTPForm.ID != ""
}

func (s State) ShowConsent() bool {
	return s.ready() && s.Page == PageConsent
}

// IsEmailIdentity reports whether password logins are identified by email
// only.
func (s State) IsEmailIdentity() bool {
	return s.Methods != nil &&
		s.Methods.Password.Enabled &&
		len(s.Methods.Password.IdentityFields) == 1 &&
		s.Methods.Password.IdentityFields[0] == "email"
}

func (s State) clone() State {
	out := s
	if s.Methods != nil {
		methods := *s.Methods
		methods.Password.IdentityFields = append([]string(nil), s.Methods.Password.IdentityFields...)
		out.Methods = &methods
	}
	if s.AuthRecord != nil {
		record := *s.AuthRecord
		out.AuthRecord = &record
	}
	out.ValidAccounts = make([]*accounts.Record, 0, len(s.ValidAccounts))
	for _, r := range s.ValidAccounts {
		record := *r
		out.ValidAccounts = append(out.ValidAccounts, &record)
	}
	out.Params.RequestedScopes = append([]string(nil), s.Params.RequestedScopes...)
	if s.Redirect != nil {
		out.Redirect = &Redirect{Location: s.Redirect.Location, Fields: cloneValues(s.Redirect.Fields)}
	}
	return out
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
