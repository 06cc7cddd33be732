// Package loginflow drives the login page: it decides which step to show,
// submits credentials to the identity provider, applies the request's prompt
// mode and finally posts the chosen session back to the relying party.
package loginflow

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-login/accounts"
	"github.com/jrsteele09/go-auth-login/identity"
	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
	"github.com/jrsteele09/go-auth-login/oauthmodel"
	"github.com/jrsteele09/go-auth-login/toast"
	"github.com/rs/zerolog/log"
)

const invalidCredentialsMessage = "Invalid identity or password"

var emailShaped = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

// PostRedirect ends the flow with a form POST of fields to location.
// It is called with the controller locked and must not call back into it.
type PostRedirect func(location string, fields url.Values)

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(kind toast.Kind, message string) string
}

// Deps holds the collaborators of a Controller.
type Deps struct {
	Store    *accounts.MultiStore
	Provider identity.Provider
	Notifier Notifier
	Redirect PostRedirect
}

// Controller is the login state machine for one authorization request.
// It is safe for concurrent use; each submission is guarded by its own
// in-flight flag so a repeated call while one is pending does nothing.
type Controller struct {
	mu      sync.Mutex
	state   State
	started bool

	store    *accounts.MultiStore
	provider identity.Provider
	notifier Notifier
	redirect PostRedirect

	nowTime        func() time.Time
	verifyOnSelect bool
	redirectPolicy func(redirectURI string) error
}

type Option func(*Controller)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Controller) {
		c.nowTime = nowFunc
	}
}

// WithVerifyOnSelect refreshes a cached session with the provider before it
// is used. It needs a provider implementing identity.Refresher.
func WithVerifyOnSelect() Option {
	return func(c *Controller) {
		c.verifyOnSelect = true
	}
}

// WithRedirectPolicy rejects requests whose redirect_uri policy refuses.
func WithRedirectPolicy(policy func(redirectURI string) error) Option {
	return func(c *Controller) {
		c.redirectPolicy = policy
	}
}

// New decodes rawState and prepares a flow. A state that cannot be decoded
// does not fail New; the flow starts halted with State.Error set.
func New(rawState string, deps Deps, options ...Option) (*Controller, error) {
	if deps.Store == nil {
		return nil, errors.New("[loginflow.New] Store is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("[loginflow.New] Provider is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("[loginflow.New] Notifier is required")
	}
	if deps.Redirect == nil {
		return nil, errors.New("[loginflow.New] Redirect is required")
	}

	c := &Controller{
		state:    State{Page: PageAccountSelection},
		store:    deps.Store,
		provider: deps.Provider,
		notifier: deps.Notifier,
		redirect: deps.Redirect,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(c)
	}

	params, err := oauthmodel.DecodeLoginState(rawState)
	if err == nil && c.redirectPolicy != nil {
		err = c.redirectPolicy(params.RedirectURI)
	}
	if err != nil {
		log.Debug().Err(err).Msg("Login flow rejected its state parameter")
		c.state.Error = "Invalid state: " + err.Error()
		return c, nil
	}

	c.state.Params = *params
	c.state.PasswordForm.Identity = params.LoginHint
	return c, nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Start applies the prompt mode and loads the collection's auth methods.
// It runs once; later calls do nothing.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.state.Error != "" {
		c.mu.Unlock()
		return
	}
	c.started = true

	c.state.ValidAccounts = c.validAccountsLocked()
	valid := len(c.state.ValidAccounts)
	prompt := c.state.Params.Prompt

	switch prompt {
	case oauthmodel.PromptNone:
		defer c.mu.Unlock()
		switch {
		case valid == 1:
			entry := c.store.SelectByRecord(c.state.ValidAccounts[0])
			if entry == nil {
				c.fatalLocked(autherrors.ErrNoSelectedAccount)
				return
			}
			c.redirectLocked(tokenFields(entry))
		case valid > 1:
			c.redirectLocked(url.Values{oauthmodel.FieldError: {oauthmodel.ErrorCodeAccountSelectionRequired}})
		default:
			c.redirectLocked(url.Values{oauthmodel.FieldError: {oauthmodel.ErrorCodeLoginRequired}})
		}
		return
	case oauthmodel.PromptConsent:
		if valid == 1 {
			if entry := c.store.SelectByRecord(c.state.ValidAccounts[0]); entry != nil {
				c.state.AuthRecord = entry.Record
			}
			c.state.Page = PageConsent
		} else {
			c.state.Page = PageAccountSelection
		}
	case oauthmodel.PromptLogin:
		c.state.Page = PageLoginPassword
	}

	collection := c.state.Params.Collection
	c.mu.Unlock()

	methods, err := c.provider.ListAuthMethods(ctx, collection)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.fatalLocked(err)
		return
	}
	c.state.Methods = methods

	if valid == 0 || prompt == oauthmodel.PromptLogin {
		switch {
		case methods.Password.Enabled:
			c.state.Page = PageLoginPassword
		case methods.OTP.Enabled:
			c.state.Page = PageLoginOTP
		default:
			c.fatalLocked(autherrors.ErrNoAuthMethods)
		}
	}
}

// SubmitPassword authenticates with identity and password. A 401 that can
// be answered with a passcode moves to the passcode step and requests one.
func (c *Controller) SubmitPassword(ctx context.Context, identityValue, password string) {
	c.mu.Lock()
	if !c.interactiveLocked() || c.state.PasswordForm.Submitting {
		c.mu.Unlock()
		return
	}
	c.state.PasswordForm.Submitting = true
	c.state.PasswordForm.Identity = identityValue
	c.state.PasswordForm.Password = password
	collection := c.state.Params.Collection
	c.mu.Unlock()

	result, err := c.provider.AuthWithPassword(ctx, collection, identityValue, password)

	c.mu.Lock()
	requestOTP := false
	switch {
	case err == nil:
		c.loginSucceededLocked(result)
	case identity.StatusOf(err) == http.StatusUnauthorized:
		c.state.MFAID = identity.MFAIDOf(err)
		otpEnabled := c.state.Methods != nil && c.state.Methods.OTP.Enabled
		if otpEnabled && (emailShaped.MatchString(identityValue) || c.state.IsEmailIdentity()) {
			c.state.Page = PageLoginOTP
			c.state.OTPForm.Identity = identityValue
			requestOTP = true
		} else {
			c.notifyLocked(err)
		}
	case identity.StatusOf(err) == http.StatusBadRequest:
		c.notifier.Notify(toast.KindError, invalidCredentialsMessage)
	default:
		c.fatalLocked(err)
	}
	c.mu.Unlock()

	if requestOTP {
		c.requestOTP(ctx, "")
	}

	c.mu.Lock()
	c.state.PasswordForm.Submitting = false
	c.mu.Unlock()
}

// RequestOTP asks the provider to send a passcode to email. An empty email
// reuses the identity already on the passcode form.
func (c *Controller) RequestOTP(ctx context.Context, email string) {
	c.mu.Lock()
	interactive := c.interactiveLocked()
	c.mu.Unlock()
	if interactive {
		c.requestOTP(ctx, email)
	}
}

func (c *Controller) requestOTP(ctx context.Context, email string) {
	c.mu.Lock()
	if c.state.OTPForm.Requesting {
		c.mu.Unlock()
		return
	}
	c.state.OTPForm.Requesting = true
	if email != "" {
		c.state.OTPForm.Identity = email
	}
	c.state.OTPForm.ID = ""
	collection := c.state.Params.Collection
	otpIdentity := c.state.OTPForm.Identity
	c.mu.Unlock()

	challenge, err := c.provider.RequestOTP(ctx, collection, otpIdentity)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.OTPForm.Requesting = false

	switch {
	case err == nil:
		c.state.OTPForm.ID = challenge.OTPID
		c.state.OTPForm.PrevID = challenge.OTPID
	case identity.StatusOf(err) == http.StatusTooManyRequests:
		c.state.OTPForm.ID = c.state.OTPForm.PrevID
		c.notifyLocked(err)
	case identity.IsAbort(err):
		c.state.OTPForm.ID = c.state.OTPForm.PrevID
	default:
		c.fatalLocked(err)
	}
}

// SubmitOTP verifies code against the active (or previous) challenge.
func (c *Controller) SubmitOTP(ctx context.Context, code string) {
	c.mu.Lock()
	if !c.interactiveLocked() || c.state.OTPForm.Submitting {
		c.mu.Unlock()
		return
	}
	c.state.OTPForm.Submitting = true
	c.state.OTPForm.Password = code
	otpID := c.state.OTPForm.ID
	if otpID == "" {
		otpID = c.state.OTPForm.PrevID
	}
	mfaID := c.state.MFAID
	collection := c.state.Params.Collection
	c.mu.Unlock()

	result, err := c.provider.AuthWithOTP(ctx, collection, otpID, code, mfaID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.OTPForm.Submitting = false

	switch {
	case err == nil:
		c.loginSucceededLocked(result)
	case identity.StatusOf(err) == http.StatusBadRequest:
		c.notifyLocked(err)
	default:
		c.fatalLocked(err)
	}
}

// SubmitConsent posts the selected session to the relying party.
func (c *Controller) SubmitConsent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.interactiveLocked() || c.state.ConsentForm.Submitting {
		return
	}
	c.state.ConsentForm.Submitting = true
	c.consentSucceededLocked()
}

// SelectAccount continues with a cached session.
func (c *Controller) SelectAccount(ctx context.Context, record *accounts.Record) {
	c.mu.Lock()
	if !c.interactiveLocked() || c.state.Selecting {
		c.mu.Unlock()
		return
	}

	entry := c.store.Select(c.store.FindIndex(record))
	if entry == nil {
		c.notifier.Notify(toast.KindError, "The selected account is no longer available")
		c.mu.Unlock()
		return
	}

	refresher, canRefresh := c.provider.(identity.Refresher)
	if !c.verifyOnSelect || !canRefresh {
		c.loginSucceededLocked(nil)
		c.mu.Unlock()
		return
	}

	c.state.Selecting = true
	collection := c.state.Params.Collection
	c.mu.Unlock()

	result, err := refresher.AuthRefresh(ctx, collection, entry.Token)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Selecting = false

	if err != nil {
		c.store.Select(accounts.NoSelection)
		c.notifyLocked(err)
		return
	}
	if err := c.store.Save(result.Token, result.Record); err != nil {
		c.fatalLocked(err)
		return
	}
	if err := c.store.Prune(); err != nil {
		c.fatalLocked(err)
		return
	}
	c.loginSucceededLocked(nil)
}

// SwitchAccount drops the current selection and goes back to the account list.
func (c *Controller) SwitchAccount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.interactiveLocked() {
		return
	}
	c.store.Select(accounts.NoSelection)
	c.state.AuthRecord = nil
	c.state.Page = PageAccountSelection
}

// NewAccount shows the password step whatever sessions are cached.
func (c *Controller) NewAccount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.interactiveLocked() {
		return
	}
	c.state.PasswordForm.Identity = c.state.Params.LoginHint
	c.state.PasswordForm.Password = ""
	c.state.Page = PageLoginPassword
}

// Logout forgets the selected session.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.interactiveLocked() {
		return
	}
	if err := c.store.Logout(); err != nil {
		c.fatalLocked(err)
		return
	}
	c.state.AuthRecord = nil
	c.state.ValidAccounts = c.validAccountsLocked()

	switch {
	case len(c.state.ValidAccounts) > 0:
		c.state.Page = PageAccountSelection
	case c.state.Methods != nil && !c.state.Methods.Password.Enabled && c.state.Methods.OTP.Enabled:
		c.state.Page = PageLoginOTP
	default:
		c.state.Page = PageLoginPassword
	}
}

func (c *Controller) interactiveLocked() bool {
	return c.started && c.state.Error == "" && c.state.Redirect == nil
}

// loginSucceededLocked stores result, if any, as the selected session and
// moves on to consent. A login requested with prompt=login skips consent.
func (c *Controller) loginSucceededLocked(result *identity.AuthResult) {
	if result != nil {
		if err := c.store.Save(result.Token, result.Record); err != nil {
			c.fatalLocked(err)
			return
		}
	}

	c.state.AuthRecord = c.store.Record()
	c.state.ValidAccounts = c.validAccountsLocked()

	if c.state.Params.Prompt == oauthmodel.PromptLogin {
		c.consentSucceededLocked()
		return
	}
	c.state.Page = PageConsent
}

func (c *Controller) consentSucceededLocked() {
	entry := c.store.Selected()
	if entry == nil {
		c.fatalLocked(autherrors.ErrNoSelectedAccount)
		return
	}
	c.redirectLocked(tokenFields(entry))
}

func (c *Controller) redirectLocked(fields url.Values) {
	c.state.Redirect = &Redirect{Location: c.state.Params.RedirectURI, Fields: fields}
	c.redirect(c.state.Params.RedirectURI, cloneValues(fields))
}

func tokenFields(entry *accounts.CacheEntry) url.Values {
	return url.Values{
		oauthmodel.FieldToken:         {entry.Token},
		oauthmodel.FieldTokenIssuedAt: {strconv.FormatInt(entry.IssuedAt, 10)},
	}
}

// validAccountsLocked lists the cached accounts of the requested collection
// issued within max_age.
func (c *Controller) validAccountsLocked() []*accounts.Record {
	now := c.nowTime().Unix()
	maxAge := int64(c.state.Params.MaxAge / time.Second)

	valid := []*accounts.Record{}
	for _, entry := range c.store.Records() {
		if entry.Record.InCollection(c.state.Params.Collection) && entry.IssuedAt+maxAge > now {
			valid = append(valid, entry.Record)
		}
	}
	return valid
}

// notifyLocked relays err as a transient message. Aborted requests are
// dropped.
func (c *Controller) notifyLocked(err error) {
	if err == nil || identity.IsAbort(err) {
		return
	}
	c.notifier.Notify(toast.KindError, identity.ErrorMessage(err))
}

// fatalLocked halts the flow with err.
func (c *Controller) fatalLocked(err error) {
	if err == nil || identity.IsAbort(err) {
		return
	}
	msg := identity.ErrorMessage(err)
	log.Debug().Err(err).Str("collection", c.state.Params.Collection).Msg("Login flow halted")
	c.state.Error = msg
	c.notifier.Notify(toast.KindError, msg)
}
