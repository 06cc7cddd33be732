package providerfake

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-auth-login/identity"
)

var (
	_ identity.Provider  = (*FakeProvider)(nil)
	_ identity.Refresher = (*FakeProvider)(nil)
)

// Operation names counted by Calls.
const (
	OpListAuthMethods  = "ListAuthMethods"
	OpAuthWithPassword = "AuthWithPassword"
	OpRequestOTP       = "RequestOTP"
	OpAuthWithOTP      = "AuthWithOTP"
	OpAuthRefresh      = "AuthRefresh"
)

var errNotScripted = errors.New("providerfake: operation not scripted")

// FakeProvider answers with whatever the test scripted. Unscripted
// operations fail.
type FakeProvider struct {
	Methods    *identity.AuthMethods
	MethodsErr error

	PasswordFunc   func(identityValue, password string) (*identity.AuthResult, error)
	RequestOTPFunc func(email string) (*identity.OTPChallenge, error)
	OTPFunc        func(otpID, code, mfaID string) (*identity.AuthResult, error)
	RefreshFunc    func(token string) (*identity.AuthResult, error)

	// Entered receives the operation name as each call starts, if set.
	Entered chan string
	// Hold, if set, blocks every call until it is closed or receives.
	Hold chan struct{}

	lock  sync.Mutex
	calls map[string]int
	args  map[string][]string
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		calls: make(map[string]int),
		args:  make(map[string][]string),
	}
}

// PasswordAndOTP returns methods with both password (by email) and OTP on.
func PasswordAndOTP() *identity.AuthMethods {
	return &identity.AuthMethods{
		Password: identity.PasswordMethod{Enabled: true, IdentityFields: []string{"email"}},
		OTP:      identity.OTPMethod{Enabled: true, Duration: 180},
	}
}

// Calls returns how many times op was invoked.
func (p *FakeProvider) Calls(op string) int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.calls[op]
}

// LastArgs returns the arguments (after ctx and collection) of op's most
// recent call.
func (p *FakeProvider) LastArgs(op string) []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string(nil), p.args[op]...)
}

func (p *FakeProvider) enter(ctx context.Context, op string, args ...string) error {
	p.lock.Lock()
	if p.calls == nil {
		p.calls = make(map[string]int)
		p.args = make(map[string][]string)
	}
	p.calls[op]++
	p.args[op] = args
	p.lock.Unlock()

	if p.Entered != nil {
		p.Entered <- op
	}
	if p.Hold != nil {
		select {
		case <-p.Hold:
		case <-ctx.Done():
			return &identity.ResponseError{Err: ctx.Err(), IsAbort: true}
		}
	}
	return nil
}

func (p *FakeProvider) ListAuthMethods(ctx context.Context, collection string) (*identity.AuthMethods, error) {
	if err := p.enter(ctx, OpListAuthMethods); err != nil {
		return nil, err
	}
	if p.MethodsErr != nil {
		return nil, p.MethodsErr
	}
	if p.Methods == nil {
		return nil, errNotScripted
	}
	methods := *p.Methods
	return &methods, nil
}

func (p *FakeProvider) AuthWithPassword(ctx context.Context, collection, identityValue, password string) (*identity.AuthResult, error) {
	if err := p.enter(ctx, OpAuthWithPassword, identityValue, password); err != nil {
		return nil, err
	}
	if p.PasswordFunc == nil {
		return nil, errNotScripted
	}
	return p.PasswordFunc(identityValue, password)
}

func (p *FakeProvider) RequestOTP(ctx context.Context, collection, email string) (*identity.OTPChallenge, error) {
	if err := p.enter(ctx, OpRequestOTP, email); err != nil {
		return nil, err
	}
	if p.RequestOTPFunc == nil {
		return nil, errNotScripted
	}
	return p.RequestOTPFunc(email)
}

func (p *FakeProvider) AuthWithOTP(ctx context.Context, collection, otpID, code, mfaID string) (*identity.AuthResult, error) {
	if err := p.enter(ctx, OpAuthWithOTP, otpID, code, mfaID); err != nil {
		return nil, err
	}
	if p.OTPFunc == nil {
		return nil, errNotScripted
	}
	return p.OTPFunc(otpID, code, mfaID)
}

func (p *FakeProvider) AuthRefresh(ctx context.Context, collection, token string) (*identity.AuthResult, error) {
	if err := p.enter(ctx, OpAuthRefresh, token); err != nil {
		return nil, err
	}
	if p.RefreshFunc == nil {
		return nil, errNotScripted
	}
	return p.RefreshFunc(token)
}
