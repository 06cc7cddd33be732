package loginflow_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-login/accounts"
	"github.com/jrsteele09/go-auth-login/identity"
	"github.com/jrsteele09/go-auth-login/loginflow"
	"github.com/jrsteele09/go-auth-login/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestUserLabels(t *testing.T) {
	require.Equal(t, "Unknown Account", loginflow.UserLabel(nil))
	require.Equal(t, "Ann (ann@example.com)", loginflow.UserLabel(&accounts.Record{ID: "1", Name: "Ann", Email: "ann@example.com"}))
	require.Equal(t, "Ann (1)", loginflow.UserLabel(&accounts.Record{ID: "1", Name: "Ann"}))
	require.Equal(t, "ann@example.com", loginflow.UserLabel(&accounts.Record{ID: "1", Email: "ann@example.com"}))
	require.Equal(t, "1", loginflow.UserLabel(&accounts.Record{ID: "1"}))

	require.Equal(t, "Unknown Account", loginflow.UserLabelShort(nil))
	require.Equal(t, "Ann", loginflow.UserLabelShort(&accounts.Record{ID: "1", Name: "Ann", Email: "ann@example.com"}))
	require.Equal(t, "ann@example.com", loginflow.UserLabelShort(&accounts.Record{ID: "1", Email: "ann@example.com"}))
	require.Equal(t, "1", loginflow.UserLabelShort(&accounts.Record{ID: "1"}))
}

func TestStateLabels(t *testing.T) {
	s := loginflow.State{Params: oauthmodel.LoginParameters{ClientID: "0123456789abcdef"}}
	require.Equal(t, "Identity", s.IdentityLabel())
	require.Equal(t, "Unnamed OAuth2 Client (01234567...)", s.ClientNameLabel())
	require.Equal(t, "Authorize Third-Party App", s.ConsentButtonLabel())

	s.Params.ClientName = "Demo"
	s.Methods = &identity.AuthMethods{Password: identity.PasswordMethod{Enabled: true, IdentityFields: []string{"email", "username"}}}
	require.Equal(t, "Email or username", s.IdentityLabel())
	require.Equal(t, "Demo", s.ClientNameLabel())
	require.Equal(t, "Authorize Demo", s.ConsentButtonLabel())

	s.Params = oauthmodel.LoginParameters{ClientID: "abc"}
	require.Equal(t, "Unnamed OAuth2 Client (abc...)", s.ClientNameLabel())
}

func TestSentenize(t *testing.T) {
	require.Equal(t, "Hello world.", loginflow.Sentenize("  hello_world ", true))
	require.Equal(t, "Done!", loginflow.Sentenize("done!", true))
	require.Equal(t, "Ünique", loginflow.Sentenize("ünique", false))
	require.Empty(t, loginflow.Sentenize("   ", true))
}

func TestPagePredicates(t *testing.T) {
	s := loginflow.State{Page: loginflow.PageLoginOTP}
	require.False(t, s.ShowLoginRequestOTP(), "hidden until methods load")

	s.Methods = &identity.AuthMethods{OTP: identity.OTPMethod{Enabled: true}}
	require.True(t, s.ShowLoginRequestOTP())
	require.False(t, s.ShowLoginOTP())

	s.OTPForm.ID = "otp"
	require.True(t, s.ShowLoginOTP())
	require.False(t, s.ShowLoginRequestOTP())
	require.False(t, s.IsEmailIdentity())

	s.Error = "boom"
	require.False(t, s.ShowLoginOTP())
}

func TestPredicatesOnStateValues(t *testing.T) {
	consent := func() loginflow.State {
		return loginflow.State{
			Page:    loginflow.PageConsent,
			Methods: &identity.AuthMethods{Password: identity.PasswordMethod{Enabled: true, IdentityFields: []string{"email"}}},
		}
	}

	require.True(t, consent().ShowConsent())
	require.False(t, consent().ShowAccountSelection())
	require.False(t, consent().ShowLoginPassword())
	require.True(t, consent().IsEmailIdentity())
	require.Equal(t, "Email", consent().IdentityLabel())
	require.Equal(t, "Authorize Third-Party App", consent().ConsentButtonLabel())
}
