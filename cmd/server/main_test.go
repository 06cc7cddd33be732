package main

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-auth-login/internal/config"
	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestRedirectGuardDefaultsToBaseURL(t *testing.T) {
	t.Setenv("BASE_URL", "https://login.example.com/")
	t.Setenv("ISSUER_URL", "")

	c, err := config.New()
	require.NoError(t, err)

	guard, err := redirectGuard(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, guard.Allow("https://login.example.com/api/oauth2/auth?client_id=abc"))
	require.ErrorIs(t, guard.Allow("https://evil.example/collect"), autherrors.ErrRedirectNotAllowed)
}
