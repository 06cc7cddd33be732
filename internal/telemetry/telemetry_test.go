package telemetry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/go-auth-login/internal/telemetry"
	"github.com/stretchr/testify/require"
)

func TestNew_NoEndpoint(t *testing.T) {
	p, err := telemetry.New(context.Background(), "", "test-service")
	require.NoError(t, err)
	require.NotNil(t, p.Tracer())

	_, span := p.Tracer().Start(context.Background(), "noop")
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestNilProvider(t *testing.T) {
	var p *telemetry.Provider
	require.NotNil(t, p.Tracer())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_ExportsOnShutdown(t *testing.T) {
	var exports atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/traces" {
			exports.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	p, err := telemetry.New(context.Background(), collector.URL+"/v1/traces", "test-service")
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "login")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	require.Equal(t, int32(1), exports.Load())
}
