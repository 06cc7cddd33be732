// Package pbclient talks to a PocketBase-style identity provider over its
// REST API.
package pbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-login/identity"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const tracerName = "github.com/jrsteele09/go-auth-login/identity/pbclient"

// Client implements identity.Provider and identity.Refresher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

var (
	_ identity.Provider  = (*Client)(nil)
	_ identity.Refresher = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// New creates a client for the provider at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[pbclient.New] invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) ListAuthMethods(ctx context.Context, collection string) (*identity.AuthMethods, error) {
	var methods identity.AuthMethods
	if err := c.call(ctx, c.httpClient, "ListAuthMethods", http.MethodGet, collection, "auth-methods", nil, nil, &methods); err != nil {
		return nil, err
	}
	return &methods, nil
}

func (c *Client) AuthWithPassword(ctx context.Context, collection, identityValue, password string) (*identity.AuthResult, error) {
	body := map[string]string{"identity": identityValue, "password": password}
	var result identity.AuthResult
	if err := c.call(ctx, c.httpClient, "AuthWithPassword", http.MethodPost, collection, "auth-with-password", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) RequestOTP(ctx context.Context, collection, email string) (*identity.OTPChallenge, error) {
	body := map[string]string{"email": email}
	var challenge identity.OTPChallenge
	if err := c.call(ctx, c.httpClient, "RequestOTP", http.MethodPost, collection, "request-otp", nil, body, &challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (c *Client) AuthWithOTP(ctx context.Context, collection, otpID, code, mfaID string) (*identity.AuthResult, error) {
	query := url.Values{}
	if mfaID != "" {
		query.Set("mfaId", mfaID)
	}
	body := map[string]string{"otpId": otpID, "password": code}
	var result identity.AuthResult
	if err := c.call(ctx, c.httpClient, "AuthWithOTP", http.MethodPost, collection, "auth-with-otp", query, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AuthRefresh exchanges a still valid session token for a fresh one.
func (c *Client) AuthRefresh(ctx context.Context, collection, token string) (*identity.AuthResult, error) {
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	authClient := oauth2.NewClient(authCtx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))

	var result identity.AuthResult
	if err := c.call(ctx, authClient, "AuthRefresh", http.MethodPost, collection, "auth-refresh", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) call(ctx context.Context, httpClient *http.Client, op, method, collection, action string, query url.Values, body any, out any) error {
	ctx, span := c.tracer.Start(ctx, "pbclient."+op, trace.WithAttributes(
		attribute.String("identity.collection", collection),
		attribute.String("http.request.method", method),
	))
	defer span.End()

	err := c.do(ctx, httpClient, method, collection, action, query, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if status := identity.StatusOf(err); status != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
		log.Debug().Err(err).Str("op", op).Str("collection", collection).Msg("Identity provider call failed")
	}
	return err
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, method, collection, action string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + "/api/collections/" + url.PathEscape(collection) + "/" + action
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &identity.ResponseError{Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &identity.ResponseError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return &identity.ResponseError{Err: err, IsAbort: errors.Is(err, context.Canceled)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &identity.ResponseError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err), IsAbort: errors.Is(err, context.Canceled)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &identity.ResponseError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func responseError(status int, data []byte) *identity.ResponseError {
	respErr := &identity.ResponseError{Status: status, Response: map[string]any{}}
	if err := json.Unmarshal(data, &respErr.Response); err != nil {
		respErr.Response = map[string]any{}
	}
	if msg, ok := respErr.Response["message"].(string); ok {
		respErr.Message = msg
	}
	if mfaID, ok := respErr.Response["mfaId"].(string); ok {
		respErr.MFAID = mfaID
	}
	return respErr
}
