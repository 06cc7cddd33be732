// Package oauthmodel describes the authorization request the login page is
// started with and the fields it answers the relying party with.
package oauthmodel

import "time"

// Prompt is the relying party's directive on how interactive the login may be.
type Prompt string

const (
	// PromptLogin always asks for credentials.
	PromptLogin Prompt = "login"
	// PromptNone forbids any page; the flow redirects straight away.
	PromptNone Prompt = "none"
	// PromptConsent asks the user to confirm the client's access.
	PromptConsent Prompt = "consent"
)

// DefaultMaxAge is used when the request carries no usable max_age.
const DefaultMaxAge = 7 * 24 * time.Hour

// LoginParameters holds the decoded authorization request.
type LoginParameters struct {
	// Collection is the tenant (auth collection id or name) to log into.
	Collection string

	// ClientID identifies the relying party.
	ClientID string

	// ClientName is shown on the consent page. May be empty.
	ClientName string

	// ClientURI is the relying party's home page. May be empty.
	ClientURI string

	// RedirectURI receives the terminal POST.
	RedirectURI string

	// Prompt defaults to PromptConsent. Values outside the known set are kept
	// as given.
	Prompt Prompt

	// MaxAge bounds how old a cached session may be to be offered.
	MaxAge time.Duration

	// RequestedScopes is informational; the scopes are granted by the
	// authorization endpoint.
	RequestedScopes []string

	// LoginHint pre-fills the identity field.
	LoginHint string
}
