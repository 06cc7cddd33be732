package oauthmodel

import "errors"

var (
	ErrUnexpectedFormat     = errors.New("unexpected format")
	ErrMissingCollection    = errors.New("missing collection")
	ErrMissingClientID      = errors.New("missing client_id")
	ErrMissingRedirectURI   = errors.New("missing redirect_uri")
	ErrInvalidStateEncoding = errors.New("invalid state encoding")
)

// Error codes sent to the redirect target when a silent login cannot
// complete.
const (
	ErrorCodeLoginRequired            = "login_required"
	ErrorCodeAccountSelectionRequired = "account_selection_required"
)

// Form fields of the terminal redirect.
const (
	FieldToken         = "pb_token"
	FieldTokenIssuedAt = "pb_token_iat"
	FieldError         = "error"
)
