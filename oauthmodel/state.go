package oauthmodel

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-login/internal/utils"
)

// DecodeLoginState decodes the state query parameter: URL-safe base64
// (padding optional) of a JSON object. collection, client_id and
// redirect_uri are required, everything else is defaulted.
func DecodeLoginState(state string) (*LoginParameters, error) {
	raw := strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimSpace(state))
	for len(raw)%4 != 0 {
		raw += "="
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStateEncoding, err)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(strings.ToValidUTF8(string(decoded), "\uFFFD"))))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
	}
	if fields == nil {
		return nil, ErrUnexpectedFormat
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrUnexpectedFormat)
	}

	switch {
	case !truthy(fields["collection"]):
		return nil, ErrMissingCollection
	case !truthy(fields["client_id"]):
		return nil, ErrMissingClientID
	case !truthy(fields["redirect_uri"]):
		return nil, ErrMissingRedirectURI
	}

	params := &LoginParameters{
		Collection:      stringify(fields["collection"]),
		ClientID:        stringify(fields["client_id"]),
		RedirectURI:     stringify(fields["redirect_uri"]),
		Prompt:          PromptConsent,
		MaxAge:          DefaultMaxAge,
		RequestedScopes: []string{},
	}

	if v, ok := fields["client_name"]; ok && v != nil {
		params.ClientName = stringify(v)
	}
	if v, ok := fields["client_uri"]; ok && v != nil {
		params.ClientURI = stringify(v)
	}
	if v := fields["prompt"]; truthy(v) {
		params.Prompt = Prompt(stringify(v))
	}
	if seconds, ok := numeric(fields["max_age"]); ok && seconds != 0 {
		params.MaxAge = secondsToDuration(seconds)
	}
	if scopes, ok := fields["requested_scopes"].([]any); ok {
		params.RequestedScopes = utils.ToStringSlice(scopes)
	}
	if v := fields["login_hint"]; truthy(v) {
		params.LoginHint = stringify(v)
	}

	return params, nil
}

// EncodeLoginState is the inverse of DecodeLoginState. max_age is written in
// seconds as a string, the way it arrives on the authorization request.
func EncodeLoginState(params LoginParameters) (string, error) {
	scopes := params.RequestedScopes
	if scopes == nil {
		scopes = []string{}
	}

	maxAge := ""
	if params.MaxAge > 0 {
		maxAge = strconv.FormatInt(int64(params.MaxAge/time.Second), 10)
	}

	data, err := json.Marshal(map[string]any{
		"collection":       params.Collection,
		"client_id":        params.ClientID,
		"client_name":      params.ClientName,
		"client_uri":       params.ClientURI,
		"prompt":           string(params.Prompt),
		"max_age":          maxAge,
		"login_hint":       params.LoginHint,
		"requested_scopes": scopes,
		"redirect_uri":     params.RedirectURI,
	})
	if err != nil {
		return "", fmt.Errorf("encode login state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// truthy follows JSON-in-the-browser truthiness: empty strings, zero,
// false and null are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

func stringify(v any) string {
	return utils.ToStringSlice([]any{v})[0]
}

// secondsToDuration saturates at the Duration range instead of wrapping.
func secondsToDuration(seconds float64) time.Duration {
	nanos := seconds * float64(time.Second)
	switch {
	case nanos >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	case nanos <= math.MinInt64:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(nanos)
}

func numeric(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err = strconv.ParseFloat(s, 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
