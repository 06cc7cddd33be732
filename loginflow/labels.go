package loginflow

import (
	"strings"

	"github.com/jrsteele09/go-auth-login/accounts"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const unknownAccount = "Unknown Account"

// UserLabel is the long account label: "name (email)", "name (id)", email,
// or id.
func UserLabel(record *accounts.Record) string {
	switch {
	case record == nil:
		return unknownAccount
	case record.Name != "" && record.Email != "":
		return record.Name + " (" + record.Email + ")"
	case record.Name != "":
		return record.Name + " (" + record.ID + ")"
	case record.Email != "":
		return record.Email
	default:
		return record.ID
	}
}

// UserLabelShort is the first of name, email and id that is set.
func UserLabelShort(record *accounts.Record) string {
	switch {
	case record == nil:
		return unknownAccount
	case record.Name != "":
		return record.Name
	case record.Email != "":
		return record.Email
	default:
		return record.ID
	}
}

// IdentityLabel names the password identity input, e.g. "Email or username".
func (s State) IdentityLabel() string {
	label := "Identity"
	if s.Methods != nil && len(s.Methods.Password.IdentityFields) > 0 {
		label = strings.Join(s.Methods.Password.IdentityFields, " or ")
	}
	return Sentenize(label, false)
}

func (s State) ClientNameLabel() string {
	if s.Params.ClientName != "" {
		return s.Params.ClientName
	}
	clientID := s.Params.ClientID
	if len(clientID) > 8 {
		clientID = clientID[:8]
	}
	return "Unnamed OAuth2 Client (" + clientID + "...)"
}

func (s State) ConsentButtonLabel() string {
	if s.Params.ClientName != "" {
		return "Authorize " + s.Params.ClientName
	}
	return "Authorize Third-Party App"
}

// Sentenize trims str, turns underscores into spaces and upper-cases the
// first letter. With stopCheck a missing final '.', '?' or '!' is added.
func Sentenize(str string, stopCheck bool) string {
	str = strings.ReplaceAll(strings.TrimSpace(str), "_", " ")
	if str == "" {
		return str
	}

	first := []rune(str)[0]
	str = cases.Upper(language.Und).String(string(first)) + str[len(string(first)):]

	if stopCheck {
		switch str[len(str)-1] {
		case '.', '?', '!':
		default:
			str += "."
		}
	}
	return str
}
