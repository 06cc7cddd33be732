package authflowrepo

import (
	"time"

	"github.com/jrsteele09/go-auth-login/loginflow"
	"github.com/jrsteele09/go-auth-login/toast"
)

// Flow is one interactive login held between requests.
type Flow struct {
	ID         string
	DeviceID   string
	Controller *loginflow.Controller
	Toasts     *toast.Relay
	CreatedAt  time.Time
	LastSeen   time.Time
}

type Repo interface {
	Upsert(flow *Flow) error
	// Get returns the flow and marks it as seen at now.
	Get(id string, now time.Time) (*Flow, error)
	Delete(id string) error
	// DeleteIdle removes every flow not seen since cutoff and returns them.
	DeleteIdle(cutoff time.Time) []*Flow
}
