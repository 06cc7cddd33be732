// Package toast relays short-lived notifications to the user. Each one
// removes itself after its duration; nothing is persisted.
package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDuration is how long a notification stays without an override.
const DefaultDuration = 4 * time.Second

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// AlertClass is the CSS class of the notification box.
func (k Kind) AlertClass() string {
	switch k {
	case KindInfo:
		return "alert-info"
	case KindSuccess:
		return "alert-success"
	case KindWarning:
		return "alert-warning"
	case KindError:
		return "alert-danger"
	}
	return ""
}

// IconClass is the CSS class of the notification icon.
func (k Kind) IconClass() string {
	switch k {
	case KindInfo:
		return "ri-information-line"
	case KindSuccess:
		return "ri-checkbox-circle-line"
	case KindWarning:
		return "ri-error-warning-line"
	case KindError:
		return "ri-alert-line"
	}
	return ""
}

type Toast struct {
	ID         string
	Kind       Kind
	Message    string
	AlertClass string
	IconClass  string
}

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// Relay holds the live notifications in insertion order.
type Relay struct {
	mu        sync.Mutex
	toasts    []Toast
	timers    map[string]Timer
	duration  time.Duration
	afterFunc func(time.Duration, func()) Timer
}

type Option func(*Relay)

// WithDuration overrides DefaultDuration.
func WithDuration(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.duration = d
		}
	}
}

// WithAfterFunc replaces time.AfterFunc (primarily for testing)
func WithAfterFunc(afterFunc func(time.Duration, func()) Timer) Option {
	return func(r *Relay) {
		r.afterFunc = afterFunc
	}
}

func NewRelay(options ...Option) *Relay {
	r := &Relay{
		timers:   make(map[string]Timer),
		duration: DefaultDuration,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Notify adds a notification that expires after the relay's duration and
// returns its id.
func (r *Relay) Notify(kind Kind, message string) string {
	return r.NotifyFor(kind, message, r.duration)
}

// NotifyFor adds a notification that expires after d. A non-positive d uses
// the relay's duration.
func (r *Relay) NotifyFor(kind Kind, message string, d time.Duration) string {
	if d <= 0 {
		d = r.duration
	}

	t := Toast{
		ID:         uuid.NewString(),
		Kind:       kind,
		Message:    message,
		AlertClass: kind.AlertClass(),
		IconClass:  kind.IconClass(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
	r.timers[t.ID] = r.afterFunc(d, func() { r.Dismiss(t.ID) })
	return t.ID
}

// Dismiss removes the notification with id. It reports whether it existed.
func (r *Relay) Dismiss(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if timer, ok := r.timers[id]; ok {
		timer.Stop()
		delete(r.timers, id)
	}
	for i, t := range r.toasts {
		if t.ID == id {
			r.toasts = append(r.toasts[:i:i], r.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the live notifications, oldest first.
func (r *Relay) List() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Close stops every pending expiry and drops all notifications.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, timer := range r.timers {
		timer.Stop()
		delete(r.timers, id)
	}
	r.toasts = nil
}
