package toast_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-login/toast"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	fire    func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.stopped = true
	return true
}

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) toast.Timer {
	timer := &fakeTimer{d: d, fire: f}
	c.timers = append(c.timers, timer)
	return timer
}

func TestNotify(t *testing.T) {
	clock := &fakeClock{}
	relay := toast.NewRelay(toast.WithAfterFunc(clock.AfterFunc))

	first := relay.Notify(toast.KindError, "Invalid identity or password")
	second := relay.NotifyFor(toast.KindSuccess, "Done", time.Second)
	require.NotEqual(t, first, second)

	list := relay.List()
	require.Len(t, list, 2)
	require.Equal(t, "Invalid identity or password", list[0].Message)
	require.Equal(t, "alert-danger", list[0].AlertClass)
	require.Equal(t, "ri-alert-line", list[0].IconClass)
	require.Equal(t, toast.KindSuccess, list[1].Kind)

	require.Equal(t, toast.DefaultDuration, clock.timers[0].d)
	require.Equal(t, time.Second, clock.timers[1].d)

	clock.timers[0].fire()
	list = relay.List()
	require.Len(t, list, 1)
	require.Equal(t, second, list[0].ID)
}

func TestDismiss(t *testing.T) {
	clock := &fakeClock{}
	relay := toast.NewRelay(toast.WithAfterFunc(clock.AfterFunc), toast.WithDuration(time.Minute))

	id := relay.Notify(toast.KindInfo, "Hello")
	require.Equal(t, time.Minute, clock.timers[0].d)

	require.True(t, relay.Dismiss(id))
	require.True(t, clock.timers[0].stopped)
	require.Empty(t, relay.List())
	require.False(t, relay.Dismiss(id))

	clock.timers[0].fire()
	require.Empty(t, relay.List())
}

func TestKindClasses(t *testing.T) {
	require.Equal(t, "alert-info", toast.KindInfo.AlertClass())
	require.Equal(t, "ri-checkbox-circle-line", toast.KindSuccess.IconClass())
	require.Equal(t, "alert-warning", toast.KindWarning.AlertClass())
	require.Equal(t, "ri-error-warning-line", toast.KindWarning.IconClass())
	require.Empty(t, toast.Kind("other").AlertClass())
	require.Empty(t, toast.Kind("other").IconClass())
}

func TestExpiresWithRealTimer(t *testing.T) {
	relay := toast.NewRelay()
	relay.NotifyFor(toast.KindInfo, "brief", 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(relay.List()) == 0 }, time.Second, 5*time.Millisecond)
	relay.Close()
}
