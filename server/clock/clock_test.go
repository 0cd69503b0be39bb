package clock_test

import (
	"testing"
	"time"

	"github.com/mesh-rooms/mesh-rooms/server/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_AfterFunc(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()

	fired := 0
	clk.AfterFunc(time.Second, func() {
		fired++
	})

	clk.Add(999 * time.Millisecond)
	assert.Equal(t, 0, fired)

	clk.Add(time.Millisecond)
	assert.Equal(t, 1, fired)

	clk.Add(time.Hour)
	assert.Equal(t, 1, fired, "a timer fires only once")
}

func TestMock_firesInDeadlineOrder(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()

	var order []string

	clk.AfterFunc(2*time.Second, func() { order = append(order, "late") })
	clk.AfterFunc(time.Second, func() { order = append(order, "early") })

	clk.Add(3 * time.Second)

	assert.Equal(t, []string{"early", "late"}, order)
}

func TestMock_callbackMayRearm(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	start := clk.Now()

	fired := 0

	var firedAt []time.Duration

	var rearm func()
	rearm = func() {
		fired++
		firedAt = append(firedAt, clk.Now().Sub(start))

		if fired < 3 {
			clk.AfterFunc(time.Second, rearm)
		}
	}

	clk.AfterFunc(time.Second, rearm)

	// All three deadlines fall within one advance; each callback arms the
	// next and they chain in a single Add. The clock must have stepped to
	// each deadline by the time its callback runs, or the re-armed timers
	// would land past the advance and never fire.
	clk.Add(3 * time.Second)
	assert.Equal(t, 3, fired)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, firedAt)
}

func TestMock_Stop(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()

	fired := false
	timer := clk.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports the timer was gone")

	clk.Add(time.Hour)
	assert.False(t, fired)
}

func TestMock_Now(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()

	start := clk.Now()
	clk.Add(90 * time.Millisecond)

	assert.Equal(t, 90*time.Millisecond, clk.Now().Sub(start))
}

func TestReal_AfterFunc(t *testing.T) {
	t.Parallel()

	clk := clock.New()

	done := make(chan struct{})
	clk.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.Fail(t, "timer did not fire")
	}
}
