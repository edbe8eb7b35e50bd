package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockAfterFuncFiresOnAdvance(t *testing.T) {
	clk := NewMock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	var fired atomic.Int32
	clk.AfterFunc(5*time.Second, func() { fired.Add(1) })

	clk.Advance(4 * time.Second)
	assert.EqualValues(t, 0, fired.Load())

	clk.Advance(time.Second)
	assert.EqualValues(t, 1, fired.Load())

	// A fired timer never fires again.
	clk.Advance(time.Minute)
	assert.EqualValues(t, 1, fired.Load())
}

func TestMockTimerStop(t *testing.T) {
	clk := NewMock(time.Now())

	var fired atomic.Int32
	timer := clk.AfterFunc(time.Second, func() { fired.Add(1) })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	clk.Advance(time.Minute)
	assert.EqualValues(t, 0, fired.Load())
}

func TestMockStopAfterFire(t *testing.T) {
	clk := NewMock(time.Now())
	timer := clk.AfterFunc(time.Second, func() {})

	clk.Advance(2 * time.Second)
	assert.False(t, timer.Stop())
}

func TestMockNowAdvances(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clk := NewMock(start)

	clk.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), clk.Now())
}

func TestSystemClock(t *testing.T) {
	clk := System()
	before := time.Now()
	now := clk.Now()
	assert.False(t, now.Before(before))

	var fired atomic.Int32
	timer := clk.AfterFunc(time.Hour, func() { fired.Add(1) })
	assert.True(t, timer.Stop())
}
