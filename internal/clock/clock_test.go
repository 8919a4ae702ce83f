package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Now(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	result := c.Now()
	after := time.Now()

	assert.False(t, result.Before(before), "RealClock.Now() should not be before the call")
	assert.False(t, result.After(after), "RealClock.Now() should not be after the call")
}

func TestRealClock_NowUnixMilli(t *testing.T) {
	c := RealClock{}
	before := time.Now().UnixMilli()
	result := c.NowUnixMilli()
	after := time.Now().UnixMilli()

	assert.GreaterOrEqual(t, result, before)
	assert.LessOrEqual(t, result, after)
}

func TestRealClock_NewTimer(t *testing.T) {
	c := RealClock{}
	timer := c.NewTimer(5 * time.Millisecond)

	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.False(t, timer.Stop(), "a fired timer reports false on Stop")
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)
	c := NewMockClock(fixedTime)

	assert.Equal(t, fixedTime, c.Now())
	// Should return the same time on repeated calls
	assert.Equal(t, fixedTime, c.Now())
	assert.Equal(t, fixedTime.UnixMilli(), c.NowUnixMilli())
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	initialTime := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	c := NewMockClock(initialTime)

	c.Advance(90 * time.Minute)
	assert.Equal(t, time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC), c.Now())

	c.Advance(-30 * time.Minute)
	assert.Equal(t, time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC), c.Now())

	newTime := time.Date(2024, 12, 25, 12, 0, 0, 0, time.UTC)
	c.Set(newTime)
	assert.Equal(t, newTime, c.Now())
}

func TestMockClock_NewTimerFiresImmediately(t *testing.T) {
	start := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	timer := c.NewTimer(time.Second)
	select {
	case fired := <-timer.C():
		assert.Equal(t, start.Add(time.Second), fired)
	default:
		t.Fatal("mock timer should already have fired")
	}

	c.NewTimer(2 * time.Second)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, c.Waits())
	assert.Equal(t, start.Add(3*time.Second), c.Now())
}

func TestMockClock_ConcurrentAccess(t *testing.T) {
	c := NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Millisecond)
			_ = c.Now()
			c.NewTimer(time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Len(t, c.Waits(), 50)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 100*int(time.Millisecond), time.UTC), c.Now())
}
