package hal

import "time"

// HostClock implements Clock on the Go runtime's monotonic clock. Deadline
// waits map to time.Sleep, which is adequate for hosted soft-real-time use;
// an RTOS target would supply its own Clock.
type HostClock struct {
	epoch time.Time
}

// NewHostClock returns a clock whose microsecond counter starts near zero.
func NewHostClock() *HostClock {
	return &HostClock{epoch: time.Now()}
}

func (c *HostClock) NowMicros() uint64 {
	return uint64(time.Since(c.epoch) / time.Microsecond)
}

func (c *HostClock) SleepUntilMicros(deadline uint64) {
	now := c.NowMicros()
	if deadline <= now {
		return
	}
	time.Sleep(time.Duration(deadline-now) * time.Microsecond)
}
