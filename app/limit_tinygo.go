//go:build tinygo

package app

// lossLimiter allows one FIFO loss report per second of ticks. The board
// has no goroutine scheduler for a wall-clock limiter to run on.
type lossLimiter struct {
	next *uint32
}

const lossInterval = 1000

func newLossLimiter() lossLimiter {
	return lossLimiter{next: new(uint32)}
}

func (x lossLimiter) allow(now uint32) bool {
	if int32(now-*x.next) < 0 {
		return false
	}
	*x.next = now + lossInterval
	return true
}
