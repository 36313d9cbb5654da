//go:build !tinygo

package app

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// lossLimiter throttles FIFO loss reports to one a second and ten a minute
// of wall time.
type lossLimiter struct {
	l *catrate.Limiter
}

func newLossLimiter() lossLimiter {
	return lossLimiter{l: catrate.NewLimiter(map[time.Duration]int{
		time.Second: 1,
		time.Minute: 10,
	})}
}

func (x lossLimiter) allow(uint32) bool {
	_, ok := x.l.Allow(SensorFIFO)
	return ok
}
