// Package app is the demo workload: a small sensor pipeline plus a set of
// threads that between them use every kernel service.
package app

import (
	"errors"
	"fmt"

	"github.com/joeycumines/logiface"

	"pulse/hal"
	"pulse/kernel"
)

// ButtonIRQ is the interrupt line of the first board button. Further
// buttons use the lines after it.
const ButtonIRQ kernel.IRQ = 35

// SensorFIFO carries samples from the sampler to the consumer.
const SensorFIFO = 0

const (
	prioWorker   = 1
	prioSampler  = 2
	prioConsumer = 3
	prioBlinker  = 4
	prioOneshot  = 5
	prioMonitor  = 6
	prioCounter  = 200
	prioIdle     = 254

	// buttonHWPriority preempts the tick.
	buttonHWPriority = 3
)

// Config selects the demo workload. Durations are in ticks.
type Config struct {
	// SensorPeriod is the sampling period of the periodic sensor event.
	SensorPeriod uint32

	// ConsumerStall makes the consumer pause after every FIFOSize reads, long
	// enough for the sampler to overrun the FIFO when it exceeds
	// FIFOSize*SensorPeriod.
	ConsumerStall uint32

	BlinkTicks   uint32
	MonitorTicks uint32

	// StopAfter halts the board once system time reaches it. Zero runs
	// forever.
	StopAfter uint32
}

// DefaultConfig returns the workload used by the board binaries.
func DefaultConfig() Config {
	return Config{
		SensorPeriod:  5,
		ConsumerStall: 100,
		BlinkTicks:    250,
		MonitorTicks:  200,
	}
}

// Board is what the demo needs besides the kernel.
type Board struct {
	HAL hal.HAL
	Log *logiface.Logger[logiface.Event]

	// Idle runs in the idle thread's loop. It should wait for the next
	// interrupt.
	Idle func()

	// Halt stops the core. It may be nil on boards that cannot stop.
	Halt func()
}

// Stats are counters kept by the demo threads.
type Stats struct {
	Samples   uint32
	Consumed  uint32
	Overruns  uint32
	Presses   uint32
	Kills     uint32
	Respawns  uint32
	Spins     uint32
	Blinks    uint32
	Frames    uint32
	LossLines uint32
	Oneshot   bool
}

// System is the demo wired onto a kernel.
type System struct {
	k   *kernel.Kernel
	b   Board
	cfg Config
	log *logiface.Logger[logiface.Event]

	sample kernel.Semaphore
	button kernel.Semaphore

	counter     kernel.ThreadID
	counterLive bool

	limiter lossLimiter
	started bool
	halted  bool
	stats   Stats
}

// New registers the demo's threads and events on k. It must be called
// before k.Launch.
func New(k *kernel.Kernel, b Board, cfg Config) (*System, error) {
	if b.HAL == nil {
		return nil, errors.New("app: board has no HAL")
	}
	if cfg.SensorPeriod == 0 {
		cfg.SensorPeriod = 1
	}
	s := &System{
		k:       k,
		b:       b,
		cfg:     cfg,
		log:     b.Log,
		limiter: newLossLimiter(),
	}

	if err := k.InitFIFO(SensorFIFO); err != nil {
		return nil, fmt.Errorf("app: init fifo: %w", err)
	}
	k.InitSemaphore(&s.sample, 0)
	k.InitSemaphore(&s.button, 0)

	threads := []struct {
		name string
		prio uint8
		fn   func()
	}{
		{"idle", prioIdle, s.idle},
		{"worker", prioWorker, s.worker},
		{"sampler", prioSampler, s.sampler},
		{"consumer", prioConsumer, s.consumer},
		{"blinker", prioBlinker, s.blinker},
		{"oneshot", prioOneshot, s.oneshot},
		{"monitor", prioMonitor, s.monitor},
	}
	for _, t := range threads {
		if _, err := k.AddThread(s.thread(t.name, t.fn), t.prio, t.name); err != nil {
			return nil, fmt.Errorf("app: add thread %s: %w", t.name, err)
		}
	}
	if err := s.spawnCounter(); err != nil {
		return nil, err
	}

	if err := k.AddPeriodicEvent(s.sensorTick, cfg.SensorPeriod); err != nil {
		return nil, fmt.Errorf("app: add sensor event: %w", err)
	}
	if err := k.AddAperiodicEvent(s.buttonISR, buttonHWPriority, ButtonIRQ); err != nil {
		return nil, fmt.Errorf("app: add button event: %w", err)
	}

	s.splash("starting")
	return s, nil
}

// Run launches the kernel. It returns once the board halts, or with the
// launch error if no thread ever ran.
func (s *System) Run() error {
	err := s.k.Launch()
	if !s.started {
		return fmt.Errorf("app: launch: %w", err)
	}
	s.log.Info().
		Uint64("ticks", uint64(s.k.Now())).
		Uint64("samples", uint64(s.stats.Samples)).
		Uint64("lost", uint64(s.stats.Overruns)).
		Log("board halted")
	return nil
}

// Stats returns the demo counters. Call it after Run returns.
func (s *System) Stats() Stats { return s.stats }

// thread wraps a thread body so a panic goes through the fatal path.
func (s *System) thread(name string, fn func()) func() {
	return func() {
		s.started = true
		defer func() {
			if r := recover(); r != nil {
				s.fatal(fmt.Errorf("thread %s: panic: %v", name, r))
				s.park()
			}
		}()
		fn()
		s.die(fmt.Errorf("thread %s returned", name))
	}
}

func (s *System) halt() {
	s.halted = true
	if s.b.Halt != nil {
		s.b.Halt()
	}
}
