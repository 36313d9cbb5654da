//go:build !tinygo

package port

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// NumIRQ is the number of interrupt lines on the simulated controller.
const NumIRQ = 64

var (
	ErrHalted    = errors.New("port: halted")
	ErrNoContext = errors.New("port: slot has no context")
)

// SimConfig configures a simulated core.
type SimConfig struct {
	// RealTime drives the tick from a wall-clock ticker. Otherwise ticks are
	// raised only by Tick.
	RealTime bool

	// Frequency is the simulated core clock in Hz, used to turn the tick
	// reload value into a ticker period.
	Frequency uint32
}

// Sim is a single simulated core. Each kernel thread is a goroutine, and
// exactly one of them holds the core at a time; the others are parked.
//
// Interrupts (the tick and the peripheral lines) are latched from any
// goroutine and taken by the thread holding the core at its next interrupt
// window: leaving a critical section, pending a switch, or waking from
// WaitForInterrupt. A running handler is preempted the same way, at its own
// windows, by strictly more urgent interrupts. Thread code that never enters
// the kernel is never preempted.
type Sim struct {
	cfg SimConfig

	// Owned by the goroutine holding the core.
	running  bool
	masked   bool
	active   int // priority of the running handler, threadLevel if none
	pendSV   bool
	current  int
	contexts []*simContext
	pick     func() int
	tickISR  func()
	tickPrio uint8
	lines    [NumIRQ]simLine

	ticks  atomic.Uint32
	raised atomic.Uint64
	wake   chan struct{}

	halt     chan struct{}
	haltOnce sync.Once
	wg       sync.WaitGroup
}

type simLine struct {
	handler  func()
	priority uint8
	enabled  bool
}

// simContext stands in for a thread's saved register file.
type simContext struct {
	slot    int
	entry   func()
	started bool
	resume  chan struct{}
	retired chan struct{}
}

// NewSim returns a stopped core.
func NewSim(cfg SimConfig) *Sim {
	return &Sim{
		cfg:     cfg,
		current: -1,
		active:  threadLevel,
		wake:    make(chan struct{}, 1),
		halt:    make(chan struct{}),
	}
}

func (s *Sim) DisableInterrupts() uintptr {
	prev := s.masked
	s.masked = true
	if prev {
		return 1
	}
	return 0
}

func (s *Sim) RestoreInterrupts(state uintptr) {
	s.masked = state != 0
	s.window()
}

func (s *Sim) PendSwitch() {
	s.pendSV = true
	s.window()
}

func (s *Sim) InitContext(slot int, entry func()) {
	for len(s.contexts) <= slot {
		s.contexts = append(s.contexts, nil)
	}
	if old := s.contexts[slot]; old != nil {
		close(old.retired)
	}
	s.contexts[slot] = &simContext{
		slot:    slot,
		entry:   entry,
		resume:  make(chan struct{}, 1),
		retired: make(chan struct{}),
	}
}

func (s *Sim) StartTimer(cycles uint32, priority uint8, isr func()) {
	s.tickISR = isr
	s.tickPrio = priority
	if !s.cfg.RealTime {
		return
	}

	period := time.Millisecond
	if cycles > 0 && s.cfg.Frequency > 0 {
		period = time.Duration(uint64(cycles) * uint64(time.Second) / uint64(s.cfg.Frequency))
	}
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-s.halt:
				return
			case <-t.C:
				s.Tick()
			}
		}
	}()
}

func (s *Sim) Start(slot int, switchPriority uint8, pick func() int) error {
	_ = switchPriority // the switch is always taken after every pending interrupt
	if slot < 0 || slot >= len(s.contexts) || s.contexts[slot] == nil {
		return ErrNoContext
	}
	s.pick = pick
	s.current = slot
	s.running = true
	s.resume(s.contexts[slot])

	<-s.halt
	s.wg.Wait()
	s.running = false
	s.current = -1
	return ErrHalted
}

// SetHandler, SetPriority and Enable make Sim the board's interrupt
// controller. Lines outside [0, NumIRQ) are ignored.
func (s *Sim) SetHandler(irq int16, fn func()) {
	if irq >= 0 && irq < NumIRQ {
		s.lines[irq].handler = fn
	}
}

func (s *Sim) SetPriority(irq int16, level uint8) {
	if irq >= 0 && irq < NumIRQ {
		s.lines[irq].priority = level
	}
}

func (s *Sim) Enable(irq int16) {
	if irq >= 0 && irq < NumIRQ {
		s.lines[irq].enabled = true
	}
}

// Tick latches one tick interrupt. Safe from any goroutine.
func (s *Sim) Tick() {
	s.ticks.Add(1)
	s.notify()
}

// Raise latches interrupt line irq. Safe from any goroutine.
func (s *Sim) Raise(irq int16) {
	if irq < 0 || irq >= NumIRQ {
		return
	}
	s.raised.Or(1 << uint(irq))
	s.notify()
}

// WaitForInterrupt parks the core until an interrupt is latched, then takes
// it. It must be called by the thread holding the core.
func (s *Sim) WaitForInterrupt() {
	if !s.interruptPending() {
		select {
		case <-s.wake:
		case <-s.halt:
		}
	}
	s.window()
}

// Halt stops the core. Every thread goroutine exits at its next interrupt
// window and Start returns.
func (s *Sim) Halt() {
	s.haltOnce.Do(func() { close(s.halt) })
	s.notify()
}

func (s *Sim) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sim) interruptPending() bool {
	return s.ticks.Load() > 0 || s.raised.Load() != 0
}

// threadLevel is the active priority while no handler runs. Every interrupt
// is more urgent than it.
const threadLevel = 256

// window takes pending interrupts more urgent than the running handler in
// priority order. At thread level it then takes a pending switch.
func (s *Sim) window() {
	for s.running && !s.masked {
		if s.active == threadLevel {
			select {
			case <-s.halt:
				runtime.Goexit()
			default:
			}
		}
		if isr, prio := s.nextInterrupt(s.active); isr != nil {
			prev := s.active
			s.active = prio
			isr()
			s.active = prev
			continue
		}
		if s.active != threadLevel || !s.pendSV {
			return
		}
		s.pendSV = false
		s.contextSwitch()
	}
}

// nextInterrupt claims the most urgent latched interrupt whose priority is
// below limit. The tick wins ties because it sits below every device line in
// the vector table.
func (s *Sim) nextInterrupt(limit int) (func(), int) {
	best := -2
	bestPrio := limit
	if s.tickISR != nil && s.ticks.Load() > 0 && int(s.tickPrio) < bestPrio {
		best = -1
		bestPrio = int(s.tickPrio)
	}
	bits := s.raised.Load()
	for irq := 0; bits != 0 && irq < NumIRQ; irq++ {
		if bits&(1<<uint(irq)) == 0 {
			continue
		}
		l := &s.lines[irq]
		if !l.enabled || l.handler == nil {
			continue
		}
		if int(l.priority) < bestPrio {
			best = irq
			bestPrio = int(l.priority)
		}
	}
	switch {
	case best == -1:
		s.ticks.Add(^uint32(0))
		return s.tickISR, bestPrio
	case best >= 0:
		s.raised.And(^(uint64(1) << uint(best)))
		return s.lines[best].handler, bestPrio
	default:
		return nil, 0
	}
}

func (s *Sim) contextSwitch() {
	from := s.current
	to := s.pick()
	if to == from {
		runtime.Gosched()
		return
	}
	fc := s.contexts[from]
	s.current = to
	s.resume(s.contexts[to])
	s.park(fc)
}

func (s *Sim) resume(c *simContext) {
	if c.started {
		c.resume <- struct{}{}
		return
	}
	c.started = true
	s.wg.Add(1)
	go s.run(c)
}

func (s *Sim) park(c *simContext) {
	select {
	case <-c.resume:
	case <-c.retired:
		runtime.Goexit()
	case <-s.halt:
		runtime.Goexit()
	}
}

func (s *Sim) run(c *simContext) {
	defer s.wg.Done()
	c.entry()
	panic(fmt.Sprintf("port: thread in slot %d returned", c.slot))
}
