package hal

import (
	"fmt"
	"strings"
	"sync"
)

// GPIOMode selects whether a pin is an input or output.
type GPIOMode uint8

const (
	GPIOModeInput GPIOMode = iota
	GPIOModeOutput
)

// GPIOPull selects the pull resistor configuration.
type GPIOPull uint8

const (
	GPIOPullNone GPIOPull = iota
	GPIOPullUp
	GPIOPullDown
)

// GPIO is the set of named board pins.
type GPIO interface {
	PinCount() int
	Pin(id int) GPIOPin
}

// GPIOPin is a single digital pin.
type GPIOPin interface {
	Name() string
	Configure(mode GPIOMode, pull GPIOPull) error
	Read() (level bool, err error)
	Write(level bool) error
}

// InterruptPin is an input that reports presses as an interrupt.
type InterruptPin interface {
	GPIOPin
	SetInterrupt(fn func()) error
}

// pinSet is a fixed GPIO. Nil entries are skipped at construction.
type pinSet []GPIOPin

func newPinSet(pins ...GPIOPin) pinSet {
	set := make(pinSet, 0, len(pins))
	for _, p := range pins {
		if p != nil {
			set = append(set, p)
		}
	}
	return set
}

func (s pinSet) PinCount() int { return len(s) }

func (s pinSet) Pin(id int) GPIOPin {
	if id < 0 || id >= len(s) {
		return nil
	}
	return s[id]
}

// FindPin returns the first pin of g named name, or nil.
func FindPin(g GPIO, name string) GPIOPin {
	if g == nil {
		return nil
	}
	for i := 0; i < g.PinCount(); i++ {
		if p := g.Pin(i); p != nil && p.Name() == name {
			return p
		}
	}
	return nil
}

func pinErr(name, format string, args ...any) error {
	return fmt.Errorf("gpio: pin %s: "+format, append([]any{name}, args...)...)
}

// buttonPin is an active-high push button with a pull-down. Press and
// Release come from the board's input (keys on the host); a rising edge
// calls the interrupt hook outside the pin lock.
type buttonPin struct {
	mu     sync.Mutex
	name   string
	pull   GPIOPull
	level  bool
	onRise func()
}

func newButtonPin(name string) *buttonPin {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	return &buttonPin{name: name}
}

func (p *buttonPin) Name() string { return p.name }

func (p *buttonPin) Configure(mode GPIOMode, pull GPIOPull) error {
	switch {
	case mode != GPIOModeInput:
		return pinErr(p.name, "input only")
	case pull == GPIOPullUp:
		return pinErr(p.name, "pull-up unsupported")
	case pull > GPIOPullDown:
		return pinErr(p.name, "invalid pull %d", pull)
	}
	p.mu.Lock()
	p.pull = pull
	p.mu.Unlock()
	return nil
}

func (p *buttonPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

func (p *buttonPin) Write(bool) error { return pinErr(p.name, "input only") }

func (p *buttonPin) SetInterrupt(fn func()) error {
	p.mu.Lock()
	p.onRise = fn
	p.mu.Unlock()
	return nil
}

// Press drives the pin high.
func (p *buttonPin) Press() {
	p.mu.Lock()
	rising := !p.level
	p.level = true
	fn := p.onRise
	p.mu.Unlock()

	if rising && fn != nil {
		fn()
	}
}

func (p *buttonPin) Release() {
	p.mu.Lock()
	p.level = false
	p.mu.Unlock()
}

// ledPin is an output that mirrors its level onto an LED.
type ledPin struct {
	mu    sync.Mutex
	name  string
	led   LED
	level bool
}

func newLEDPin(name string, led LED) GPIOPin {
	if led == nil {
		return nil
	}
	return &ledPin{name: name, led: led}
}

func (p *ledPin) Name() string { return p.name }

func (p *ledPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if mode != GPIOModeOutput || pull != GPIOPullNone {
		return pinErr(p.name, "push-pull output only")
	}
	return nil
}

func (p *ledPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

func (p *ledPin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	if level {
		p.led.High()
	} else {
		p.led.Low()
	}
	return nil
}
