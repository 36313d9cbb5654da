//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
)

// Buttons are the push buttons of the host board, in key order: key '1'
// presses the first one.
var Buttons = []string{"S1", "S2"}

type hostHAL struct {
	logger  *hostLogger
	led     *hostLED
	leds    *LP3943
	bus     *hostI2C
	clock   hostClock
	gpio    GPIO
	buttons []*buttonPin
	fb      *hostFramebuffer
}

// New returns a host HAL implementation. cpuHz is the simulated core clock.
func New(cpuHz uint32) HAL {
	logger := &hostLogger{w: os.Stdout}
	led := &hostLED{}
	bus := &hostI2C{}
	pins := []GPIOPin{newLEDPin("LED", led)}
	var buttons []*buttonPin
	for _, name := range Buttons {
		b := newButtonPin(name)
		buttons = append(buttons, b)
		pins = append(pins, b)
	}
	return &hostHAL{
		logger:  logger,
		led:     led,
		leds:    NewLP3943(bus),
		bus:     bus,
		clock:   hostClock(cpuHz),
		gpio:    newPinSet(pins...),
		buttons: buttons,
		fb:      newHostFramebuffer(320, 240),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LEDs() LEDs       { return h.leds }
func (h *hostHAL) Clock() Clock     { return h.clock }
func (h *hostHAL) GPIO() GPIO       { return h.gpio }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }

// handleKey turns key events into button presses. It reports whether the
// key asks to quit.
func (h *hostHAL) handleKey(ev KeyEvent) (quit bool) {
	switch {
	case ev.Code == KeyEscape, ev.Rune == 'q', ev.Rune == 0x03:
		return ev.Press
	case ev.Rune >= '1' && int(ev.Rune-'1') < len(h.buttons):
		b := h.buttons[ev.Rune-'1']
		b.Press()
		b.Release()
	case ev.Code == KeyEnter && len(h.buttons) > 0:
		if ev.Press {
			h.buttons[0].Press()
		} else {
			h.buttons[0].Release()
		}
	}
	return false
}

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostClock uint32

func (c hostClock) Frequency() uint32 { return uint32(c) }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu sync.Mutex
	on bool
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = true
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = false
}

func (l *hostLED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// hostI2C stands in for the LED bus. It keeps the last register write per
// device address.
type hostI2C struct {
	mu   sync.Mutex
	regs map[uint16][]byte
}

func (b *hostI2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(w) == 0 {
		return fmt.Errorf("i2c: empty write to %#02x", addr)
	}
	if b.regs == nil {
		b.regs = make(map[uint16][]byte)
	}
	if len(w) > 1 {
		b.regs[addr] = append(b.regs[addr][:0], w...)
		return nil
	}
	clear(r)
	if prev := b.regs[addr]; len(prev) > 1 && prev[0] == w[0] {
		copy(r, prev[1:])
	}
	return nil
}
