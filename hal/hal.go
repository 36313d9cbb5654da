package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// LEDUnit selects one colour of the RGB LED bank. The values are the
// LP3943 address offsets of the three drivers.
type LEDUnit uint8

const (
	LEDBlue LEDUnit = iota
	LEDGreen
	LEDRed

	numLEDUnits = 3
)

func (u LEDUnit) String() string {
	switch u {
	case LEDBlue:
		return "blue"
	case LEDGreen:
		return "green"
	case LEDRed:
		return "red"
	default:
		return "unknown"
	}
}

// LEDs is a bank of 16 LEDs per colour unit. Bit i of a mask is LED i.
type LEDs interface {
	Set(unit LEDUnit, mask uint16) error
	State(unit LEDUnit) uint16
}

// Clock reports the core clock the tick timer counts.
type Clock interface {
	Frequency() uint32
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// HAL provides the only contact point between the kernel demo and the
// outside world.
type HAL interface {
	Logger() Logger
	LEDs() LEDs
	Clock() Clock
	GPIO() GPIO
	Display() Display
}
