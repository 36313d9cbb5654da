//go:build tinygo && baremetal

package hal

import "machine"

var crlf = []byte{'\r', '\n'}

// uartLogger writes one CRLF-terminated line per call.
type uartLogger struct {
	uart machine.Serialer
}

func (l *uartLogger) WriteLineString(s string) { l.WriteLineBytes([]byte(s)) }

func (l *uartLogger) WriteLineBytes(b []byte) {
	l.uart.Write(b)
	l.uart.Write(crlf)
}

type boardClock struct {
	hz uint32
}

func (c boardClock) Frequency() uint32 {
	if c.hz != 0 {
		return c.hz
	}
	return machine.CPUFrequency()
}

// pinLED drives the on-board LED through the LED interface.
type pinLED machine.Pin

func (p pinLED) High() { machine.Pin(p).High() }
func (p pinLED) Low()  { machine.Pin(p).Low() }
