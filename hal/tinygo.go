//go:build tinygo && baremetal

package hal

import "machine"

type boardHAL struct {
	clock  boardClock
	logger *uartLogger
	leds   *LP3943
	gpio   GPIO
}

// New returns the board HAL. cpuHz overrides the core clock reported by
// Clock; 0 reads it from the machine package.
//
// UART: the default UART at 115200 8N1. LED bank: LP3943 drivers on I2C0.
// The board has no display, so Display returns nil.
func New(cpuHz uint32) HAL {
	uart := machine.Serial
	uart.Configure(machine.UARTConfig{BaudRate: 115200})

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	i2c := machine.I2C0
	i2c.Configure(machine.I2CConfig{})
	leds := NewLP3943(i2c)
	leds.Reset()

	return &boardHAL{
		clock:  boardClock{hz: cpuHz},
		logger: &uartLogger{uart: uart},
		leds:   leds,
		gpio:   newPinSet(newLEDPin("LED", pinLED(led))),
	}
}

func (h *boardHAL) Logger() Logger   { return h.logger }
func (h *boardHAL) LEDs() LEDs       { return h.leds }
func (h *boardHAL) Clock() Clock     { return h.clock }
func (h *boardHAL) GPIO() GPIO       { return h.gpio }
func (h *boardHAL) Display() Display { return nil }
