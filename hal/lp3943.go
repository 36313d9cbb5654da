package hal

import (
	"fmt"
	"sync"

	"tinygo.org/x/drivers"
)

const (
	// lp3943Addr is the bus address of the blue unit; green and red follow.
	lp3943Addr = 0x60

	// lp3943LS0 is the first LED selector register. With auto-increment the
	// four selectors LS0..LS3 are written in one transfer.
	lp3943LS0 = 0x16
)

// LP3943 drives the RGB LED bank: three LP3943 fan-out drivers, one per
// colour, each switching 16 LEDs.
type LP3943 struct {
	bus   drivers.I2C
	mu    sync.Mutex
	state [numLEDUnits]uint16
	tx    [5]byte
}

// NewLP3943 returns a bank on bus. Nothing is sent until Set.
func NewLP3943(bus drivers.I2C) *LP3943 {
	return &LP3943{bus: bus}
}

// Reset switches every LED of every unit off.
func (d *LP3943) Reset() error {
	for u := LEDUnit(0); u < numLEDUnits; u++ {
		if err := d.Set(u, 0); err != nil {
			return err
		}
	}
	return nil
}

// Set switches on exactly the LEDs of unit whose bit is set in mask.
func (d *LP3943) Set(unit LEDUnit, mask uint16) error {
	if unit >= numLEDUnits {
		return fmt.Errorf("lp3943: invalid unit %d", unit)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	sel := lp3943Selectors(mask)
	d.tx[0] = lp3943LS0
	d.tx[1] = byte(sel)
	d.tx[2] = byte(sel >> 8)
	d.tx[3] = byte(sel >> 16)
	d.tx[4] = byte(sel >> 24)
	if err := d.bus.Tx(uint16(lp3943Addr+unit), d.tx[:], nil); err != nil {
		return fmt.Errorf("lp3943: %s unit: %w", unit, err)
	}
	d.state[unit] = mask
	return nil
}

// State returns the last mask written to unit.
func (d *LP3943) State(unit LEDUnit) uint16 {
	if unit >= numLEDUnits {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state[unit]
}

// lp3943Selectors packs mask into the selector registers: two bits per LED,
// 01 for on, LED 0 in the low bits of LS0.
func lp3943Selectors(mask uint16) uint32 {
	var sel uint32
	for i := 0; i < 16; i++ {
		if mask&(1<<i) != 0 {
			sel |= 1 << (2 * i)
		}
	}
	return sel
}
