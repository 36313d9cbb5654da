package app

import (
	"errors"
	"fmt"
	"image/color"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"pulse/hal"
	"pulse/kernel"
)

var (
	colorBG     = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	colorFG     = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	colorDim    = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	colorHeader = color.RGBA{R: 0x4a, G: 0xdf, B: 0x6a, A: 0xff}
	colorAlarm  = color.RGBA{R: 0xff, G: 0x44, B: 0x44, A: 0xff}
)

var monitorFont = &proggy.TinySZ8pt7b

const (
	monitorLineHeight = 10
	monitorBaseline   = 8
)

// monitor periodically draws the thread table and reports FIFO loss.
func (s *System) monitor() {
	var (
		infos    = make([]kernel.ThreadInfo, 0, kernel.MaxThreads)
		reported uint32
	)
	for {
		s.k.Sleep(s.cfg.MonitorTicks)

		lost, err := s.k.LostData(SensorFIFO)
		if err != nil {
			s.die(fmt.Errorf("monitor: %w", err))
		}
		if lost != reported && s.limiter.allow(s.k.Now()) {
			s.log.Warning().
				Uint64("lost", uint64(lost)).
				Uint64("new", uint64(lost-reported)).
				Int("fifo", SensorFIFO).
				Log("sensor fifo overrun")
			reported = lost
			s.stats.LossLines++
		}

		infos = s.k.Threads(infos[:0])
		if s.draw(infos, lost) {
			s.stats.Frames++
		}
	}
}

// draw renders one monitor frame. It reports whether a frame was presented.
func (s *System) draw(infos []kernel.ThreadInfo, lost uint32) bool {
	fb := framebuffer(s.b.HAL)
	if fb == nil {
		return false
	}
	c := hal.Canvas{FB: fb}
	fb.ClearRGB(colorBG.R, colorBG.G, colorBG.B)

	y := int16(0)
	line := func(col color.RGBA, format string, args ...any) {
		tinyfont.WriteLine(c, monitorFont, 2, y+monitorBaseline, fmt.Sprintf(format, args...), col)
		y += monitorLineHeight
	}

	line(colorHeader, "pulse  t=%d  threads=%d", s.k.Now(), len(infos))
	line(colorDim, "%-8s %-16s %4s %s", "id", "name", "prio", "state")
	for _, t := range infos {
		col := colorFG
		if t.Current {
			col = colorHeader
		}
		state := t.State.String()
		if t.State == kernel.ThreadAsleep {
			state = fmt.Sprintf("%s %d", state, t.SleepUntil)
		}
		line(col, "%08x %-16s %4d %s", uint32(t.ID), t.Name, t.Priority, state)
		if int(y)+monitorLineHeight > fb.Height() {
			break
		}
	}

	y += monitorLineHeight / 2
	col := colorFG
	if lost > 0 {
		col = colorAlarm
	}
	line(col, "fifo%d lost=%d samples=%d", SensorFIFO, lost, s.stats.Samples)
	if leds := s.b.HAL.LEDs(); leds != nil {
		line(colorDim, "leds g=%04x r=%04x", leds.State(hal.LEDGreen), leds.State(hal.LEDRed))
	}

	if err := c.Display(); err != nil {
		if !errors.Is(err, hal.ErrNotImplemented) {
			s.log.Err().Err(err).Log("monitor: present")
		}
		return false
	}
	return true
}

func framebuffer(h hal.HAL) hal.Framebuffer {
	if h == nil {
		return nil
	}
	d := h.Display()
	if d == nil {
		return nil
	}
	fb := d.Framebuffer()
	if fb == nil || fb.Buffer() == nil {
		return nil
	}
	return fb
}
