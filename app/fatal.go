package app

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"tinygo.org/x/tinyfont"

	"pulse/hal"
	"pulse/internal/buildinfo"
)

// fatal reports err on the log and the display, then halts the board. The
// caller must not touch the kernel afterwards except to park.
func (s *System) fatal(err error) {
	s.log.Crit().
		Err(err).
		Uint64("now", uint64(s.k.Now())).
		Uint64("thread", uint64(s.k.CurrentThreadID())).
		Log("pulse fatal")

	if fb := framebuffer(s.b.HAL); fb != nil {
		drawLines(fb, color.RGBA{R: 255, G: 255, B: 255, A: 255}, color.RGBA{A: 255}, []string{
			"pulse fatal:",
			fmt.Sprintf("t=%d thread=%08x", s.k.Now(), uint32(s.k.CurrentThreadID())),
			err.Error(),
		})
	}
	s.halt()
}

// splash shows the boot screen.
func (s *System) splash(msg string) {
	fb := framebuffer(s.b.HAL)
	if fb == nil {
		return
	}
	drawLines(fb, colorBG, colorFG, []string{"pulse " + buildinfo.Short(), msg})
}

// drawLines clears fb to bg and writes lines top to bottom in fg, wrapping
// at the screen width. Lines that do not fit are dropped.
func drawLines(fb hal.Framebuffer, bg, fg color.RGBA, lines []string) {
	fb.ClearRGB(bg.R, bg.G, bg.B)

	_, outboxWidth := tinyfont.LineWidth(monitorFont, "0")
	fontWidth := int16(outboxWidth)
	if fontWidth <= 0 {
		_ = fb.Present()
		return
	}
	d := hal.Canvas{FB: fb}
	cols := int16(fb.Width()) / fontWidth
	if cols <= 0 {
		cols = 1
	}

	y := int16(0)
	maxH := int16(fb.Height())
	for _, line := range lines {
		for len(line) > 0 {
			if y+monitorLineHeight > maxH {
				_ = fb.Present()
				return
			}
			chunk, rest := takeRunes(line, cols)
			drawTextLine(d, fontWidth, 0, y, chunk, fg)
			y += monitorLineHeight
			line = strings.TrimLeft(rest, " ")
		}
	}
	_ = fb.Present()
}

func drawTextLine(d hal.Canvas, fontWidth, x0, y0 int16, s string, fg color.RGBA) {
	x := x0
	for _, r := range s {
		tinyfont.DrawChar(d, monitorFont, x, y0+monitorBaseline, r, fg)
		x += fontWidth
	}
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
