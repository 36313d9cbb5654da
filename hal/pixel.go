package hal

import "image/color"

func rgb565(r, g, b uint8) uint16 {
	rr := uint16(r>>3) & 0x1F
	gg := uint16(g>>2) & 0x3F
	bb := uint16(b>>3) & 0x1F
	return (rr << 11) | (gg << 5) | bb
}

func rgb888From565(p uint16) (r, g, b uint8) {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F

	r = uint8((rr * 255) / 31)
	g = uint8((gg * 255) / 63)
	b = uint8((bb * 255) / 31)
	return r, g, b
}

// Canvas adapts an RGB565 framebuffer to drivers.Displayer, so tinyfont and
// other TinyGo drawing code can render into it.
type Canvas struct {
	FB Framebuffer
}

func (c Canvas) Size() (x, y int16) {
	if c.FB == nil {
		return 0, 0
	}
	return int16(c.FB.Width()), int16(c.FB.Height())
}

func (c Canvas) SetPixel(x, y int16, col color.RGBA) {
	if c.FB == nil || c.FB.Format() != PixelFormatRGB565 {
		return
	}
	buf := c.FB.Buffer()
	if buf == nil {
		return
	}
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= c.FB.Width() || iy < 0 || iy >= c.FB.Height() {
		return
	}
	off := iy*c.FB.StrideBytes() + ix*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	pixel := rgb565(col.R, col.G, col.B)
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

// FillRect paints a w by h rectangle, clipped to the framebuffer.
func (c Canvas) FillRect(x, y, w, h int16, col color.RGBA) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			c.SetPixel(i, j, col)
		}
	}
}

func (c Canvas) Display() error {
	if c.FB == nil {
		return ErrNotImplemented
	}
	return c.FB.Present()
}
