//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"image/color"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type scriptedKeys struct {
	keys []rune
}

func (s *scriptedKeys) ReadRune() (rune, error) {
	if len(s.keys) == 0 {
		return 0, io.EOF
	}
	r := s.keys[0]
	s.keys = s.keys[1:]
	return r, nil
}

func TestReadKeysPressesButtons(t *testing.T) {
	h := New(48_000_000).(*hostHAL)
	var presses []string
	for _, b := range h.buttons {
		name := b.Name()
		b.SetInterrupt(func() { presses = append(presses, name) })
	}

	quit := false
	err := h.readKeys(context.Background(), &scriptedKeys{keys: []rune("12x\r2q1")}, func() { quit = true })
	if err != nil {
		t.Fatalf("readKeys: %v", err)
	}
	if !quit {
		t.Fatal("expected q to quit")
	}
	if diff := cmp.Diff([]string{"S1", "S2", "S1", "S2"}, presses); diff != "" {
		t.Fatalf("presses (-want +got):\n%s", diff)
	}
}

func TestReadKeysReportsReadError(t *testing.T) {
	h := New(48_000_000).(*hostHAL)
	err := h.readKeys(context.Background(), &scriptedKeys{}, func() {})
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestRunHeadlessReturnsWithRun(t *testing.T) {
	h := New(48_000_000)
	ran := false
	err := RunHeadless(context.Background(), h, HeadlessConfig{Enabled: true}, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("RunHeadless: %v", err)
	}
	if !ran {
		t.Fatal("expected run called")
	}

	boom := errors.New("boom")
	err = RunHeadless(context.Background(), h, HeadlessConfig{Enabled: true}, func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected run error, got %v", err)
	}
}

func TestHostLEDBankOverBus(t *testing.T) {
	h := New(48_000_000).(*hostHAL)
	if err := h.LEDs().Set(LEDGreen, 0x0003); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var ls [4]byte
	if err := h.bus.Tx(lp3943Addr+uint16(LEDGreen), []byte{lp3943LS0}, ls[:]); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if ls != [4]byte{0x05, 0, 0, 0} {
		t.Fatalf("LS registers=%x, want 05000000", ls)
	}
	if h.LEDs().State(LEDGreen) != 0x0003 {
		t.Fatalf("State=%#04x", h.LEDs().State(LEDGreen))
	}
}

func TestCanvasPresent(t *testing.T) {
	fb := newHostFramebuffer(4, 2)
	c := Canvas{FB: fb}
	if x, y := c.Size(); x != 4 || y != 2 {
		t.Fatalf("Size=%d,%d", x, y)
	}
	c.SetPixel(1, 1, color.RGBA{R: 255, A: 255})
	c.SetPixel(9, 9, color.RGBA{G: 255, A: 255})

	snap := make([]byte, len(fb.buf))
	gen := fb.snapshotRGB565(snap)
	if snap[1*fb.stride+2] != 0 {
		t.Fatal("pixel visible before Present")
	}
	if err := c.Display(); err != nil {
		t.Fatalf("Display: %v", err)
	}
	if next := fb.snapshotRGB565(snap); next == gen {
		t.Fatal("expected a new generation after Present")
	}
	off := 1*fb.stride + 2
	if got := uint16(snap[off]) | uint16(snap[off+1])<<8; got != 0xF800 {
		t.Fatalf("pixel=%#04x, want 0xf800", got)
	}
}

type lineRecorder struct{ lines []string }

func (l *lineRecorder) WriteLineString(s string) { l.lines = append(l.lines, s) }
func (l *lineRecorder) WriteLineBytes(b []byte)  { l.lines = append(l.lines, string(b)) }

func TestLineWriterSplitsRecords(t *testing.T) {
	rec := &lineRecorder{}
	w := LineWriter{L: rec}
	n, err := w.Write([]byte("{\"a\":1}\n{\"b\":2}\n"))
	if err != nil || n != 16 {
		t.Fatalf("Write=%d,%v", n, err)
	}
	w.Write([]byte("tail"))
	if diff := cmp.Diff([]string{`{"a":1}`, `{"b":2}`, "tail"}, rec.lines); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
}
