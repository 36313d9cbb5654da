//go:build !tinygo && cgo

package hal

import (
	"context"
	"errors"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"

	"pulse/internal/buildinfo"
)

// RunWindow runs the board in a desktop window that shows the framebuffer
// and turns keys into button presses. run is started on its own goroutine;
// closing the window cancels its context, and run returning closes the
// window. It must be called from the main goroutine.
func RunWindow(ctx context.Context, h HAL, run func(context.Context) error) error {
	hh := h.(*hostHAL)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return run(gctx)
	})

	game := &hostGame{h: hh, ctx: gctx, quit: cancel}
	ebiten.SetWindowTitle("Pulse (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(hh.fb.width*2, hh.fb.height*2)
	ebiten.SetTPS(60)
	err := ebiten.RunGame(game)
	cancel()

	if werr := g.Wait(); werr != nil {
		return werr
	}
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

type hostGame struct {
	h       *hostHAL
	ctx     context.Context
	quit    context.CancelFunc
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	gen     uint64
	keys    []KeyEvent
}

func (g *hostGame) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	g.keys = windowKeys(g.keys[:0])
	for _, ev := range g.keys {
		if g.h.handleKey(ev) {
			g.quit()
			return ebiten.Termination
		}
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	if gen := fb.snapshotRGB565(g.scratch); gen != g.gen {
		g.gen = gen
		src := g.scratch
		dst := g.img.Pix
		for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
			r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
			j := (i / 2) * 4
			dst[j+0] = r
			dst[j+1] = gg
			dst[j+2] = b
			dst[j+3] = 0xFF
		}
		g.fbImg.WritePixels(g.img.Pix)
	}
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
