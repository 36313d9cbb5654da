//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-tty"
	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool

	// Keys reads button presses from the controlling terminal.
	Keys bool
}

// RunHeadless runs the board without a window. run is started on its own
// goroutine and the runner returns once it does. With cfg.Keys the terminal
// is switched to raw mode: keys '1'.. press the buttons, 'q' or Ctrl-C
// cancels run's context.
func RunHeadless(ctx context.Context, h HAL, cfg HeadlessConfig, run func(context.Context) error) error {
	hh, ok := h.(*hostHAL)
	if !ok {
		return fmt.Errorf("headless: unsupported HAL %T", h)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return run(ctx)
	})

	if cfg.Keys {
		t, err := tty.Open()
		if err != nil {
			hh.logger.WriteLineString(fmt.Sprintf("headless: no terminal input: %v", err))
		} else {
			g.Go(func() error {
				<-ctx.Done()
				return t.Close()
			})
			g.Go(func() error {
				return hh.readKeys(ctx, t, cancel)
			})
		}
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type runeReader interface {
	ReadRune() (rune, error)
}

// readKeys feeds terminal keys to the buttons until ctx ends or the
// terminal is closed.
func (h *hostHAL) readKeys(ctx context.Context, r runeReader, quit context.CancelFunc) error {
	for {
		c, err := r.ReadRune()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("headless: read key: %w", err)
		}
		ev := KeyEvent{Press: true, Rune: c}
		if c == '\r' || c == '\n' {
			ev = KeyEvent{Code: KeyEnter, Press: true}
			h.handleKey(ev)
			ev.Press = false
		}
		if h.handleKey(ev) {
			quit()
			return nil
		}
	}
}
