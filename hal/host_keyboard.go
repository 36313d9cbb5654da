//go:build !tinygo && cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// windowKeys appends the key events of the current window frame to dst.
// Enter is reported on press and release so it can hold a button down.
func windowKeys(dst []KeyEvent) []KeyEvent {
	for _, r := range ebiten.AppendInputChars(nil) {
		dst = append(dst, KeyEvent{Press: true, Rune: r})
	}
	for _, k := range [...]struct {
		key  ebiten.Key
		code KeyCode
	}{
		{ebiten.KeyEnter, KeyEnter},
		{ebiten.KeyEscape, KeyEscape},
	} {
		switch {
		case inpututil.IsKeyJustPressed(k.key):
			dst = append(dst, KeyEvent{Code: k.code, Press: true})
		case inpututil.IsKeyJustReleased(k.key):
			dst = append(dst, KeyEvent{Code: k.code})
		}
	}
	return dst
}
