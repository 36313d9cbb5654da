//go:build !tinygo

package hal

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyEnter
	KeyEscape
)

// KeyEvent is a keyboard event. Printable keys carry Rune and are reported
// as presses only.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}
