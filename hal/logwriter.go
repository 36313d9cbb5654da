package hal

import "bytes"

// LineWriter adapts l to io.Writer for encoders that emit one
// newline-terminated record per Write, such as JSON log handlers.
type LineWriter struct {
	L Logger
}

func (w LineWriter) Write(p []byte) (int, error) {
	if w.L == nil {
		return len(p), nil
	}
	n := len(p)
	for len(p) > 0 {
		line := p
		if i := bytes.IndexByte(p, '\n'); i >= 0 {
			line, p = p[:i], p[i+1:]
		} else {
			p = nil
		}
		w.L.WriteLineBytes(line)
	}
	return n, nil
}
