//go:build rp2040 || rp2350

package fmtx

import "io"

// Signatures match fmt.

func Sprintf(format string, a ...any) string { return string(appendf(nil, format, a, nil)) }

func Appendf(b []byte, format string, a ...any) []byte { return appendf(b, format, a, nil) }

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	return w.Write(appendf(nil, format, a, nil))
}

func Errorf(format string, a ...any) error { return errorf(format, a...) }
