package fmtx

import (
	"bytes"
	"errors"
	"testing"
)

func TestSprintfVerbs(t *testing.T) {
	type C struct {
		fmt  string
		args []any
		want string
	}
	for _, c := range []C{
		{"hello %s", []any{"world"}, "hello world"},
		{"num %d hex %x HEX %X", []any{255, 255, 255}, "num 255 hex ff HEX FF"},
		{"config 0x%02x", []any{byte(2)}, "config 0x02"},
		{"counts %v", []any{[]int64{-5, 8388607}}, "counts [-5 8388607]"},
		{"ref %x", []any{int64(-1)}, "ref -1"},
		{"bool %t %t", []any{true, false}, "bool true false"},
		{"literal %%", nil, "literal %"},
		{"q=%q", []any{"a\"b\\c"}, `q="a\"b\\c"`},
		{"trim: %.3s", []any{"abcdef"}, "trim: abc"},
	} {
		if got := Sprintf(c.fmt, c.args...); got != c.want {
			t.Fatalf("Sprintf(%q, ...) = %q, want %q", c.fmt, got, c.want)
		}
	}
}

func TestAppendfAndFprintf(t *testing.T) {
	if got := string(Appendf([]byte("x="), "%d", 7)); got != "x=7" {
		t.Fatalf("Appendf = %q", got)
	}
	var buf bytes.Buffer
	n, err := Fprintf(&buf, "v=%d", 7)
	if err != nil || n != 3 || buf.String() != "v=7" {
		t.Fatalf("Fprintf wrote %q (%d, %v)", buf.String(), n, err)
	}
}

func TestErrorfUnwraps(t *testing.T) {
	base := errors.New("nack")
	err := Errorf("device %q: %w", "spindle", base)
	if !errors.Is(err, base) || err.Error() != `device "spindle": nack` {
		t.Fatalf("got %v", err)
	}
}
