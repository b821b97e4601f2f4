package errcode

import (
	"context"
	"errors"
	"testing"

	"icmd-go/drivers/icmd"
)

func TestOf(t *testing.T) {
	transport := &icmd.TransportError{Op: "read", Addr: 0x08, Err: errors.New("nack")}
	for _, c := range []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"code", Busy, Busy},
		{"wrapped code", &E{C: UnknownVerb, Op: "control"}, UnknownVerb},
		{"transport", transport, TransportError},
		{"wrapped transport", Wrap("read", transport), TransportError},
		{"layout", icmd.ErrInvalidLayout, InvalidLayout},
		{"name", icmd.ErrUnknownName, InvalidPayload},
		{"deadline", context.DeadlineExceeded, Timeout},
		{"other", errors.New("x"), Error},
	} {
		if got := Of(c.err); got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestEMessage(t *testing.T) {
	e := &E{C: InvalidPayload, Op: "configure", Msg: "want CounterSetup"}
	if e.Error() != "configure: invalid_payload: want CounterSetup" {
		t.Fatalf("got %q", e.Error())
	}
	if (&E{C: Busy}).Error() != "busy" {
		t.Fatal("bare code")
	}
}

func TestWrap(t *testing.T) {
	if Wrap("x", nil) != nil {
		t.Fatal("nil in, nil out")
	}
	inner := &icmd.TransportError{Op: "write", Addr: 0x30}
	err := Wrap("reset", inner)
	var te *icmd.TransportError
	if !errors.As(err, &te) {
		t.Fatal("cause lost")
	}
}
