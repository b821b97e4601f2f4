package periphbus

import (
	"bytes"
	"errors"
	"testing"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"

	"icmd-go/drivers/icmd"
)

func playback(ops ...conntest.IO) *spitest.Playback {
	return &spitest.Playback{Playback: conntest.Playback{Ops: ops, DontPanic: true}}
}

func connect(t *testing.T, p *spitest.Playback) *Bus {
	t.Helper()
	b, err := Connect(p, 4*physic.MegaHertz)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := p.Close(); err != nil {
			t.Error(err)
		}
	})
	return b
}

func TestWriteFrame(t *testing.T) {
	b := connect(t, playback(conntest.IO{W: []byte{0x00, 0x4E}, R: []byte{0, 0}}))
	if err := b.WriteRegister(0x00, []byte{0x4E}); err != nil {
		t.Fatal(err)
	}
}

func TestReadFrame(t *testing.T) {
	b := connect(t, playback(conntest.IO{W: []byte{0x88, 0, 0, 0}, R: []byte{0xFF, 0x00, 0x01, 0xC0}}))
	out := make([]byte, 3)
	if err := b.ReadRegister(0x08, out); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, []byte{0x00, 0x01, 0xC0}) {
		t.Fatalf("out % x", out)
	}
}

// A previous write must not leak into the padding of the next read.
func TestReadPaddingIsZero(t *testing.T) {
	b := connect(t, playback(
		conntest.IO{W: []byte{0x30, 0x7F}, R: []byte{0, 0}},
		conntest.IO{W: []byte{0xC8, 0x00}, R: []byte{0, 0x0C}},
	))
	_ = b.WriteRegister(0x30, []byte{0x7F})
	out := make([]byte, 1)
	if err := b.ReadRegister(0x48, out); err != nil || out[0] != 0x0C {
		t.Fatalf("out=% x err=%v", out, err)
	}
}

func TestReadErrorLeavesOut(t *testing.T) {
	// Playback with no ops fails every Tx.
	p := playback()
	b, err := Connect(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	out := []byte{0xAA}
	if err := b.ReadRegister(0x49, out); err == nil {
		t.Fatal("expected error")
	}
	if out[0] != 0xAA {
		t.Fatal("out modified on error")
	}
}

func TestConnectTwiceFails(t *testing.T) {
	p := playback()
	if _, err := Connect(p, MaxHz); err != nil {
		t.Fatal(err)
	}
	if _, err := Connect(p, MaxHz); err == nil {
		t.Fatal("second Connect should fail")
	}
}

func TestTooLong(t *testing.T) {
	b := New(nil)
	if err := b.ReadRegister(0x08, make([]byte, 9)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("err=%v", err)
	}
	if err := b.WriteRegister(0x00, make([]byte, 9)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("err=%v", err)
	}
}

func TestDeviceOverPeriphBus(t *testing.T) {
	// Default 1x48 layout: Init, then one read of value 1 with both lines high.
	b := connect(t, playback(
		conntest.IO{W: []byte{0x00, 0x02}, R: []byte{0, 0}},
		conntest.IO{W: []byte{0x88, 0, 0, 0, 0, 0, 0, 0}, R: []byte{0, 0, 0, 0, 0, 0, 1, 0xC0}},
	))
	d := icmd.New(b)
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	cnt, err := d.ReadCounter()
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := cnt.Channel(0); v != 1 || !d.DeviceStatus().IsOK() {
		t.Fatalf("v=%d status=%+v", v, d.DeviceStatus())
	}
}
