// Package periphbus carries iC-MD register transactions over a Linux SPI
// port through periph.io.
//
// periph drives chip select for the whole Tx, so the address byte and the
// data phase go out as one full-duplex transfer.
package periphbus

import (
	"errors"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"icmd-go/drivers/icmd"
	"icmd-go/x/mathx"
)

// MaxHz is the iC-MD SPI clock ceiling.
const MaxHz = physic.Frequency(icmd.MaxSPIHz) * physic.Hertz

const readFlag = 0x80

var _ icmd.RegisterBus = (*Bus)(nil)

var ErrTooLong = errors.New("periphbus: transfer too long")

// Conn is the part of spi.Conn the bus uses.
type Conn interface {
	Tx(w, r []byte) error
}

// Bus implements icmd.RegisterBus.
type Bus struct {
	mu sync.Mutex
	c  Conn

	w [9]byte
	r [9]byte
}

func New(c Conn) *Bus { return &Bus{c: c} }

// Connect sets p to mode 0, 8 bits, at hz capped to MaxHz.
func Connect(p spi.Port, hz physic.Frequency) (*Bus, error) {
	if hz <= 0 {
		hz = MaxHz
	}
	c, err := p.Connect(mathx.Clamp(hz, physic.Hertz, MaxHz), spi.Mode0, 8)
	if err != nil {
		return nil, err
	}
	return New(c), nil
}

// Open connects to the named port ("" picks the first registered one).
// host.Init must have run. Close the returned closer when done.
func Open(name string, hz physic.Frequency) (*Bus, spi.PortCloser, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, nil, err
	}
	b, err := Connect(p, hz)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return b, p, nil
}

func (b *Bus) WriteRegister(addr byte, data []byte) error {
	n := len(data) + 1
	if n > len(b.w) {
		return ErrTooLong
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.w[0] = addr
	copy(b.w[1:], data)
	return b.c.Tx(b.w[:n], b.r[:n])
}

func (b *Bus) ReadRegister(addr byte, out []byte) error {
	n := len(out) + 1
	if n > len(b.w) {
		return ErrTooLong
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.w[0] = addr | readFlag
	clear(b.w[1:n])
	if err := b.c.Tx(b.w[:n], b.r[:n]); err != nil {
		return err
	}
	copy(out, b.r[1:n])
	return nil
}
