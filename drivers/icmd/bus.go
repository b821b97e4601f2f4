package icmd

import (
	"sync"

	"tinygo.org/x/drivers"
)

// RegisterBus moves register contents to and from the device. Implementations
// send read addresses as addr|0x80 and write addresses as-is, and must keep
// the address and data phases under one chip-select assertion.
type RegisterBus interface {
	WriteRegister(addr byte, data []byte) error
	ReadRegister(addr byte, out []byte) error
}

// TransportError wraps whatever the bus reported. It is never retried here.
type TransportError struct {
	Op   string // "read" or "write"
	Addr byte
	Err  error
}

func (e *TransportError) Error() string {
	msg := "icmd: " + e.Op + " 0x" + hex2(e.Addr) + " failed"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// hex2 avoids fmt on TinyGo builds.
func hex2(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0F]})
}

// MaxSPIHz is the highest SPI clock the device accepts.
const MaxSPIHz = 10_000_000

// PinOutput drives a logic level; used for chip select. Keeping it a func
// keeps the driver free of machine.Pin.
type PinOutput func(level bool)

// SPIBus adapts a TinyGo SPI bus plus an active-low chip-select line.
// Configure the bus for mode 0 at no more than MaxSPIHz.
type SPIBus struct {
	mu  sync.Mutex
	spi drivers.SPI
	cs  PinOutput

	addr [1]byte
}

// NewSPIBus returns a RegisterBus on spi. cs may be nil when the controller
// handles chip select itself.
func NewSPIBus(spi drivers.SPI, cs PinOutput) *SPIBus {
	if cs == nil {
		cs = func(bool) {}
	}
	cs(true)
	return &SPIBus{spi: spi, cs: cs}
}

func (b *SPIBus) WriteRegister(addr byte, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cs(false)
	defer b.cs(true)
	b.addr[0] = addr
	if err := b.spi.Tx(b.addr[:], nil); err != nil {
		return err
	}
	return b.spi.Tx(data, nil)
}

func (b *SPIBus) ReadRegister(addr byte, out []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cs(false)
	defer b.cs(true)
	b.addr[0] = addr | readFlag
	if err := b.spi.Tx(b.addr[:], nil); err != nil {
		return err
	}
	return b.spi.Tx(nil, out)
}
