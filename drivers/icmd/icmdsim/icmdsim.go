// Package icmdsim is an in-memory iC-MD behind icmd.RegisterBus. It keeps
// the configuration byte, counter values, status registers and actuator
// levels, and is safe for concurrent use.
package icmdsim

import (
	"errors"
	"sync"

	"icmd-go/drivers/icmd"
)

var ErrNoRegister = errors.New("icmdsim: no such register")

// Register addresses as seen on the wire (without the read flag).
const (
	RegConfig      = 0x00
	RegCounter     = 0x08
	RegReference   = 0x10
	RegInstruction = 0x30
	RegStatus0     = 0x48
	RegStatus1     = 0x49
	RegStatus2     = 0x4A
)

// Instruction bits.
const (
	InsABRes0 = 1 << 0
	InsABRes1 = 1 << 1
	InsABRes2 = 1 << 2
	InsZCEn   = 1 << 3
	InsTP     = 1 << 4
	InsAct0   = 1 << 5
	InsAct1   = 1 << 6
)

// MaxWrites bounds the write log; older entries are dropped first.
const MaxWrites = 64

type Write struct {
	Addr byte
	Data []byte
}

type Device struct {
	mu sync.Mutex

	config    byte
	counts    [3]int64
	nwarn     bool
	nerr      bool
	status    [3]byte
	ref       int32
	act       byte
	writes    []Write
	readErr   error
	writeErr  error
	readCount int
}

// New returns a device in its reset state: layout 1x24, counters zero,
// NWARN/NERR high.
func New() *Device {
	return &Device{nwarn: true, nerr: true}
}

// ---- icmd.RegisterBus ----

func (d *Device) WriteRegister(addr byte, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		return d.writeErr
	}
	if len(d.writes) == MaxWrites {
		d.writes = append(d.writes[:0], d.writes[1:]...)
	}
	d.writes = append(d.writes, Write{Addr: addr, Data: append([]byte(nil), data...)})
	if len(data) == 0 {
		return nil
	}
	switch addr {
	case RegConfig:
		d.config = data[0]
	case RegInstruction:
		ins := data[0]
		for i, mask := range [3]byte{InsABRes0, InsABRes1, InsABRes2} {
			if ins&mask != 0 {
				d.counts[i] = 0
			}
		}
		if ins&InsTP != 0 {
			d.status[0] |= 1 << 0 // TPVAL
		}
		d.act = ins & (InsAct0 | InsAct1)
	default:
		return ErrNoRegister
	}
	return nil
}

func (d *Device) ReadRegister(addr byte, out []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readErr != nil {
		return d.readErr
	}
	d.readCount++
	switch addr {
	case RegCounter:
		l := icmd.Layout(d.config & 0x07)
		copy(out, icmd.EncodeCount(icmd.NewCount(l, d.counts[:]...), d.nwarn, d.nerr))
	case RegReference:
		v := uint32(d.ref) & 0xFFFFFF
		copy(out, []byte{byte(v >> 16), byte(v >> 8), byte(v)})
	case RegStatus0, RegStatus1, RegStatus2:
		i := addr - RegStatus0
		if len(out) > 0 {
			out[0] = d.status[i]
		}
		// Read-to-clear, except the REF/UPD validity bits.
		if i == 0 {
			d.status[0] &= 0x0C
		} else {
			d.status[i] = 0
		}
	default:
		return ErrNoRegister
	}
	return nil
}

// ---- Test/demo controls ----

func (d *Device) SetCounts(v ...int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts = [3]int64{}
	copy(d.counts[:], v)
}

// Add moves counter i by delta, as encoder edges would.
func (d *Device) Add(i int, delta int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts[i] += delta
}

// SetLines sets the NWARN/NERR pin levels (true is high, i.e. no fault).
func (d *Device) SetLines(nwarn, nerr bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nwarn, d.nerr = nwarn, nerr
}

func (d *Device) SetStatus(s0, s1, s2 byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = [3]byte{s0, s1, s2}
}

func (d *Device) SetReference(v int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ref = v
}

// FailReads makes every read return err until called with nil.
func (d *Device) FailReads(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readErr = err
}

func (d *Device) FailWrites(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeErr = err
}

func (d *Device) Config() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// Actuators returns the ACT0/ACT1 bits of the last instruction.
func (d *Device) Actuators() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.act
}

// Writes returns a copy of the last MaxWrites accepted writes, oldest first.
func (d *Device) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Write(nil), d.writes...)
}

func (d *Device) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readCount
}
