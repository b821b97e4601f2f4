// Package icmd provides a TinyGo-friendly driver for the iC-MD quadrature
// counter (1..3 channels, 16..48 bit) on SPI.
//
// Design notes (datasheet references):
// • SPI mode 0, max 10 MHz; read addresses carry bit 7 set.
// • One configuration byte (0x00) selects the counter layout plus per-channel
//   direction and Z polarity.
// • The counter block at 0x08 is 3..8 bytes wide depending on the layout and
//   ends with the active-low NWARN/NERR bits.
// • The instruction byte (0x30) is write-only and shared between counter
//   resets, touch-probe and the two actuator outputs.
// • Status registers 0x48..0x4A are cleared by reading.
//
// Typical use:
//
//	d := icmd.New(icmd.NewSPIBus(spi, cs))
//	d.SetCounterConfig(icmd.Cnt2x16(icmd.ChannelSetup{}, icmd.ChannelSetup{}))
//	_ = d.Init()
//	c, err := d.ReadCounter()
//
// A Device is not safe for concurrent use.
package icmd

// Device is the session state for one iC-MD.
type Device struct {
	bus RegisterBus

	cfg       CounterConfig
	status    DeviceStatus
	actuators ActuatorStatus

	// Fixed buffers to avoid per-call heap allocations.
	w [1]byte
	r [8]byte
}

// New returns a Device with the default 1x48 configuration. It does not touch
// the bus; call Init to write the configuration.
func New(bus RegisterBus) *Device {
	return &Device{
		bus: bus,
		cfg: DefaultCounterConfig(),
	}
}

// Introspection. None of these touch the bus.
func (d *Device) CounterConfig() CounterConfig   { return d.cfg }
func (d *Device) DeviceStatus() DeviceStatus     { return d.status }
func (d *Device) ActuatorStatus() ActuatorStatus { return d.actuators }

// SetCounterConfig stores cfg. The hardware keeps its current layout until
// the next Init.
func (d *Device) SetCounterConfig(cfg CounterConfig) { d.cfg = cfg }

// Init writes the stored configuration to the counter configuration register.
func (d *Device) Init() error {
	return d.writeByte(regCounterConfig, EncodeConfig(d.cfg))
}

// ReadCounter reads the counter block for the stored layout and refreshes
// DeviceStatus from the inline NWARN/NERR bits. On a bus error nothing is
// updated.
func (d *Device) ReadCounter() (Count, error) {
	l := d.cfg.Layout()
	buf := d.r[:PayloadLen(l)]
	if err := d.read(regCounter, buf); err != nil {
		return nil, err
	}
	c, nwarn, nerr := DecodeCount(l, buf)
	d.status = deviceStatusFromLines(nwarn, nerr)
	return c, nil
}

// ReadReferenceCounter reads the 24-bit REF register.
//
// Unverified on hardware: the device may auto-increment the address as it
// does for the counter block, in which case a standalone read of 0x10 does
// not return REF.
func (d *Device) ReadReferenceCounter() (int32, error) {
	buf := d.r[:3]
	if err := d.read(regReference, buf); err != nil {
		return 0, err
	}
	v := uint64(buf[0])<<16 | uint64(buf[1])<<8 | uint64(buf[2])
	return int32(signExtend(v, referenceBits)), nil
}

// ConfigureActuatorPins drives ACT0/ACT1. The stored ActuatorStatus changes
// only when the write succeeds.
func (d *Device) ConfigureActuatorPins(act0, act1 PinStatus) error {
	next := ActuatorStatus{Act0: act0, Act1: act1}
	if err := d.writeByte(regInstruction, next.bits()); err != nil {
		return err
	}
	d.actuators = next
	return nil
}

// ResetCounters zeroes the selected counters. The request is not checked
// against the layout; the device ignores resets of absent counters.
func (d *Device) ResetCounters(cnt0, cnt1, cnt2 bool) error {
	var ins byte
	if cnt0 {
		ins |= 1 << insABRes0
	}
	if cnt1 {
		ins |= 1 << insABRes1
	}
	if cnt2 {
		ins |= 1 << insABRes2
	}
	return d.instruct(ins)
}

// ResetAllCounters resets counters 0, 1 and 2.
func (d *Device) ResetAllCounters() error { return d.ResetCounters(true, true, true) }

// TouchProbe loads TP2 with TP1 and TP1 with the AB counter value.
func (d *Device) TouchProbe() error { return d.instruct(1 << insTP) }

// EnableZeroCodification starts the zero codification process that loads
// the REF register on the following index pulses.
func (d *Device) EnableZeroCodification() error { return d.instruct(1 << insZCEn) }

// ReadFullStatus reads Status0..Status2 and replaces DeviceStatus with the
// external warning/error bits.
//
// The device clears most status bits when they are read, so two calls in a
// row do not return the same result. If any of the three reads fails nothing
// is updated.
func (d *Device) ReadFullStatus() (FullStatus, error) {
	var raw [3]byte
	for i, reg := range [3]byte{regStatus0, regStatus1, regStatus2} {
		if err := d.read(reg, raw[i:i+1]); err != nil {
			return FullStatus{}, err
		}
	}
	fs := DecodeFullStatus(raw[0], raw[1], raw[2])
	d.status = fs.DeviceStatus()
	return fs, nil
}

// instruct writes an instruction byte with the current actuator levels
// folded in. The instruction register is a single byte: a write without the
// ACT bits would drop both outputs to GND.
func (d *Device) instruct(cmd byte) error {
	return d.writeByte(regInstruction, cmd|d.actuators.bits())
}

func (d *Device) writeByte(reg, v byte) error {
	d.w[0] = v
	if err := d.bus.WriteRegister(reg, d.w[:]); err != nil {
		return &TransportError{Op: "write", Addr: reg, Err: err}
	}
	return nil
}

func (d *Device) read(reg byte, out []byte) error {
	if err := d.bus.ReadRegister(reg, out); err != nil {
		return &TransportError{Op: "read", Addr: reg, Err: err}
	}
	return nil
}
