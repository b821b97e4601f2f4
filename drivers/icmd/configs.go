package icmd

import "errors"

var (
	ErrUnknownName   = errors.New("icmd: unknown name")
	ErrInvalidLayout = errors.New("icmd: invalid layout")
)

// Direction selects which rotation counts positive. CW is the reset default.
type Direction uint8

const (
	CW Direction = iota
	CCW
)

func (d Direction) String() string {
	if d == CCW {
		return "ccw"
	}
	return "cw"
}

// ParseDirection accepts "cw", "ccw" or "" (CW).
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "cw":
		return CW, nil
	case "ccw":
		return CCW, nil
	}
	return CW, ErrUnknownName
}

// ZSignal selects the polarity of the index input.
type ZSignal uint8

const (
	ZNormal ZSignal = iota
	ZInverted
)

func (z ZSignal) String() string {
	if z == ZInverted {
		return "inverted"
	}
	return "normal"
}

func ParseZSignal(s string) (ZSignal, error) {
	switch s {
	case "", "normal":
		return ZNormal, nil
	case "inverted":
		return ZInverted, nil
	}
	return ZNormal, ErrUnknownName
}

// ChannelSetup is the per-counter part of the configuration byte.
type ChannelSetup struct {
	Direction Direction
	ZSignal   ZSignal
}

// NewChannelSetup is shorthand for a literal.
func NewChannelSetup(d Direction, z ZSignal) ChannelSetup {
	return ChannelSetup{Direction: d, ZSignal: z}
}

// Layout is the hardware counter layout. The ordinal is the value of bits
// 0-2 of the configuration register and must not be reordered.
type Layout uint8

const (
	Layout1x24    Layout = iota // CNT0 24 bit; TTL, RS422 or LVDS
	Layout2x24                  // CNT0 24 bit, CNT1 24 bit; TTL only
	Layout1x48                  // CNT0 48 bit; TTL, RS422 or LVDS
	Layout1x16                  // CNT0 16 bit; TTL, RS422 or LVDS
	Layout1x32                  // CNT0 32 bit; TTL, RS422 or LVDS
	Layout2x32x16               // CNT0 32 bit, CNT1 16 bit; TTL only
	Layout2x16                  // CNT0 16 bit, CNT1 16 bit; TTL only
	Layout3x16                  // CNT0..2 16 bit; TTL only, no Z inputs
)

var layoutNames = [...]string{"1x24", "2x24", "1x48", "1x16", "1x32", "2x32x16", "2x16", "3x16"}

func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "unknown"
}

// ParseLayout maps "1x24" .. "3x16" onto a Layout.
func ParseLayout(s string) (Layout, error) {
	for i, n := range layoutNames {
		if n == s {
			return Layout(i), nil
		}
	}
	return 0, ErrUnknownName
}

// Valid reports whether l is one of the eight hardware layouts.
func (l Layout) Valid() bool { return l <= Layout3x16 }

// Channels returns the number of counters the layout provides.
func (l Layout) Channels() int {
	switch l {
	case Layout2x24, Layout2x32x16, Layout2x16:
		return 2
	case Layout3x16:
		return 3
	default:
		return 1
	}
}

// Widths returns the bit width of each channel in channel order.
func (l Layout) Widths() []uint {
	switch l {
	case Layout1x24:
		return []uint{24}
	case Layout2x24:
		return []uint{24, 24}
	case Layout1x48:
		return []uint{48}
	case Layout1x16:
		return []uint{16}
	case Layout1x32:
		return []uint{32}
	case Layout2x32x16:
		return []uint{32, 16}
	case Layout2x16:
		return []uint{16, 16}
	case Layout3x16:
		return []uint{16, 16, 16}
	}
	return nil
}

// HasZ reports whether the layout wires Z inputs.
func (l Layout) HasZ() bool { return l != Layout3x16 }

// CounterConfig is a layout plus one setup per channel of that layout. Build
// it with the Cnt* constructors so the setup count always matches the layout.
type CounterConfig struct {
	layout Layout
	setup  [3]ChannelSetup
}

func Cnt1x24(a ChannelSetup) CounterConfig { return CounterConfig{layout: Layout1x24, setup: [3]ChannelSetup{a}} }
func Cnt1x48(a ChannelSetup) CounterConfig { return CounterConfig{layout: Layout1x48, setup: [3]ChannelSetup{a}} }
func Cnt1x16(a ChannelSetup) CounterConfig { return CounterConfig{layout: Layout1x16, setup: [3]ChannelSetup{a}} }
func Cnt1x32(a ChannelSetup) CounterConfig { return CounterConfig{layout: Layout1x32, setup: [3]ChannelSetup{a}} }

func Cnt2x24(a, b ChannelSetup) CounterConfig {
	return CounterConfig{layout: Layout2x24, setup: [3]ChannelSetup{a, b}}
}

func Cnt2x32x16(a, b ChannelSetup) CounterConfig {
	return CounterConfig{layout: Layout2x32x16, setup: [3]ChannelSetup{a, b}}
}

func Cnt2x16(a, b ChannelSetup) CounterConfig {
	return CounterConfig{layout: Layout2x16, setup: [3]ChannelSetup{a, b}}
}

// Cnt3x16 has no Z inputs; the ZSignal of each setup is ignored.
func Cnt3x16(a, b, c ChannelSetup) CounterConfig {
	return CounterConfig{layout: Layout3x16, setup: [3]ChannelSetup{a, b, c}}
}

// NewCounterConfig builds a configuration from a layout and a slice of
// setups. Missing setups default to CW/Normal, extra ones are dropped.
func NewCounterConfig(l Layout, setups []ChannelSetup) (CounterConfig, error) {
	if !l.Valid() {
		return CounterConfig{}, ErrInvalidLayout
	}
	c := CounterConfig{layout: l}
	for i := 0; i < l.Channels() && i < len(setups); i++ {
		c.setup[i] = setups[i]
	}
	return c, nil
}

// DefaultCounterConfig is the power-on driver default: one 48-bit counter.
func DefaultCounterConfig() CounterConfig { return Cnt1x48(ChannelSetup{}) }

func (c CounterConfig) Layout() Layout { return c.layout }

// Setup returns the setup of channel i, false if the layout lacks it.
func (c CounterConfig) Setup(i int) (ChannelSetup, bool) {
	if i < 0 || i >= c.layout.Channels() {
		return ChannelSetup{}, false
	}
	return c.setup[i], true
}

// Setups returns one setup per channel.
func (c CounterConfig) Setups() []ChannelSetup {
	out := make([]ChannelSetup, c.layout.Channels())
	copy(out, c.setup[:])
	return out
}

// Byte is the configuration register value; see EncodeConfig.
func (c CounterConfig) Byte() byte { return EncodeConfig(c) }

// Device status carried inline with every counter read.

type WarningStatus uint8

const (
	WarningOK WarningStatus = iota
	Warning
)

func (w WarningStatus) String() string {
	if w == Warning {
		return "warning"
	}
	return "ok"
}

type ErrorStatus uint8

const (
	ErrorOK ErrorStatus = iota
	Error
)

func (e ErrorStatus) String() string {
	if e == Error {
		return "error"
	}
	return "ok"
}

// DeviceStatus mirrors the NWARN/NERR lines as last observed. It is refreshed
// by every counter read and replaced by a full status read.
type DeviceStatus struct {
	Warning WarningStatus
	Error   ErrorStatus
}

// IsOK reports whether neither a warning nor an error is flagged.
func (s DeviceStatus) IsOK() bool { return s.Warning == WarningOK && s.Error == ErrorOK }

// deviceStatusFromLines maps the active-low NWARN/NERR bits.
func deviceStatusFromLines(nwarn, nerr bool) DeviceStatus {
	var s DeviceStatus
	if !nwarn {
		s.Warning = Warning
	}
	if !nerr {
		s.Error = Error
	}
	return s
}

// PinStatus is a pin level. High means VDD, Low means GND.
type PinStatus uint8

const (
	PinLow PinStatus = iota
	PinHigh
)

func (p PinStatus) String() string {
	if p == PinHigh {
		return "high"
	}
	return "low"
}

// ActuatorStatus records the ACT0/ACT1 levels last written. The hardware
// cannot report them back, so this is the only copy.
type ActuatorStatus struct {
	Act0 PinStatus
	Act1 PinStatus
}

func (a ActuatorStatus) bits() byte {
	var b byte
	if a.Act0 == PinHigh {
		b |= 1 << insAct0
	}
	if a.Act1 == PinHigh {
		b |= 1 << insAct1
	}
	return b
}
