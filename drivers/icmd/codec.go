package icmd

// Configuration byte:
//
//	bit 7   6   5    4    3    2..0
//	    Z1  Z0  DIR2 DIR1 DIR0 layout
//
// The three-counter layout has no Z inputs, so bits 6/7 stay clear there.
func EncodeConfig(c CounterConfig) byte {
	b := byte(c.layout) & cfgLayoutMask
	dirShift := [3]uint{cfgDir0, cfgDir1, cfgDir2}
	zShift := [2]uint{cfgZ0, cfgZ1}
	for i := 0; i < c.layout.Channels(); i++ {
		s := c.setup[i]
		b |= byte(s.Direction&1) << dirShift[i]
		if c.layout.HasZ() && i < len(zShift) {
			b |= byte(s.ZSignal&1) << zShift[i]
		}
	}
	return b
}

// PayloadLen is the number of bytes read from the counter block for l:
// all channel bits plus the trailing NERR/NWARN byte, rounded to bytes.
func PayloadLen(l Layout) int {
	switch l {
	case Layout1x16:
		return 3
	case Layout1x24:
		return 4
	case Layout1x32, Layout2x16:
		return 5
	case Layout2x24, Layout1x48, Layout2x32x16:
		return 7
	case Layout3x16:
		return 8
	}
	return 0
}

// Count is one counter read. Concrete types are Count1x24 .. Count3x16.
type Count interface {
	Layout() Layout
	// Channels is the number of counters carried.
	Channels() int
	// Channel returns counter i widened to int64, false if absent.
	Channel(i int) (int64, bool)
}

type Count1x24 struct{ Cnt0 int32 }
type Count2x24 struct{ Cnt0, Cnt1 int32 }
type Count1x48 struct{ Cnt0 int64 }
type Count1x16 struct{ Cnt0 int16 }
type Count1x32 struct{ Cnt0 int32 }
type Count2x32x16 struct {
	Cnt0 int32
	Cnt1 int16
}
type Count2x16 struct{ Cnt0, Cnt1 int16 }
type Count3x16 struct{ Cnt0, Cnt1, Cnt2 int16 }

func (Count1x24) Layout() Layout    { return Layout1x24 }
func (Count2x24) Layout() Layout    { return Layout2x24 }
func (Count1x48) Layout() Layout    { return Layout1x48 }
func (Count1x16) Layout() Layout    { return Layout1x16 }
func (Count1x32) Layout() Layout    { return Layout1x32 }
func (Count2x32x16) Layout() Layout { return Layout2x32x16 }
func (Count2x16) Layout() Layout    { return Layout2x16 }
func (Count3x16) Layout() Layout    { return Layout3x16 }

func (Count1x24) Channels() int    { return 1 }
func (Count2x24) Channels() int    { return 2 }
func (Count1x48) Channels() int    { return 1 }
func (Count1x16) Channels() int    { return 1 }
func (Count1x32) Channels() int    { return 1 }
func (Count2x32x16) Channels() int { return 2 }
func (Count2x16) Channels() int    { return 2 }
func (Count3x16) Channels() int    { return 3 }

func (c Count1x24) Channel(i int) (int64, bool) { return pick(i, int64(c.Cnt0)) }
func (c Count2x24) Channel(i int) (int64, bool) { return pick(i, int64(c.Cnt0), int64(c.Cnt1)) }
func (c Count1x48) Channel(i int) (int64, bool) { return pick(i, c.Cnt0) }
func (c Count1x16) Channel(i int) (int64, bool) { return pick(i, int64(c.Cnt0)) }
func (c Count1x32) Channel(i int) (int64, bool) { return pick(i, int64(c.Cnt0)) }
func (c Count2x32x16) Channel(i int) (int64, bool) {
	return pick(i, int64(c.Cnt0), int64(c.Cnt1))
}
func (c Count2x16) Channel(i int) (int64, bool) { return pick(i, int64(c.Cnt0), int64(c.Cnt1)) }
func (c Count3x16) Channel(i int) (int64, bool) {
	return pick(i, int64(c.Cnt0), int64(c.Cnt1), int64(c.Cnt2))
}

func pick(i int, v ...int64) (int64, bool) {
	if i < 0 || i >= len(v) {
		return 0, false
	}
	return v[i], true
}

// Values returns all channels of c widened to int64, in channel order.
func Values(c Count) []int64 {
	out := make([]int64, c.Channels())
	for i := range out {
		out[i], _ = c.Channel(i)
	}
	return out
}

// DecodeCount unpacks a counter block read. raw must be PayloadLen(l) bytes.
//
// The block is one big-endian word. Its last byte carries NWARN (bit 6) and
// NERR (bit 7); channel 0 sits directly above it, each further channel above
// the previous one. nwarn/nerr are returned as on the wire (active-low).
func DecodeCount(l Layout, raw []byte) (c Count, nwarn, nerr bool) {
	n := PayloadLen(l)
	_ = raw[n-1] // bounds check, like encoding/binary

	var w uint64
	for _, b := range raw[:n] {
		w = w<<8 | uint64(b)
	}
	tail := byte(w)
	nwarn = bit(tail, payloadNWarn)
	nerr = bit(tail, payloadNErr)

	// Field extraction, channel 0 first.
	var f [3]int64
	shift := uint(8)
	for i, width := range l.Widths() {
		f[i] = signExtend(w>>shift, width)
		shift += width
	}
	return makeCount(l, f), nwarn, nerr
}

// NewCount builds the Count for l from channel values. Missing values are
// zero, extra ones are dropped, and each value is truncated to its channel
// width. An invalid layout yields nil.
func NewCount(l Layout, values ...int64) Count {
	var f [3]int64
	for i, width := range l.Widths() {
		if i < len(values) {
			f[i] = signExtend(uint64(values[i]), width)
		}
	}
	return makeCount(l, f)
}

func makeCount(l Layout, f [3]int64) Count {
	switch l {
	case Layout1x24:
		return Count1x24{Cnt0: int32(f[0])}
	case Layout2x24:
		return Count2x24{Cnt0: int32(f[0]), Cnt1: int32(f[1])}
	case Layout1x48:
		return Count1x48{Cnt0: f[0]}
	case Layout1x16:
		return Count1x16{Cnt0: int16(f[0])}
	case Layout1x32:
		return Count1x32{Cnt0: int32(f[0])}
	case Layout2x32x16:
		return Count2x32x16{Cnt0: int32(f[0]), Cnt1: int16(f[1])}
	case Layout2x16:
		return Count2x16{Cnt0: int16(f[0]), Cnt1: int16(f[1])}
	case Layout3x16:
		return Count3x16{Cnt0: int16(f[0]), Cnt1: int16(f[1]), Cnt2: int16(f[2])}
	}
	return nil
}

// EncodeCount is the inverse of DecodeCount. It builds the block a device
// would return for c with the given NWARN/NERR line levels. Host-side
// simulators and tests use it.
func EncodeCount(c Count, nwarn, nerr bool) []byte {
	l := c.Layout()
	n := PayloadLen(l)

	var w uint64
	if nwarn {
		w |= 1 << payloadNWarn
	}
	if nerr {
		w |= 1 << payloadNErr
	}
	shift := uint(8)
	for i, width := range l.Widths() {
		v, _ := c.Channel(i)
		w |= (uint64(v) & (1<<width - 1)) << shift
		shift += width
	}

	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(w)
		w >>= 8
	}
	return out
}

// signExtend interprets the low width bits of v as two's complement.
func signExtend(v uint64, width uint) int64 {
	s := 64 - width
	return int64(v<<s) >> s
}
