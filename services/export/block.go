// services/export/block.go
package export

import (
	"icmd-go/drivers/icmd"
	"icmd-go/types"
	"icmd-go/x/mathx"
)

// Holding register block, 16-bit registers. Layout is protocol-locked.
const (
	SlotLayout   = 0  // layout ordinal, 0xFFFF when unknown
	SlotFlags    = 1  // bit0 warning, bit1 error, bit2 link degraded
	SlotChannels = 2  // number of channels carried
	SlotChannel0 = 4  // 4 registers per channel, int64 big-endian
	SlotStatus01 = 16 // Status0 | Status1<<8 from the last full status
	SlotStatus2  = 17

	RegsPerChannel = 4
	BlockLen       = 20
)

const (
	FlagWarning  = 1 << 0
	FlagError    = 1 << 1
	FlagDegraded = 1 << 2

	LayoutUnknown = 0xFFFF
)

// Snapshot is everything the block carries.
type Snapshot struct {
	Value      types.CounterValue
	FullStatus *types.FullStatusValue // nil until the first full status
	Degraded   bool
}

// EncodeBlock converts a Snapshot into a full block. No IO.
func EncodeBlock(s Snapshot) []uint16 {
	regs := make([]uint16, BlockLen)

	regs[SlotLayout] = LayoutUnknown
	if l, err := icmd.ParseLayout(s.Value.Layout); err == nil {
		regs[SlotLayout] = uint16(l)
	}

	var flags uint16
	if s.Value.Warning {
		flags |= FlagWarning
	}
	if s.Value.Error {
		flags |= FlagError
	}
	if s.Degraded {
		flags |= FlagDegraded
	}
	regs[SlotFlags] = flags

	n := mathx.Clamp(len(s.Value.Counts), 0, 3)
	regs[SlotChannels] = uint16(n)
	for i := 0; i < n; i++ {
		putInt64(regs[SlotChannel0+i*RegsPerChannel:], s.Value.Counts[i])
	}

	if fs := s.FullStatus; fs != nil {
		regs[SlotStatus01] = uint16(fs.Raw[0]) | uint16(fs.Raw[1])<<8
		regs[SlotStatus2] = uint16(fs.Raw[2])
	}
	return regs
}

// DecodeBlock is the reader side of EncodeBlock. It returns false when regs
// is shorter than BlockLen.
func DecodeBlock(regs []uint16) (Snapshot, bool) {
	if len(regs) < BlockLen {
		return Snapshot{}, false
	}
	var s Snapshot
	if l := icmd.Layout(regs[SlotLayout]); regs[SlotLayout] != LayoutUnknown && l.Valid() {
		s.Value.Layout = l.String()
	}
	f := regs[SlotFlags]
	s.Value.Warning = f&FlagWarning != 0
	s.Value.Error = f&FlagError != 0
	s.Degraded = f&FlagDegraded != 0

	n := mathx.Clamp(int(regs[SlotChannels]), 0, 3)
	for i := 0; i < n; i++ {
		s.Value.Counts = append(s.Value.Counts, getInt64(regs[SlotChannel0+i*RegsPerChannel:]))
	}
	s.FullStatus = &types.FullStatusValue{Raw: [3]byte{
		byte(regs[SlotStatus01]), byte(regs[SlotStatus01] >> 8), byte(regs[SlotStatus2]),
	}}
	return s, true
}

func putInt64(dst []uint16, v int64) {
	u := uint64(v)
	dst[0] = uint16(u >> 48)
	dst[1] = uint16(u >> 32)
	dst[2] = uint16(u >> 16)
	dst[3] = uint16(u)
}

func getInt64(src []uint16) int64 {
	return int64(uint64(src[0])<<48 | uint64(src[1])<<32 | uint64(src[2])<<16 | uint64(src[3]))
}
