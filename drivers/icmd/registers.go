// Package icmd provides constants for register addresses and bitfields used
// in the operation of the iC-MD quadrature counter.
package icmd

const (
	// Read transactions carry the register address with the top bit set.
	readFlag = 0x80

	// --- Register addresses ---
	regCounterConfig = 0x00 // W, 1 byte
	regCounter       = 0x08 // R, 3..8 bytes depending on layout
	regReference     = 0x10 // R, 3 bytes
	regInstruction   = 0x30 // W, 1 byte
	regStatus0       = 0x48 // R/Clear
	regStatus1       = 0x49 // R/Clear
	regStatus2       = 0x4A // R/Clear

	// --- Counter configuration byte (0x00) ---
	cfgLayoutMask = 0x07
	cfgDir0       = 3
	cfgDir1       = 4
	cfgDir2       = 5
	cfgZ0         = 6
	cfgZ1         = 7

	// --- Counter payload trailing byte ---
	payloadNWarn = 6
	payloadNErr  = 7

	// --- Instruction byte (0x30) ---
	// Command bits self-clear after execution; ACT0/ACT1 hold their level.
	insABRes0 = 0
	insABRes1 = 1
	insABRes2 = 2
	insZCEn   = 3
	insTP     = 4
	insAct0   = 5
	insAct1   = 6

	// --- Status0 (0x48) ---
	st0TPVal  = 0
	st0OvfRef = 1
	st0UPDVal = 2
	st0RVal   = 3
	st0PDwn   = 4

	// --- Status1 (0x49) ---
	st1TPS     = 0
	st1ComCol  = 1
	st1ExtWarn = 2
	st1ExtErr  = 3

	// --- Status2 (0x4A) ---
	st2EnSSI = 0

	// --- Per-counter bits, same position in Status0/1/2 ---
	stZero  = 5
	stOvf   = 6
	stABErr = 7

	// Reference counter width.
	referenceBits = 24
)

func bit(b byte, n uint) bool { return b&(1<<n) != 0 }

func flag(set bool, n uint) byte {
	if set {
		return 1 << n
	}
	return 0
}
