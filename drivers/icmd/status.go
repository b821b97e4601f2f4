package icmd

// Full device status, decoded from Status0..Status2 (0x48..0x4A).

type OverflowStatus uint8

const (
	OverflowOK OverflowStatus = iota
	Overflow
)

// DecodificationStatus flags an AB input decodification error: the counting
// frequency was too high or two incremental edges were too close together.
type DecodificationStatus uint8

const (
	DecodificationOK DecodificationStatus = iota
	DecodificationError
)

type ZeroStatus uint8

const (
	NotZero ZeroStatus = iota
	Zero
)

// PowerStatus reports a power-down reset (RAM re-initialised to defaults).
type PowerStatus uint8

const (
	PowerOK PowerStatus = iota
	Undervoltage
)

// RegisterStatus is the validity of the REF/UPD registers.
type RegisterStatus uint8

const (
	RegisterOK RegisterStatus = iota
	RegisterInvalid
)

type CommunicationStatus uint8

const (
	CommunicationOK CommunicationStatus = iota
	Collision
)

type TouchProbeStatus uint8

const (
	TouchProbeNotUpdated TouchProbeStatus = iota
	TouchProbeUpdated
)

type InterfaceStatus uint8

const (
	InterfaceDisabled InterfaceStatus = iota
	InterfaceEnabled
)

// FullStatus is the decoded content of the three status registers. Counter
// fields are returned for all three channels regardless of layout.
type FullStatus struct {
	Cnt0Overflow OverflowStatus
	Cnt1Overflow OverflowStatus
	Cnt2Overflow OverflowStatus

	Cnt0ABErr DecodificationStatus
	Cnt1ABErr DecodificationStatus
	Cnt2ABErr DecodificationStatus

	Cnt0Zero ZeroStatus
	Cnt1Zero ZeroStatus
	Cnt2Zero ZeroStatus

	Power PowerStatus

	RefRegister RegisterStatus // REF loaded after zero codification
	UPDRegister RegisterStatus // UPD loaded since last read
	RefCounter  OverflowStatus // too many edges between two index pulses

	ExtError   ErrorStatus   // NERR pulled low from outside or inside
	ExtWarning WarningStatus // NWARN pulled low from outside or inside

	Communication CommunicationStatus
	TouchProbe    TouchProbeStatus // TP1/TP2 loaded
	TPI           PinStatus        // level on input pin TPI
	SSI           InterfaceStatus  // SSI pin open
}

// DecodeFullStatus maps the raw status bytes onto FullStatus. Each field
// reads one bit; REF/UPD validity bits are 1 when valid.
func DecodeFullStatus(s0, s1, s2 byte) FullStatus {
	var fs FullStatus

	fs.Cnt0Overflow = overflow(bit(s0, stOvf))
	fs.Cnt1Overflow = overflow(bit(s1, stOvf))
	fs.Cnt2Overflow = overflow(bit(s2, stOvf))

	fs.Cnt0ABErr = decodification(bit(s0, stABErr))
	fs.Cnt1ABErr = decodification(bit(s1, stABErr))
	fs.Cnt2ABErr = decodification(bit(s2, stABErr))

	fs.Cnt0Zero = zero(bit(s0, stZero))
	fs.Cnt1Zero = zero(bit(s1, stZero))
	fs.Cnt2Zero = zero(bit(s2, stZero))

	if bit(s0, st0PDwn) {
		fs.Power = Undervoltage
	}
	if !bit(s0, st0RVal) {
		fs.RefRegister = RegisterInvalid
	}
	if !bit(s0, st0UPDVal) {
		fs.UPDRegister = RegisterInvalid
	}
	fs.RefCounter = overflow(bit(s0, st0OvfRef))

	if bit(s1, st1ExtErr) {
		fs.ExtError = Error
	}
	if bit(s1, st1ExtWarn) {
		fs.ExtWarning = Warning
	}
	if bit(s1, st1ComCol) {
		fs.Communication = Collision
	}
	if bit(s0, st0TPVal) {
		fs.TouchProbe = TouchProbeUpdated
	}
	if bit(s1, st1TPS) {
		fs.TPI = PinHigh
	}
	if bit(s2, st2EnSSI) {
		fs.SSI = InterfaceEnabled
	}
	return fs
}

// Bytes re-encodes fs into Status0..Status2. Mirrored bits that
// DecodeFullStatus ignores come back as zero.
func (fs FullStatus) Bytes() (s0, s1, s2 byte) {
	counter := func(o OverflowStatus, e DecodificationStatus, z ZeroStatus) (b byte) {
		b |= flag(o == Overflow, stOvf)
		b |= flag(e == DecodificationError, stABErr)
		b |= flag(z == Zero, stZero)
		return b
	}
	s0 = counter(fs.Cnt0Overflow, fs.Cnt0ABErr, fs.Cnt0Zero) |
		flag(fs.TouchProbe == TouchProbeUpdated, st0TPVal) |
		flag(fs.RefCounter == Overflow, st0OvfRef) |
		flag(fs.UPDRegister == RegisterOK, st0UPDVal) |
		flag(fs.RefRegister == RegisterOK, st0RVal) |
		flag(fs.Power == Undervoltage, st0PDwn)
	s1 = counter(fs.Cnt1Overflow, fs.Cnt1ABErr, fs.Cnt1Zero) |
		flag(fs.TPI == PinHigh, st1TPS) |
		flag(fs.Communication == Collision, st1ComCol) |
		flag(fs.ExtWarning == Warning, st1ExtWarn) |
		flag(fs.ExtError == Error, st1ExtErr)
	s2 = counter(fs.Cnt2Overflow, fs.Cnt2ABErr, fs.Cnt2Zero) |
		flag(fs.SSI == InterfaceEnabled, st2EnSSI)
	return s0, s1, s2
}

// DeviceStatus summarises the external NWARN/NERR state of fs.
func (fs FullStatus) DeviceStatus() DeviceStatus {
	return DeviceStatus{Warning: fs.ExtWarning, Error: fs.ExtError}
}

func overflow(b bool) OverflowStatus {
	if b {
		return Overflow
	}
	return OverflowOK
}

func decodification(b bool) DecodificationStatus {
	if b {
		return DecodificationError
	}
	return DecodificationOK
}

func zero(b bool) ZeroStatus {
	if b {
		return Zero
	}
	return NotZero
}
