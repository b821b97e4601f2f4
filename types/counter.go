package types

// Payloads for icmd/<name>/... topics. Names (layout, direction, z signal)
// use the same spelling as the YAML config: "2x16", "cw", "inverted".

// ChannelSetup mirrors one channel of the configuration byte.
type ChannelSetup struct {
	Direction string `json:"direction" yaml:"direction"` // "cw" | "ccw"
	ZSignal   string `json:"z_signal" yaml:"z_signal"`   // "normal" | "inverted"
}

// CounterInfo is published as Info.Detail on icmd/<name>/info.
type CounterInfo struct {
	Bus      string         `json:"bus"`
	Layout   string         `json:"layout"`
	Widths   []uint         `json:"widths"`
	Channels []ChannelSetup `json:"channels"`
	PollMs   int            `json:"poll_ms"`
}

// CounterValue is the retained icmd/<name>/value payload.
type CounterValue struct {
	Layout  string  `json:"layout"`
	Counts  []int64 `json:"counts"`
	Warning bool    `json:"warning"`
	Error   bool    `json:"error"`
	TS      int64   `json:"ts_ms"`
}

// FullStatusValue is published on icmd/<name>/full_status and as the reply to
// the full_status control. Raw holds Status0..Status2 as re-encoded from the
// decoded fields.
type FullStatusValue struct {
	Raw [3]byte `json:"raw"`

	Overflow  [3]bool `json:"overflow"`
	ABError   [3]bool `json:"ab_error"`
	Zero      [3]bool `json:"zero"`
	Undervolt bool    `json:"undervoltage"`

	RefValid    bool `json:"ref_valid"`
	UPDValid    bool `json:"upd_valid"`
	RefOverflow bool `json:"ref_overflow"`

	ExtWarning bool `json:"ext_warning"`
	ExtError   bool `json:"ext_error"`
	Collision  bool `json:"collision"`
	TouchProbe bool `json:"touch_probe"`
	TPIHigh    bool `json:"tpi_high"`
	SSIEnabled bool `json:"ssi_enabled"`

	TS int64 `json:"ts_ms"`
}

// ReferenceValue answers the reference control.
type ReferenceValue struct {
	Ref int32 `json:"ref"`
	TS  int64 `json:"ts_ms"`
}

// ---- Controls (icmd/<name>/control/<verb>) ----

// CounterSetup replaces the configuration and rewrites it to the device.
type CounterSetup struct {
	Layout   string         `json:"layout"`
	Channels []ChannelSetup `json:"channels,omitempty"`
}

// ActuatorSet drives ACT0/ACT1.
type ActuatorSet struct {
	Act0 bool `json:"act0"`
	Act1 bool `json:"act1"`
}

// CounterReset selects counters to zero. All false resets all three.
type CounterReset struct {
	Cnt0 bool `json:"cnt0"`
	Cnt1 bool `json:"cnt1"`
	Cnt2 bool `json:"cnt2"`
}
