package config

import (
	"icmd-go/drivers/icmd"
	"icmd-go/types"
	"icmd-go/x/fmtx"
	"icmd-go/x/mathx"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmtx.Errorf("config: empty")
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	d := cfg.Device
	if d.Name == "" {
		return fmtx.Errorf("device: name is required")
	}
	for i := 0; i < len(d.Name); i++ {
		c := d.Name[i]
		if c > 0x7F || c == '/' || c == '+' || c == '#' || c == ' ' {
			return fmtx.Errorf("device %q: name must be ASCII without '/', '+', '#' or spaces", d.Name)
		}
	}
	if _, err := CounterConfig(d.Layout, d.Channels); err != nil {
		return fmtx.Errorf("device %q: %w", d.Name, err)
	}
	if !mathx.Between(d.SPI.Hz, 0, icmd.MaxSPIHz) {
		return fmtx.Errorf("device %q: spi.hz %d out of range (0..%d)", d.Name, d.SPI.Hz, icmd.MaxSPIHz)
	}
	if d.PollIntervalMs < 0 || d.FullStatusIntervalMs < 0 {
		return fmtx.Errorf("device %q: intervals must not be negative", d.Name)
	}

	// ------------------------------------------------------------
	// EXPORT (opt-in)
	// ------------------------------------------------------------

	if e := cfg.Export; e != nil {
		if e.Endpoint == "" {
			return fmtx.Errorf("export: endpoint is required")
		}
		if e.TimeoutMs < 0 {
			return fmtx.Errorf("export: timeout_ms must not be negative")
		}
	}

	if cfg.Heartbeat.IntervalMs < 0 {
		return fmtx.Errorf("heartbeat: interval_ms must not be negative")
	}

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmtx.Errorf("log: unknown level %q", cfg.Log.Level)
	}
	return nil
}

// CounterConfig builds a driver configuration from the layout name and
// per-channel setups used in YAML and control payloads. An empty layout
// selects the driver default. More channels than the layout has is an error.
func CounterConfig(layout string, channels []types.ChannelSetup) (icmd.CounterConfig, error) {
	l := icmd.DefaultCounterConfig().Layout()
	if layout != "" {
		var err error
		if l, err = icmd.ParseLayout(layout); err != nil {
			return icmd.CounterConfig{}, fmtx.Errorf("layout %q: %w", layout, icmd.ErrInvalidLayout)
		}
	}
	if len(channels) > l.Channels() {
		return icmd.CounterConfig{}, fmtx.Errorf("layout %s has %d channels, got %d: %w",
			l, l.Channels(), len(channels), icmd.ErrInvalidLayout)
	}

	setups := make([]icmd.ChannelSetup, len(channels))
	for i, ch := range channels {
		var err error
		if setups[i].Direction, err = icmd.ParseDirection(ch.Direction); err != nil {
			return icmd.CounterConfig{}, fmtx.Errorf("channel %d direction %q: %w", i, ch.Direction, err)
		}
		if setups[i].ZSignal, err = icmd.ParseZSignal(ch.ZSignal); err != nil {
			return icmd.CounterConfig{}, fmtx.Errorf("channel %d z_signal %q: %w", i, ch.ZSignal, err)
		}
	}
	return icmd.NewCounterConfig(l, setups)
}

// CounterConfig returns the driver configuration for d.
func (d DeviceConfig) CounterConfig() (icmd.CounterConfig, error) {
	return CounterConfig(d.Layout, d.Channels)
}
