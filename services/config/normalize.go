package config

import "icmd-go/drivers/icmd"

const (
	DefaultPollIntervalMs  = 100
	DefaultSPIHz           = 4_000_000
	DefaultExportTimeoutMs = 1000
	DefaultExportUnitID    = 1
	DefaultHeartbeatMs     = 5000
)

// Normalize fills defaults. It is allowed to mutate configuration and must
// be called only after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	d := &cfg.Device
	if d.PollIntervalMs == 0 {
		d.PollIntervalMs = DefaultPollIntervalMs
	}
	if d.SPI.Hz == 0 {
		d.SPI.Hz = DefaultSPIHz
	}
	if d.Layout == "" {
		d.Layout = icmd.DefaultCounterConfig().Layout().String()
	}

	if e := cfg.Export; e != nil {
		if e.TimeoutMs == 0 {
			e.TimeoutMs = DefaultExportTimeoutMs
		}
		if e.UnitID == 0 {
			e.UnitID = DefaultExportUnitID
		}
	}

	if cfg.Heartbeat.IntervalMs == 0 {
		cfg.Heartbeat.IntervalMs = DefaultHeartbeatMs
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
