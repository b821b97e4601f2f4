// Package config loads the YAML description of one counter and its optional
// Modbus export, and republishes it on the bus.
package config

import "icmd-go/types"

type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Export    *ExportConfig   `yaml:"export"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Log       LogConfig       `yaml:"log"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Name     string               `yaml:"name"`
	SPI      SPIConfig            `yaml:"spi"`
	Layout   string               `yaml:"layout"`
	Channels []types.ChannelSetup `yaml:"channels"`

	PollIntervalMs       int `yaml:"poll_interval_ms"`
	FullStatusIntervalMs int `yaml:"full_status_interval_ms"` // 0 disables
}

type SPIConfig struct {
	Port string `yaml:"port"` // periph port name; "" picks the first one
	Hz   int    `yaml:"hz"`
}

// ---- EXPORT (optional) ----

type ExportConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	Address   uint16 `yaml:"address"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Verify    bool   `yaml:"verify"` // read each block back after writing
}

// ---- HEARTBEAT ----

type HeartbeatConfig struct {
	IntervalMs int `yaml:"interval_ms" json:"interval_ms"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}
