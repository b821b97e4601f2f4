package config

import (
	"icmd-go/bus"
)

const configPrefix = "config"

// Publish puts each section of cfg on config/<section> as a retained
// message. A missing export section clears config/export.
func Publish(conn *bus.Connection, cfg *Config) {
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "device"), cfg.Device, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "log"), cfg.Log, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "heartbeat"), cfg.Heartbeat, true))

	var export any
	if cfg.Export != nil {
		export = *cfg.Export
	}
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "export"), export, true))
}
