package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID passed to Embedded.
// Val: YAML in the same schema Load accepts.
// -----------------------------------------------------------------------------

const cfgPico = `
device:
  name: spindle
  layout: "2x24"
  channels:
    - { direction: cw, z_signal: normal }
    - { direction: ccw, z_signal: normal }
  poll_interval_ms: 50
  full_status_interval_ms: 1000
heartbeat:
  interval_ms: 10000
log:
  level: info
`

var embeddedConfigs = map[string]string{
	"pico": cfgPico,
}
