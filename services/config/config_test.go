package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"icmd-go/bus"
	"icmd-go/drivers/icmd"
	"icmd-go/types"
)

const sample = `
device:
  name: spindle
  spi: { port: "/dev/spidev0.0", hz: 2000000 }
  layout: "2x16"
  channels:
    - { direction: ccw, z_signal: inverted }
    - {}
  poll_interval_ms: 20
export:
  endpoint: "127.0.0.1:502"
  address: 100
  verify: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device.Name != "spindle" || cfg.Device.SPI.Hz != 2_000_000 || cfg.Device.PollIntervalMs != 20 {
		t.Fatalf("device %+v", cfg.Device)
	}
	if cfg.Export == nil || cfg.Export.Address != 100 || !cfg.Export.Verify {
		t.Fatalf("export %+v", cfg.Export)
	}
	// Defaults applied by Normalize.
	if cfg.Export.TimeoutMs != DefaultExportTimeoutMs || cfg.Export.UnitID != DefaultExportUnitID {
		t.Fatalf("export defaults %+v", cfg.Export)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log %+v", cfg.Log)
	}

	cc, err := cfg.Device.CounterConfig()
	if err != nil {
		t.Fatal(err)
	}
	// ccw on ch0 (bit 3), inverted Z on ch0 (bit 6), layout 2x16 = 6.
	if got := icmd.EncodeConfig(cc); got != 0x4E {
		t.Fatalf("config byte 0x%02x", got)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("device: { name: x }\n"))
	if err != nil {
		t.Fatal(err)
	}
	d := cfg.Device
	if d.Layout != "1x48" || d.PollIntervalMs != DefaultPollIntervalMs || d.SPI.Hz != DefaultSPIHz {
		t.Fatalf("defaults %+v", d)
	}
	if cfg.Export != nil {
		t.Fatal("export should stay disabled")
	}
}

func TestParseRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":    "device: { name: x, colour: red }\n",
		"no name":        "device: { layout: 2x16 }\n",
		"slash in name":  "device: { name: a/b }\n",
		"bad layout":     "device: { name: x, layout: 4x12 }\n",
		"too many chans": "device: { name: x, layout: 1x16, channels: [{}, {}] }\n",
		"bad direction":  "device: { name: x, channels: [{ direction: up }] }\n",
		"spi too fast":   "device: { name: x, spi: { hz: 20000000 } }\n",
		"neg interval":   "device: { name: x, poll_interval_ms: -1 }\n",
		"export no ep":   "device: { name: x }\nexport: { unit_id: 2 }\n",
		"log level":      "device: { name: x }\nlog: { level: loud }\n",
	} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCounterConfigErrors(t *testing.T) {
	_, err := CounterConfig("9x9", nil)
	if !errors.Is(err, icmd.ErrInvalidLayout) {
		t.Fatalf("err=%v", err)
	}
	_, err = CounterConfig("2x16", []types.ChannelSetup{{ZSignal: "sideways"}})
	if !errors.Is(err, icmd.ErrUnknownName) {
		t.Fatalf("err=%v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icmd.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device.Layout != "2x16" {
		t.Fatalf("layout %q", cfg.Device.Layout)
	}
	if _, err := Load(path + ".missing"); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestEmbedded(t *testing.T) {
	cfg, err := Embedded("pico")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device.Layout != "2x24" || cfg.Device.FullStatusIntervalMs != 1000 {
		t.Fatalf("device %+v", cfg.Device)
	}
	if _, err := Embedded("nope"); !errors.Is(err, ErrNoEmbedded) {
		t.Fatalf("err=%v", err)
	}

	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(string) ([]byte, bool) { return []byte("device: { name: t }\n"), true }
	t.Cleanup(func() { EmbeddedConfigLookup = old })
	if cfg, err := Embedded("anything"); err != nil || cfg.Device.Name != "t" {
		t.Fatalf("override: %v %+v", err, cfg)
	}
}

func TestPublishRetainedPerSection(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	b := bus.NewBus(8)
	conn := b.NewConnection("test-config")
	Publish(conn, cfg)

	sub := conn.Subscribe(bus.T(configPrefix, "#"))
	got := map[string]any{}
	deadline := time.After(200 * time.Millisecond)
	for len(got) < 4 {
		select {
		case m := <-sub.Channel():
			got[m.Topic.At(1).(string)] = m.Payload
		case <-deadline:
			t.Fatalf("got %d sections", len(got))
		}
	}
	if h, ok := got["heartbeat"].(HeartbeatConfig); !ok || h.IntervalMs != DefaultHeartbeatMs {
		t.Fatalf("heartbeat %#v", got["heartbeat"])
	}
	if d, ok := got["device"].(DeviceConfig); !ok || d.Name != "spindle" {
		t.Fatalf("device %#v", got["device"])
	}
	if e, ok := got["export"].(ExportConfig); !ok || !strings.HasPrefix(e.Endpoint, "127.") {
		t.Fatalf("export %#v", got["export"])
	}
}
