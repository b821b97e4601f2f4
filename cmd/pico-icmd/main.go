//go:build rp2040 || rp2350

// Command pico-icmd runs one iC-MD counter on SPI0 of a Pico. Logs go to
// UART0 and the configuration is the embedded "pico" document.
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"icmd-go/bus"
	"icmd-go/drivers/icmd"
	"icmd-go/services/config"
	"icmd-go/services/counter"
	"icmd-go/services/heartbeat"
	"icmd-go/x/logx"
	"icmd-go/x/timex"
)

const (
	pinSCK = machine.GPIO18
	pinSDO = machine.GPIO19
	pinSDI = machine.GPIO16
	pinCS  = machine.GPIO17

	pinTX = machine.GPIO0
	pinRX = machine.GPIO1

	consoleBaud = 115200
)

func main() {
	// Give the host a moment to open the console.
	time.Sleep(2 * time.Second)

	_ = uartx.UART0.Configure(uartx.UARTConfig{BaudRate: consoleBaud, TX: pinTX, RX: pinRX})
	root := logx.NewConsole(uartx.UART0, "")

	cfg, err := config.Embedded("pico")
	if err != nil {
		halt(root, "config", err)
	}
	root.SetLevel(logx.ParseLevel(cfg.Log.Level))
	d := cfg.Device

	cc, err := d.CounterConfig()
	if err != nil {
		halt(root, "counter config", err)
	}

	spi := machine.SPI0
	if err := spi.Configure(machine.SPIConfig{
		Frequency: uint32(d.SPI.Hz),
		SCK:       pinSCK,
		SDO:       pinSDO,
		SDI:       pinSDI,
		Mode:      0,
	}); err != nil {
		halt(root, "spi", err)
	}
	pinCS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	regs := icmd.NewSPIBus(spi, pinCS.Set)

	ctx := context.Background()
	b := bus.NewBus(4)
	config.Publish(b.NewConnection("config"), cfg)

	go heartbeat.New(root.With("[heartbeat] ")).Run(ctx, b.NewConnection("heartbeat"))

	root.Infof("icmd %s on spi0 at %d Hz", d.Name, d.SPI.Hz)
	svc := counter.New(icmd.New(regs), b.NewConnection("counter"), counter.Config{
		Name:               d.Name,
		BusName:            "spi0",
		Counter:            &cc,
		PollInterval:       timex.Ms(d.PollIntervalMs),
		FullStatusInterval: timex.Ms(d.FullStatusIntervalMs),
	}, root.With("[counter] "))
	if err := svc.Run(ctx); err != nil {
		halt(root, "counter", err)
	}
}

func halt(log logx.Logger, what string, err error) {
	for {
		log.Errorf("%s: %v", what, err)
		time.Sleep(5 * time.Second)
	}
}
