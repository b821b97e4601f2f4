// Command icmd-host runs one iC-MD counter on a Linux SPI port and
// optionally mirrors it into a Modbus TCP server.
//
//	icmd-host counter.yaml
//
// spi.port "sim" runs against the in-process simulator.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"icmd-go/bus"
	"icmd-go/drivers/icmd"
	"icmd-go/drivers/icmd/icmdsim"
	"icmd-go/drivers/icmd/periphbus"
	"icmd-go/services/config"
	"icmd-go/services/counter"
	"icmd-go/services/export"
	"icmd-go/services/export/modbus"
	"icmd-go/services/heartbeat"
	"icmd-go/x/logx"
	"icmd-go/x/timex"
)

const simPort = "sim"

func main() {
	root := logx.NewConsole(os.Stdout, "")
	if len(os.Args) != 2 {
		root.Errorf("usage: %s <config.yaml>", os.Args[0])
		os.Exit(2)
	}
	cfg, err := config.Load(os.Args[1])
	if err != nil {
		root.Errorf("config: %v", err)
		os.Exit(1)
	}
	root.SetLevel(logx.ParseLevel(cfg.Log.Level))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, root); err != nil {
		root.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, root *logx.Console) error {
	d := cfg.Device

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	spawn := func(f func()) {
		wg.Add(1)
		go func() { defer wg.Done(); f() }()
	}

	regs, closer, err := openBus(d.SPI)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}
	root.Infof("spi %q at %d Hz", d.SPI.Port, d.SPI.Hz)

	cc, err := d.CounterConfig()
	if err != nil {
		return err
	}

	b := bus.NewBus(16)
	config.Publish(b.NewConnection("config"), cfg)

	hb := heartbeat.New(root.With("[heartbeat] "))
	spawn(func() { hb.Run(ctx, b.NewConnection("heartbeat")) })

	if e := cfg.Export; e != nil {
		client, err := modbus.NewEndpointClient(modbus.Config{Endpoint: e.Endpoint, Timeout: timex.Ms(e.TimeoutMs)})
		if err != nil {
			return err
		}
		ex, err := export.New(b.NewConnection("export"), client,
			export.Config{Name: d.Name, UnitID: e.UnitID, Address: e.Address, Verify: e.Verify}, root.With("[export] "))
		if err != nil {
			_ = client.Close()
			return err
		}
		spawn(func() {
			_ = ex.Run(ctx)
			_ = client.Close()
		})
	}

	svc := counter.New(icmd.New(regs), b.NewConnection("counter"), counter.Config{
		Name:               d.Name,
		BusName:            d.SPI.Port,
		Counter:            &cc,
		PollInterval:       timex.Ms(d.PollIntervalMs),
		FullStatusInterval: timex.Ms(d.FullStatusIntervalMs),
	}, root.With("[counter] "))
	return svc.Run(ctx)
}

func openBus(c config.SPIConfig) (icmd.RegisterBus, func(), error) {
	if c.Port == simPort {
		return icmdsim.New(), nil, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	pb, port, err := periphbus.Open(c.Port, physic.Frequency(c.Hz)*physic.Hertz)
	if err != nil {
		return nil, nil, err
	}
	return pb, func() { _ = port.Close() }, nil
}
