//go:build rp2040 || rp2350

// Command pico-selftest exercises the bus, the iC-MD driver and the counter
// service on target against the simulated chip. Results go to UART0 and the
// LED: solid on pass, blinking on failure.
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"icmd-go/bus"
	"icmd-go/drivers/icmd"
	"icmd-go/drivers/icmd/icmdsim"
	"icmd-go/services/counter"
	"icmd-go/types"
	"icmd-go/x/logx"
)

var log logx.Logger = logx.Nop()

func expect(sub *bus.Subscription, want any, timeout time.Duration) bool {
	select {
	case m := <-sub.Channel():
		if m.Payload != want {
			log.Errorf("  payload %v, want %v", m.Payload, want)
			return false
		}
		return true
	case <-time.After(timeout):
		log.Errorf("  timeout waiting for %v", want)
		return false
	}
}

// --- bus ---------------------------------------------------------------------

func testRetainedWildcard() bool {
	b := bus.NewBus(4)
	c := b.NewConnection("t")
	c.Publish(c.NewMessage(bus.T("icmd", "x", "value"), "v1", true))
	sub := c.Subscribe(bus.T("icmd", bus.SingleWild, "value"))
	return expect(sub, "v1", 100*time.Millisecond)
}

func testRequestTimeout() bool {
	b := bus.NewBus(4)
	c := b.NewConnection("t")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.RequestWait(ctx, c.NewMessage(bus.T("nobody"), nil, false))
	return err == context.DeadlineExceeded
}

func testDropOldest() bool {
	b := bus.NewBus(2)
	c := b.NewConnection("t")
	sub := c.Subscribe(bus.T("q"))
	for i := 1; i <= 3; i++ {
		c.Publish(c.NewMessage(bus.T("q"), i, false))
	}
	return expect(sub, 2, 10*time.Millisecond) && expect(sub, 3, 10*time.Millisecond)
}

// --- driver ------------------------------------------------------------------

func testInitAndRead() bool {
	sim := icmdsim.New()
	dev := icmd.New(sim)
	cfg := icmd.Cnt2x24(icmd.ChannelSetup{}, icmd.NewChannelSetup(icmd.CCW, icmd.ZNormal))
	dev.SetCounterConfig(cfg)
	if err := dev.Init(); err != nil || sim.Config() != cfg.Byte() {
		log.Errorf("  init: %v config 0x%02x", err, sim.Config())
		return false
	}
	sim.SetCounts(-5, 0x7FFFFF)
	c, err := dev.ReadCounter()
	if err != nil {
		return false
	}
	v := icmd.Values(c)
	if len(v) != 2 || v[0] != -5 || v[1] != 0x7FFFFF {
		log.Errorf("  counts %v", v)
		return false
	}
	return true
}

func testStatusClearsOnRead() bool {
	sim := icmdsim.New()
	dev := icmd.New(sim)
	sim.SetStatus(0x0C|0x01, 0, 0)
	fs, err := dev.ReadFullStatus()
	if err != nil || fs.TouchProbe != icmd.TouchProbeUpdated {
		return false
	}
	fs, err = dev.ReadFullStatus()
	return err == nil && fs.TouchProbe != icmd.TouchProbeUpdated
}

// --- service -----------------------------------------------------------------

func testCounterService() bool {
	sim := icmdsim.New()
	b := bus.NewBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := counter.New(icmd.New(sim), b.NewConnection("counter"), counter.Config{Name: "st"}, log)
	go svc.Run(ctx)

	c := b.NewConnection("t")
	info := c.Subscribe(counter.Topic("st", "info"))
	select {
	case <-info.Channel():
	case <-time.After(time.Second):
		return false
	}
	sim.SetCounts(1234)
	rctx, rcancel := context.WithTimeout(ctx, time.Second)
	defer rcancel()
	reply, err := c.RequestWait(rctx, c.NewMessage(counter.Topic("st", "control", "read"), nil, false))
	if err != nil {
		return false
	}
	v, ok := reply.Payload.(types.CounterValue)
	return ok && len(v.Counts) == 1 && v.Counts[0] == 1234
}

type testFn struct {
	name string
	fn   func() bool
}

func main() {
	time.Sleep(250 * time.Millisecond)
	_ = uartx.UART0.Configure(uartx.UARTConfig{BaudRate: 115200, TX: machine.GPIO0, RX: machine.GPIO1})
	log = logx.NewConsole(uartx.UART0, "[selftest] ")

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.High()

	tests := []testFn{
		{"bus retained wildcard", testRetainedWildcard},
		{"bus request timeout", testRequestTimeout},
		{"bus drop oldest", testDropOldest},
		{"icmd init and read", testInitAndRead},
		{"icmd status clears on read", testStatusClearsOnRead},
		{"counter service read", testCounterService},
	}

	passed, failed := 0, 0
	for _, tc := range tests {
		if tc.fn() {
			log.Infof("PASS %s", tc.name)
			passed++
		} else {
			log.Errorf("FAIL %s", tc.name)
			failed++
		}
		time.Sleep(10 * time.Millisecond)
	}
	log.Infof("done: %d passed, %d failed", passed, failed)

	for {
		if failed == 0 {
			led.High()
			time.Sleep(2 * time.Second)
			continue
		}
		led.High()
		time.Sleep(250 * time.Millisecond)
		led.Low()
		time.Sleep(250 * time.Millisecond)
	}
}
