package counter

import (
	"context"
	"errors"
	"testing"
	"time"

	"icmd-go/bus"
	"icmd-go/drivers/icmd"
	"icmd-go/drivers/icmd/icmdsim"
	"icmd-go/types"
)

type harness struct {
	sim    *icmdsim.Device
	bus    *bus.Bus
	client *bus.Connection
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, cfg Config) *harness {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "spindle"
	}
	h := &harness{sim: icmdsim.New(), bus: bus.NewBus(16), done: make(chan error, 1)}
	h.client = h.bus.NewConnection("client")

	svc := New(icmd.New(h.sim), h.bus.NewConnection("counter"), cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(time.Second):
			t.Error("service did not stop")
		}
	})

	// The info topic is published after init; wait for it so that control
	// requests never race the subscription.
	waitFor[types.Info](t, h.client, Topic(cfg.Name, "info"), nil)
	return h
}

func (h *harness) request(t *testing.T, verb string, payload any) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := h.client.RequestWait(ctx, h.client.NewMessage(Topic("spindle", "control", verb), payload, false))
	if err != nil {
		t.Fatalf("%s: %v", verb, err)
	}
	return reply.Payload
}

// waitFor subscribes to topic and returns the first T payload accepted by ok.
func waitFor[T any](t *testing.T, c *bus.Connection, topic bus.Topic, ok func(T) bool) T {
	t.Helper()
	sub := c.Subscribe(topic)
	defer c.Unsubscribe(sub)
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-sub.Channel():
			if v, isT := m.Payload.(T); isT && (ok == nil || ok(v)) {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("no matching %T on %v", zero, topic)
			return zero
		}
	}
}

func expectOK(t *testing.T, p any) {
	t.Helper()
	if r, ok := p.(types.OKReply); !ok || !r.OK {
		t.Fatalf("reply %#v", p)
	}
}

func expectErr(t *testing.T, p any, code string) {
	t.Helper()
	if r, ok := p.(types.ErrorReply); !ok || r.OK || r.Error != code {
		t.Fatalf("reply %#v, want error %q", p, code)
	}
}

func TestStartPublishesInfoAndStatus(t *testing.T) {
	cc := icmd.Cnt2x16(icmd.NewChannelSetup(icmd.CCW, icmd.ZInverted), icmd.ChannelSetup{})
	cfg := Config{Counter: &cc, BusName: "spi0"}
	h := start(t, cfg)

	if h.sim.Config() != 0x4E {
		t.Fatalf("config byte 0x%02x", h.sim.Config())
	}
	info := waitFor[types.Info](t, h.client, Topic("spindle", "info"), nil)
	ci, ok := info.Detail.(types.CounterInfo)
	if !ok || ci.Layout != "2x16" || ci.Bus != "spi0" || len(ci.Channels) != 2 || ci.Channels[0].Direction != "ccw" {
		t.Fatalf("info %#v", info)
	}
	st := waitFor[types.CapabilityStatus](t, h.client, Topic("spindle", "status"), nil)
	if st.Link != types.LinkUp {
		t.Fatalf("status %+v", st)
	}
}

func TestPolling(t *testing.T) {
	cc := icmd.Cnt2x24(icmd.ChannelSetup{}, icmd.ChannelSetup{})
	h := start(t, Config{Counter: &cc, PollInterval: 5 * time.Millisecond})
	h.sim.SetCounts(-7, 1234)
	h.sim.SetLines(true, false)

	v := waitFor(t, h.client, Topic("spindle", "value"), func(v types.CounterValue) bool {
		return len(v.Counts) == 2 && v.Counts[0] == -7
	})
	if v.Counts[1] != 1234 || v.Layout != "2x24" || v.Warning || !v.Error {
		t.Fatalf("value %+v", v)
	}
}

func TestReadControl(t *testing.T) {
	h := start(t, Config{})
	h.sim.SetCounts(1 << 40)
	v, ok := h.request(t, VerbRead, nil).(types.CounterValue)
	if !ok || v.Layout != "1x48" || v.Counts[0] != 1<<40 {
		t.Fatalf("read %#v", v)
	}
}

func TestConfigureControl(t *testing.T) {
	h := start(t, Config{})

	setup := types.CounterSetup{Layout: "2x32x16", Channels: []types.ChannelSetup{{}, {Direction: "ccw"}}}
	expectOK(t, h.request(t, VerbConfigure, setup))
	if h.sim.Config() != 0x15 {
		t.Fatalf("config byte 0x%02x", h.sim.Config())
	}
	waitFor(t, h.client, Topic("spindle", "info"), func(i types.Info) bool {
		ci, _ := i.Detail.(types.CounterInfo)
		return ci.Layout == "2x32x16"
	})

	// JSON payloads, as a bridge would deliver them.
	expectOK(t, h.request(t, VerbConfigure, []byte(`{"layout":"3x16"}`)))
	if h.sim.Config() != 0x07 {
		t.Fatalf("config byte 0x%02x", h.sim.Config())
	}
}

func TestConfigureRejects(t *testing.T) {
	h := start(t, Config{})
	expectErr(t, h.request(t, VerbConfigure, types.CounterSetup{Layout: "4x12"}), "invalid_layout")
	expectErr(t, h.request(t, VerbConfigure, types.CounterSetup{Layout: "1x16", Channels: make([]types.ChannelSetup, 2)}), "invalid_layout")
	expectErr(t, h.request(t, VerbConfigure, types.CounterSetup{Channels: []types.ChannelSetup{{Direction: "up"}}}), "invalid_payload")
	expectErr(t, h.request(t, VerbConfigure, 42), "invalid_payload")

	// Transport failure keeps the previous configuration.
	h.sim.FailWrites(errors.New("nack"))
	expectErr(t, h.request(t, VerbConfigure, types.CounterSetup{Layout: "1x16"}), "transport_error")
	h.sim.FailWrites(nil)
	v, ok := h.request(t, VerbRead, nil).(types.CounterValue)
	if !ok || v.Layout != "1x48" {
		t.Fatalf("read after failed configure %#v", v)
	}
}

func TestActuatorsAndReset(t *testing.T) {
	h := start(t, Config{})
	expectOK(t, h.request(t, VerbActuators, types.ActuatorSet{Act1: true}))
	if h.sim.Actuators() != icmdsim.InsAct1 {
		t.Fatalf("act 0x%02x", h.sim.Actuators())
	}

	h.sim.SetCounts(99)
	expectOK(t, h.request(t, VerbReset, &types.CounterReset{Cnt0: true}))
	w := h.sim.Writes()
	last := w[len(w)-1]
	if last.Addr != icmdsim.RegInstruction || last.Data[0] != icmdsim.InsAct1|icmdsim.InsABRes0 {
		t.Fatalf("last write %+v", last)
	}

	// Empty reset means all three.
	expectOK(t, h.request(t, VerbReset, nil))
	w = h.sim.Writes()
	if got := w[len(w)-1].Data[0]; got != icmdsim.InsAct1|0x07 {
		t.Fatalf("reset all 0x%02x", got)
	}
}

func TestInstructionVerbs(t *testing.T) {
	h := start(t, Config{})
	expectOK(t, h.request(t, VerbTouchProbe, nil))
	expectOK(t, h.request(t, VerbZeroCodification, nil))
	w := h.sim.Writes()
	if w[len(w)-2].Data[0] != icmdsim.InsTP || w[len(w)-1].Data[0] != icmdsim.InsZCEn {
		t.Fatalf("writes %+v", w)
	}
}

func TestFullStatusAndReference(t *testing.T) {
	h := start(t, Config{})
	h.sim.SetStatus(0x8C, 0x04, 0x00)
	fs, ok := h.request(t, VerbFullStatus, nil).(types.FullStatusValue)
	if !ok || !fs.ABError[0] || !fs.RefValid || !fs.UPDValid || !fs.ExtWarning || fs.Raw != [3]byte{0x8C, 0x04, 0x00} {
		t.Fatalf("full status %#v", fs)
	}

	h.sim.SetReference(0x123456)
	ref, ok := h.request(t, VerbReference, nil).(types.ReferenceValue)
	if !ok || ref.Ref != 0x123456 {
		t.Fatalf("reference %#v", ref)
	}
}

func TestPeriodicFullStatus(t *testing.T) {
	h := start(t, Config{FullStatusInterval: 5 * time.Millisecond})

	// Status bits clear on read, so subscribe before raising one.
	sub := h.client.Subscribe(Topic("spindle", "full_status"))
	defer sub.Unsubscribe()
	h.sim.SetStatus(0x0C|0x10, 0, 0)

	deadline := time.After(time.Second)
	for {
		select {
		case m := <-sub.Channel():
			if v, ok := m.Payload.(types.FullStatusValue); ok && v.Undervolt {
				return
			}
		case <-deadline:
			t.Fatal("undervoltage never published")
		}
	}
}

func TestUnknownVerb(t *testing.T) {
	h := start(t, Config{})
	expectErr(t, h.request(t, "explode", nil), "unknown_verb")
}

func TestDegradedAndRecovery(t *testing.T) {
	h := start(t, Config{PollInterval: 5 * time.Millisecond})
	h.sim.FailReads(errors.New("spi timeout"))
	waitFor(t, h.client, Topic("spindle", "status"), func(s types.CapabilityStatus) bool {
		return s.Link == types.LinkDegraded && s.Error == "transport_error"
	})
	expectErr(t, h.request(t, VerbRead, nil), "transport_error")

	h.sim.FailReads(nil)
	waitFor(t, h.client, Topic("spindle", "status"), func(s types.CapabilityStatus) bool {
		return s.Link == types.LinkUp && s.Error == ""
	})
}

func TestInitFailureRetriesOnPoll(t *testing.T) {
	sim := icmdsim.New()
	sim.FailWrites(errors.New("nack"))
	b := bus.NewBus(16)
	client := b.NewConnection("client")
	svc := New(icmd.New(sim), b.NewConnection("counter"), Config{Name: "spindle", PollInterval: 5 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	defer func() { cancel(); <-done }()

	waitFor(t, client, Topic("spindle", "status"), func(s types.CapabilityStatus) bool {
		return s.Link == types.LinkDegraded
	})

	ctxReq, cancelReq := context.WithTimeout(context.Background(), time.Second)
	defer cancelReq()
	reply, err := client.RequestWait(ctxReq, client.NewMessage(Topic("spindle", "control", VerbRead), nil, false))
	if err != nil {
		t.Fatal(err)
	}
	expectErr(t, reply.Payload, "not_ready")

	sim.FailWrites(nil)
	waitFor(t, client, Topic("spindle", "state"), func(s types.ServiceState) bool { return s.Level == "ready" })
}

func TestStopPublishesState(t *testing.T) {
	h := start(t, Config{})
	h.cancel()
	if err := <-h.done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	h.done <- nil // let Cleanup observe termination
	st := waitFor[types.ServiceState](t, h.client, Topic("spindle", "state"), nil)
	if st.Level != "stopped" {
		t.Fatalf("state %+v", st)
	}
	ls := waitFor[types.CapabilityStatus](t, h.client, Topic("spindle", "status"), nil)
	if ls.Link != types.LinkDown {
		t.Fatalf("status %+v", ls)
	}
}

func TestNegativeReference(t *testing.T) {
	h := start(t, Config{})
	h.sim.SetReference(-2)
	ref, ok := h.request(t, VerbReference, nil).(types.ReferenceValue)
	if !ok || ref.Ref != -2 {
		t.Fatalf("reference %#v", ref)
	}
}
