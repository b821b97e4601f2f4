package heartbeat

import (
	"context"
	"testing"
	"time"

	"icmd-go/bus"
	"icmd-go/services/config"
)

func TestHeartbeatFollowsConfig(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	beats := conn.Subscribe(TopicHeartbeat)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { New(nil).Run(ctx, b.NewConnection("heartbeat")); close(done) }()
	defer func() { cancel(); <-done }()

	select {
	case <-beats.Channel():
		t.Fatal("beat before config")
	case <-time.After(50 * time.Millisecond):
	}

	conn.Publish(conn.NewMessage(topicConfigHeartbeat, config.HeartbeatConfig{IntervalMs: 5}, true))
	var last uint64
	for i := 0; i < 3; i++ {
		select {
		case m := <-beats.Channel():
			bt := m.Payload.(Beat)
			if bt.Seq <= last {
				t.Fatalf("seq %d after %d", bt.Seq, last)
			}
			last = bt.Seq
		case <-time.After(time.Second):
			t.Fatal("no beat")
		}
	}
}
