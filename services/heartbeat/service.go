package heartbeat

import (
	"context"
	"time"

	"icmd-go/bus"
	"icmd-go/services/config"
	"icmd-go/x/logx"
	"icmd-go/x/timex"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	TopicHeartbeat       = bus.T("sys", "heartbeat")
)

// Beat is published retained on sys/heartbeat.
type Beat struct {
	Seq      uint64 `json:"seq"`
	UptimeMs int64  `json:"uptime_ms"`
	TS       int64  `json:"ts_ms"`
}

type Service struct {
	log   logx.Logger
	start time.Time
	seq   uint64
}

func New(log logx.Logger) *Service {
	if log == nil {
		log = logx.Nop()
	}
	return &Service{log: log}
}

// Run beats every config/heartbeat interval until ctx is cancelled. It stays
// idle until the first config arrives; an interval of 0 pauses it.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	s.start = time.Now()
	tick, stop := timex.Tick(0)
	defer func() { stop() }()

	for {
		select {
		case <-ctx.Done():
			s.log.Infof("heartbeat stopping")
			return
		case <-tick:
			s.seq++
			b := Beat{Seq: s.seq, UptimeMs: time.Since(s.start).Milliseconds(), TS: timex.NowMs()}
			s.log.Debugf("heartbeat %d", b.Seq)
			conn.Publish(conn.NewMessage(TopicHeartbeat, b, true))
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			hc, isCfg := msg.Payload.(config.HeartbeatConfig)
			if !isCfg {
				continue
			}
			stop()
			tick, stop = timex.Tick(timex.Ms(hc.IntervalMs))
			s.log.Infof("heartbeat interval %dms", hc.IntervalMs)
		}
	}
}
