// services/counter/counter.go
package counter

import (
	"context"
	"time"

	"icmd-go/bus"
	"icmd-go/drivers/icmd"
	"icmd-go/errcode"
	"icmd-go/types"
	"icmd-go/x/logx"
	"icmd-go/x/timex"
)

// -----------------------------------------------------------------------------
// Topics
//
//	icmd/<name>/info           retained types.Info{Detail: types.CounterInfo}
//	icmd/<name>/status         retained types.CapabilityStatus
//	icmd/<name>/state          retained types.ServiceState
//	icmd/<name>/value          retained types.CounterValue
//	icmd/<name>/full_status    retained types.FullStatusValue
//	icmd/<name>/control/<verb> request; reply per verb
// -----------------------------------------------------------------------------

const (
	rootToken     = "icmd"
	schemaVersion = 1
	driverName    = "icmd"
)

func Topic(name string, tail ...any) bus.Topic { return bus.T(rootToken, name).Append(tail...) }

// Config is the runtime part of the service. A nil Counter keeps whatever
// configuration the Device already holds.
type Config struct {
	Name               string
	BusName            string // shown in info only
	Counter            *icmd.CounterConfig
	PollInterval       time.Duration // 0 disables polling
	FullStatusInterval time.Duration // 0 disables periodic full status
}

type Service struct {
	dev  *icmd.Device
	conn *bus.Connection
	cfg  Config
	log  logx.Logger

	ready bool
	link  types.Link
	code  errcode.Code
}

func New(dev *icmd.Device, conn *bus.Connection, cfg Config, log logx.Logger) *Service {
	if log == nil {
		log = logx.Nop()
	}
	return &Service{dev: dev, conn: conn, cfg: cfg, log: log}
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

// Run owns the Device until ctx is cancelled. All device access happens on
// this goroutine.
func (s *Service) Run(ctx context.Context) error {
	ctrlSub := s.conn.Subscribe(Topic(s.cfg.Name, "control", bus.SingleWild))
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("starting", "init")
	if s.cfg.Counter != nil {
		s.dev.SetCounterConfig(*s.cfg.Counter)
	}
	s.init()
	s.publishInfo()

	pollC, stopPoll := timex.Tick(s.cfg.PollInterval)
	defer stopPoll()
	fullC, stopFull := timex.Tick(s.cfg.FullStatusInterval)
	defer stopFull()

	for {
		select {
		case <-ctx.Done():
			s.setLink(types.LinkDown, errcode.OK)
			s.publishState("stopped", "context_cancelled")
			return nil

		case msg, ok := <-ctrlSub.Channel():
			if !ok {
				s.publishState("stopped", "control_closed")
				return errcode.NotReady
			}
			s.handleControl(msg)

		case <-pollC:
			if !s.ready && !s.init() {
				continue
			}
			_, _ = s.read()

		case <-fullC:
			if s.ready {
				_, _ = s.readFullStatus()
			}
		}
	}
}

// init writes the stored configuration. It reports whether the device is
// ready.
func (s *Service) init() bool {
	if err := s.dev.Init(); err != nil {
		s.fail("init", err)
		s.ready = false
		return false
	}
	s.ready = true
	s.log.Infof("configured layout %v", s.dev.CounterConfig().Layout())
	s.publishState("ready", "configured")
	s.setLink(types.LinkUp, errcode.OK)
	return true
}

func (s *Service) read() (types.CounterValue, error) {
	c, err := s.dev.ReadCounter()
	if err != nil {
		s.fail("read", err)
		return types.CounterValue{}, err
	}
	v := counterValue(c, s.dev.DeviceStatus(), timex.NowMs())
	s.conn.Publish(s.conn.NewMessage(Topic(s.cfg.Name, "value"), v, true))
	s.setLink(types.LinkUp, errcode.OK)
	return v, nil
}

func (s *Service) readFullStatus() (types.FullStatusValue, error) {
	fs, err := s.dev.ReadFullStatus()
	if err != nil {
		s.fail("full_status", err)
		return types.FullStatusValue{}, err
	}
	v := fullStatusValue(fs, timex.NowMs())
	s.conn.Publish(s.conn.NewMessage(Topic(s.cfg.Name, "full_status"), v, true))
	s.setLink(types.LinkUp, errcode.OK)
	return v, nil
}

func (s *Service) fail(op string, err error) {
	code := errcode.Of(err)
	if s.link != types.LinkDegraded || s.code != code {
		s.log.Warnf("%s failed: %v", op, err)
	}
	s.setLink(types.LinkDegraded, code)
}

// -----------------------------------------------------------------------------
// Publishing
// -----------------------------------------------------------------------------

// setLink publishes icmd/<name>/status on change only.
func (s *Service) setLink(l types.Link, code errcode.Code) {
	if s.link == l && s.code == code {
		return
	}
	s.link, s.code = l, code
	st := types.CapabilityStatus{Link: l, TS: timex.NowMs()}
	if code != errcode.OK {
		st.Error = string(code)
	}
	s.conn.Publish(s.conn.NewMessage(Topic(s.cfg.Name, "status"), st, true))
}

func (s *Service) publishInfo() {
	info := types.Info{
		SchemaVersion: schemaVersion,
		Driver:        driverName,
		Detail:        counterInfo(s.dev.CounterConfig(), s.cfg.BusName, s.cfg.PollInterval),
	}
	s.conn.Publish(s.conn.NewMessage(Topic(s.cfg.Name, "info"), info, true))
}

func (s *Service) publishState(level, status string) {
	st := types.ServiceState{Level: level, Status: status, TS: timex.NowMs()}
	s.conn.Publish(s.conn.NewMessage(Topic(s.cfg.Name, "state"), st, true))
}
