package counter

import (
	"icmd-go/bus"
	"icmd-go/drivers/icmd"
	"icmd-go/errcode"
	"icmd-go/services/config"
	"icmd-go/types"
	"icmd-go/x/timex"
)

// Control verbs, the last token of icmd/<name>/control/<verb>.
const (
	VerbRead             = "read"
	VerbConfigure        = "configure"
	VerbActuators        = "actuators"
	VerbReset            = "reset"
	VerbTouchProbe       = "touch_probe"
	VerbZeroCodification = "zero_codification"
	VerbFullStatus       = "full_status"
	VerbReference        = "reference"
)

func (s *Service) handleControl(msg *bus.Message) {
	verb, _ := msg.Topic.At(msg.Topic.Len() - 1).(string)

	if verb == VerbConfigure {
		s.reply(msg, nil, s.configure(msg.Payload))
		return
	}
	if !s.ready {
		s.reply(msg, nil, errcode.NotReady)
		return
	}

	switch verb {
	case VerbRead:
		v, err := s.read()
		s.reply(msg, v, err)

	case VerbActuators:
		var set types.ActuatorSet
		if err := decode(msg.Payload, &set); err != nil {
			s.reply(msg, nil, err)
			return
		}
		s.reply(msg, nil, s.command("actuators", s.dev.ConfigureActuatorPins(pin(set.Act0), pin(set.Act1))))

	case VerbReset:
		var r types.CounterReset
		if err := decode(msg.Payload, &r); err != nil {
			s.reply(msg, nil, err)
			return
		}
		var err error
		if !r.Cnt0 && !r.Cnt1 && !r.Cnt2 {
			err = s.dev.ResetAllCounters()
		} else {
			err = s.dev.ResetCounters(r.Cnt0, r.Cnt1, r.Cnt2)
		}
		s.reply(msg, nil, s.command("reset", err))

	case VerbTouchProbe:
		s.reply(msg, nil, s.command("touch_probe", s.dev.TouchProbe()))

	case VerbZeroCodification:
		s.reply(msg, nil, s.command("zero_codification", s.dev.EnableZeroCodification()))

	case VerbFullStatus:
		v, err := s.readFullStatus()
		s.reply(msg, v, err)

	case VerbReference:
		ref, err := s.dev.ReadReferenceCounter()
		if err != nil {
			s.fail("reference", err)
			s.reply(msg, nil, err)
			return
		}
		s.reply(msg, types.ReferenceValue{Ref: ref, TS: timex.NowMs()}, nil)

	default:
		s.reply(msg, nil, errcode.UnknownVerb)
	}
}

// configure applies a new layout. On a failed write the previous
// configuration is kept.
func (s *Service) configure(payload any) error {
	var setup types.CounterSetup
	if err := decode(payload, &setup); err != nil {
		return err
	}
	cfg, err := config.CounterConfig(setup.Layout, setup.Channels)
	if err != nil {
		return err
	}

	prev, wasReady := s.dev.CounterConfig(), s.ready
	s.dev.SetCounterConfig(cfg)
	if !s.init() {
		s.dev.SetCounterConfig(prev)
		s.ready = wasReady
		return errcode.TransportError
	}
	s.publishInfo()
	return nil
}

// command records the link outcome of a write-only operation.
func (s *Service) command(op string, err error) error {
	if err != nil {
		s.fail(op, err)
		return err
	}
	s.setLink(types.LinkUp, errcode.OK)
	return nil
}

// reply answers msg with value on success (OKReply when value is nil) or an
// ErrorReply carrying the error code.
func (s *Service) reply(msg *bus.Message, value any, err error) {
	if !msg.CanReply() {
		return
	}
	switch {
	case err != nil:
		s.conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
	case value != nil:
		s.conn.Reply(msg, value, false)
	default:
		s.conn.Reply(msg, types.OKReply{OK: true}, false)
	}
}

func pin(high bool) icmd.PinStatus {
	if high {
		return icmd.PinHigh
	}
	return icmd.PinLow
}
