// services/export/export.go
package export

import (
	"context"
	"errors"
	"slices"

	"icmd-go/bus"
	"icmd-go/errcode"
	"icmd-go/services/counter"
	"icmd-go/types"
	"icmd-go/x/logx"
	"icmd-go/x/timex"
)

// endpointClient is the contract the exporter writes through.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// registerReader is implemented by clients that can read a block back.
type registerReader interface {
	ReadRegisters(unitID uint8, addr, qty uint16) ([]uint16, error)
}

type Config struct {
	Name    string // counter name, selects icmd/<name>/...
	UnitID  uint8
	Address uint16
	Verify  bool // read each block back after writing it
}

var (
	ErrAddressRange = errors.New("export: block does not fit below register 65536")
	ErrNoReadback   = errors.New("export: client cannot read registers back")
	ErrReadback     = errors.New("export: read-back does not match written block")
)

// Exporter mirrors one counter into a Modbus holding register block.
type Exporter struct {
	conn   *bus.Connection
	client endpointClient
	cfg    Config
	log    logx.Logger

	snap Snapshot
	have bool
	link types.Link
	code errcode.Code
}

func New(conn *bus.Connection, client endpointClient, cfg Config, log logx.Logger) (*Exporter, error) {
	if int(cfg.Address)+BlockLen > 1<<16 {
		return nil, ErrAddressRange
	}
	if _, ok := client.(registerReader); cfg.Verify && !ok {
		return nil, ErrNoReadback
	}
	if log == nil {
		log = logx.Nop()
	}
	return &Exporter{conn: conn, client: client, cfg: cfg, log: log}, nil
}

// Run writes the block whenever the value, the full status or the link state
// changes, until ctx is cancelled. Nothing is written before the first value.
func (e *Exporter) Run(ctx context.Context) error {
	valSub := e.conn.Subscribe(counter.Topic(e.cfg.Name, "value"))
	defer e.conn.Unsubscribe(valSub)
	fsSub := e.conn.Subscribe(counter.Topic(e.cfg.Name, "full_status"))
	defer e.conn.Unsubscribe(fsSub)
	stSub := e.conn.Subscribe(counter.Topic(e.cfg.Name, "status"))
	defer e.conn.Unsubscribe(stSub)

	for {
		select {
		case <-ctx.Done():
			return nil

		case m, ok := <-valSub.Channel():
			if !ok {
				return nil
			}
			v, isVal := m.Payload.(types.CounterValue)
			if !isVal {
				continue
			}
			e.snap.Value, e.have = v, true
			e.flush()

		case m, ok := <-fsSub.Channel():
			if !ok {
				return nil
			}
			fs, isFS := m.Payload.(types.FullStatusValue)
			if !isFS {
				continue
			}
			e.snap.FullStatus = &fs
			e.flush()

		case m, ok := <-stSub.Channel():
			if !ok {
				return nil
			}
			st, isSt := m.Payload.(types.CapabilityStatus)
			if !isSt {
				continue
			}
			degraded := st.Link != types.LinkUp
			if degraded != e.snap.Degraded {
				e.snap.Degraded = degraded
				e.flush()
			}
		}
	}
}

func (e *Exporter) flush() {
	if !e.have {
		return
	}
	if err := e.write(EncodeBlock(e.snap)); err != nil {
		e.setLink(types.LinkDegraded, errcode.ExportFailed, err)
		return
	}
	e.setLink(types.LinkUp, errcode.OK, nil)
}

func (e *Exporter) write(regs []uint16) error {
	if err := e.client.WriteRegisters(e.cfg.UnitID, e.cfg.Address, regs); err != nil {
		return err
	}
	if !e.cfg.Verify {
		return nil
	}
	got, err := e.client.(registerReader).ReadRegisters(e.cfg.UnitID, e.cfg.Address, uint16(len(regs)))
	if err != nil {
		return err
	}
	if !slices.Equal(got, regs) {
		return ErrReadback
	}
	return nil
}

// setLink publishes icmd/<name>/export/status on change only.
func (e *Exporter) setLink(l types.Link, code errcode.Code, err error) {
	if e.link == l && e.code == code {
		return
	}
	e.link, e.code = l, code
	if err != nil {
		e.log.Warnf("write unit=%d addr=%d failed: %v", e.cfg.UnitID, e.cfg.Address, err)
	} else {
		e.log.Infof("writing unit=%d addr=%d", e.cfg.UnitID, e.cfg.Address)
	}
	st := types.CapabilityStatus{Link: l, TS: timex.NowMs()}
	if code != errcode.OK {
		st.Error = string(code)
	}
	e.conn.Publish(e.conn.NewMessage(counter.Topic(e.cfg.Name, "export", "status"), st, true))
}
