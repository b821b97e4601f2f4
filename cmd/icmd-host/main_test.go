package main

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"icmd-go/services/config"
	"icmd-go/x/logx"
)

// lockedBuffer serializes writes from Consoles that share it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func parse(t *testing.T, raw string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func simWithExport(t *testing.T, endpoint string, address int) *config.Config {
	return parse(t, "device: { name: spindle, spi: { port: sim } }\n"+
		"export: { endpoint: \""+endpoint+"\", address: "+strconv.Itoa(address)+" }\n")
}

// run must stop the heartbeat before returning, whichever step fails.
func TestRunStopsHeartbeatOnExportError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				c.Close()
			}
		}()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	refused := closed.Addr().String()
	closed.Close()

	cases := map[string]*config.Config{
		"client dial": simWithExport(t, refused, 0),
		"block range": simWithExport(t, ln.Addr().String(), 65530),
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			var out lockedBuffer
			if err := run(context.Background(), cfg, logx.NewConsole(&out, "")); err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(out.String(), "heartbeat stopping") {
				t.Fatalf("heartbeat still running:\n%s", out.String())
			}
		})
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	cfg := parse(t, "device: { name: spindle, spi: { port: sim } }\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out lockedBuffer
	if err := run(ctx, cfg, logx.NewConsole(&out, "")); err != nil {
		t.Fatalf("err=%v", err)
	}
	if !strings.Contains(out.String(), "heartbeat stopping") {
		t.Fatalf("heartbeat still running:\n%s", out.String())
	}
}
