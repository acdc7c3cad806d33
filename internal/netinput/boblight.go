// Package netinput accepts remote lighting clients over TCP and feeds their
// frames into a Muxer, one registered priority per listener.
package netinput

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"libdb.so/luxmux/internal/led"
	"libdb.so/luxmux/internal/muxer"
)

// BoblightListener speaks the subset of the boblight text protocol that
// matters for lighting control: hello, get lights, and set light rgb. It
// does not implement boblight's scan-area negotiation beyond reporting a
// single full-strip light.
type BoblightListener struct {
	mux       *muxer.Muxer
	listen    string
	priority  muxer.Priority
	timeoutMs int64
	ledCount  int
	log       *slog.Logger
}

// NewBoblightListener creates a listener that registers priority with mux
// whenever a client is connected.
func NewBoblightListener(mux *muxer.Muxer, listen string, priority muxer.Priority, ledCount int, timeoutMs int64, log *slog.Logger) *BoblightListener {
	if log == nil {
		log = slog.Default()
	}
	return &BoblightListener{mux: mux, listen: listen, priority: priority, ledCount: ledCount, timeoutMs: timeoutMs, log: log}
}

// Run accepts connections until ctx is canceled.
func (l *BoblightListener) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.listen)
	if err != nil {
		return fmt.Errorf("boblight: listen on %s: %w", l.listen, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	l.log.Info("boblight listener started", "listen", l.listen, "priority", l.priority)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go l.handleConn(conn, uuid.New())
	}
}

func (l *BoblightListener) handleConn(conn net.Conn, connID uuid.UUID) {
	defer conn.Close()

	origin := fmt.Sprintf("boblight/%s", connID)
	l.log.Debug("boblight client connected", "origin", origin, "remote", conn.RemoteAddr())
	l.mux.Register(l.priority, muxer.ComponentBoblightServer, origin, "", 0)
	defer l.mux.Clear(l.priority)

	colors := led.New(l.ledCount)
	w := bufio.NewWriter(conn)
	scanner := bufio.NewScanner(conn)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "hello":
			w.WriteString("hello\n")
			w.Flush()

		case "get":
			if len(fields) >= 2 && fields[1] == "lights" {
				fmt.Fprintf(w, "lights 1\n")
				fmt.Fprintf(w, "light 000 scan 0.000000 100.000000 0.000000 100.000000\n")
				w.Flush()
			}

		case "set":
			if len(fields) >= 6 && fields[1] == "light" && fields[3] == "rgb" {
				r, rerr := strconv.ParseFloat(fields[4], 64)
				g, gerr := strconv.ParseFloat(fields[5], 64)
				var b float64
				var berr error
				if len(fields) >= 7 {
					b, berr = strconv.ParseFloat(fields[6], 64)
				}
				if rerr != nil || gerr != nil || berr != nil {
					continue
				}
				colors = led.Solid(l.ledCount, led.RGB(unitToByte(r), unitToByte(g), unitToByte(b)))
				if _, err := l.mux.SetColorInput(l.priority, colors, l.timeoutMs); err != nil {
					l.log.Warn("boblight set failed", "origin", origin, "error", err)
				}
			}
		}
	}
	l.log.Debug("boblight client disconnected", "origin", origin)
}

func unitToByte(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v * 255)
}
