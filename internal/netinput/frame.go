package netinput

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"libdb.so/luxmux/internal/image"
	"libdb.so/luxmux/internal/muxer"
)

// FrameListener accepts length-prefixed image frames from remote grabbers.
// Each frame is a big-endian uint32 payload length followed by a big-endian
// uint16 width, uint16 height, and width*height*3 raw RGB bytes.
//
// Hyperion's real FlatBuffer and Protocol Buffer server components speak
// schema'd messages (an ImageRequest wrapping this same width/height/RGB
// payload plus a registration handshake); those schemas are not part of
// this repository's dependency surface, so FrameListener implements the
// wire-compatible raw-frame body both component kinds ultimately carry,
// without the handshake or the generated marshaling code.
type FrameListener struct {
	mux         *muxer.Muxer
	listen      string
	priority    muxer.Priority
	componentId muxer.ComponentId
	timeoutMs   int64
	log         *slog.Logger
}

// NewFlatBufferListener creates a FrameListener registered as ComponentFlatBuffer.
func NewFlatBufferListener(mux *muxer.Muxer, listen string, priority muxer.Priority, timeoutMs int64, log *slog.Logger) *FrameListener {
	return newFrameListener(mux, listen, priority, muxer.ComponentFlatBuffer, timeoutMs, log)
}

// NewProtoBufferListener creates a FrameListener registered as ComponentProtoBuffer.
func NewProtoBufferListener(mux *muxer.Muxer, listen string, priority muxer.Priority, timeoutMs int64, log *slog.Logger) *FrameListener {
	return newFrameListener(mux, listen, priority, muxer.ComponentProtoBuffer, timeoutMs, log)
}

func newFrameListener(mux *muxer.Muxer, listen string, priority muxer.Priority, componentId muxer.ComponentId, timeoutMs int64, log *slog.Logger) *FrameListener {
	if log == nil {
		log = slog.Default()
	}
	return &FrameListener{mux: mux, listen: listen, priority: priority, componentId: componentId, timeoutMs: timeoutMs, log: log}
}

// Run accepts connections until ctx is canceled.
func (l *FrameListener) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.listen)
	if err != nil {
		return fmt.Errorf("%s: listen on %s: %w", l.componentId, l.listen, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	l.log.Info("frame listener started", "listen", l.listen, "component", l.componentId, "priority", l.priority)
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

func (l *FrameListener) handleConn(conn net.Conn, connID uuid.UUID) {
	defer conn.Close()

	origin := fmt.Sprintf("%s/%s", l.componentId, connID)
	l.mux.Register(l.priority, l.componentId, origin, "", 0)
	defer l.mux.Clear(l.priority)

	for {
		var length uint32
		if err := binary.Read(conn, binary.BigEndian, &length); err != nil {
			if err != io.EOF {
				l.log.Debug("frame listener read error", "origin", origin, "error", err)
			}
			return
		}
		if length < 4 {
			l.log.Warn("frame too short", "origin", origin, "length", length)
			return
		}

		var width, height uint16
		if err := binary.Read(conn, binary.BigEndian, &width); err != nil {
			return
		}
		if err := binary.Read(conn, binary.BigEndian, &height); err != nil {
			return
		}

		want := int(length) - 4
		pixels := make([]uint8, want)
		if _, err := io.ReadFull(conn, pixels); err != nil {
			return
		}

		img := image.Image{Width: int(width), Height: int(height), Pixels: pixels}
		if _, err := l.mux.SetImageInput(l.priority, img, l.timeoutMs); err != nil {
			l.log.Warn("frame set failed", "origin", origin, "error", err)
			return
		}
	}
}
