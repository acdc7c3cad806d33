// Package luxmux wires a priority Muxer to a serial LED controller and to
// the optional status, metrics, audio-reactive, and network-input
// subsystems a running deployment can enable.
package luxmux

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"

	"libdb.so/luxmux/internal/audiofx"
	"libdb.so/luxmux/internal/led"
	"libdb.so/luxmux/internal/metrics"
	"libdb.so/luxmux/internal/muxer"
	"libdb.so/luxmux/internal/netinput"
	"libdb.so/luxmux/internal/status"
	"libdb.so/luxmux/ledserial"
)

// Daemon owns a Muxer and everything that either feeds it (audio effects,
// network listeners) or drains it (the serial LED output, the status and
// metrics HTTP surfaces).
type Daemon struct {
	cfg *Config
	log *slog.Logger
	mux *muxer.Muxer
}

// NewDaemon validates cfg and constructs a Daemon around a fresh Muxer. It
// does not open the serial port or start any subsystem; call Run for that.
func NewDaemon(cfg *Config, log *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Daemon{
		cfg: cfg,
		log: log,
		mux: muxer.New(log, muxer.NewSystemClock(), cfg.LEDCount),
	}, nil
}

// Muxer returns the daemon's priority multiplexer. Callers use it to wire a
// configwatch.Watcher's reload handler to UpdateLEDCount, or to inspect
// state from tests.
func (d *Daemon) Muxer() *muxer.Muxer { return d.mux }

// Run starts the muxer's tick loop, the serial output loop, and every
// subsystem cfg enables. It blocks until ctx is canceled or a subsystem
// fails.
func (d *Daemon) Run(ctx context.Context) error {
	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error { return d.mux.Run(ctx) })
	errg.Go(func() error { return d.runSerialOutput(ctx) })

	if d.cfg.Status.Enabled {
		srv := status.New(d.mux, d.cfg.Status.Listen)
		errg.Go(func() error { return srv.Run(ctx) })
	}

	if d.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		collector := metrics.New(d.mux, reg)
		errg.Go(func() error { return collector.Run(ctx) })
		errg.Go(func() error { return metrics.Serve(ctx, reg, d.cfg.Metrics.Listen) })
	}

	if fx := d.cfg.AudioFX; fx != nil {
		source := audiofx.New(d.mux, d.cfg.LEDCount, audiofx.Config{
			Priority:     fx.Priority,
			Origin:       "audiofx",
			Backend:      fx.Backend,
			Device:       fx.Device,
			SmoothFactor: fx.Smooth,
			Color:        led.RGB(255, 255, 255),
			Timeout:      time.Duration(fx.Timeout),
		}, d.log)
		errg.Go(func() error { return source.Run(ctx) })
	}

	if l := d.cfg.NetInput.Boblight; l != nil {
		listener := netinput.NewBoblightListener(d.mux, l.Listen, l.Priority, d.cfg.LEDCount, listenerTimeoutMs(l), d.log)
		errg.Go(func() error { return listener.Run(ctx) })
	}
	if l := d.cfg.NetInput.FlatBuffer; l != nil {
		listener := netinput.NewFlatBufferListener(d.mux, l.Listen, l.Priority, listenerTimeoutMs(l), d.log)
		errg.Go(func() error { return listener.Run(ctx) })
	}
	if l := d.cfg.NetInput.ProtoBuffer; l != nil {
		listener := netinput.NewProtoBufferListener(d.mux, l.Listen, l.Priority, listenerTimeoutMs(l), d.log)
		errg.Go(func() error { return listener.Run(ctx) })
	}

	return errg.Wait()
}

func listenerTimeoutMs(l *ListenerConfig) int64 {
	if l.Timeout <= 0 {
		return -1 // persistent, matching Hyperion's default for pushed sources
	}
	return time.Duration(l.Timeout).Milliseconds()
}

// runSerialOutput owns the serial port for the process lifetime: it opens
// the port, streams the muxer's visible priority to it at cfg.Rate, and
// relays controller-reported errors and log lines.
func (d *Daemon) runSerialOutput(ctx context.Context) error {
	port, err := serial.Open(d.cfg.Device, &serial.Mode{BaudRate: d.cfg.Baud})
	if err != nil {
		return errors.Wrap(err, "failed to open serial port")
	}
	defer port.Close()

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		<-ctx.Done()
		d.log.Debug("closing serial port")
		if err := port.Close(); err != nil {
			return errors.Wrap(err, "failed to close serial port")
		}
		return ctx.Err()
	})

	outPackets := make(chan ledserial.OutgoingPacket)
	errg.Go(func() error { return d.serialWriteLoop(ctx, port, outPackets) })
	errg.Go(func() error { return d.serialReadLoop(ctx, port, outPackets) })

	return errg.Wait()
}

// serialWriteLoop initializes the controller, then pushes the muxer's
// visible frame at cfg.Rate while relaying whatever the controller reports
// on outPackets.
func (d *Daemon) serialWriteLoop(ctx context.Context, port serial.Port, outPackets <-chan ledserial.OutgoingPacket) error {
	d.log.Debug("waiting 100ms for the read loop to start...")
	time.Sleep(100 * time.Millisecond)

	d.log.Debug("sending initialize packet")
	if !d.writePacket(port, ledserial.InitializePacket{NumLEDs: uint16(d.cfg.LEDCount)}) {
		return errors.New("failed to initialize LEDs")
	}

	frameTicker := time.NewTicker(time.Second / time.Duration(d.cfg.Rate))
	defer frameTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case p := <-outPackets:
			d.log.Debug("handling packet from controller", "type", p.Type())
			switch p := p.(type) {
			case ledserial.ErrorPacket:
				d.log.Warn("received error packet from controller", "message", p.Message)
				return errors.New("controller reported error")
			case ledserial.PanicPacket:
				d.log.Error("controller unrecoverably panicked")
				return errors.New("controller panicked")
			case ledserial.LogPacket:
				d.log.Info("received log packet from controller", "message", p.Message)
			}

		case <-frameTicker.C:
			visible := d.mux.GetVisible()
			d.writePacket(port, ledserial.SetPacket{Pix: framePixels(visible, d.cfg.LEDCount)})
		}
	}
}

func (d *Daemon) serialReadLoop(ctx context.Context, port serial.Port, dst chan<- ledserial.OutgoingPacket) error {
	if err := port.SetReadTimeout(serial.NoTimeout); err != nil {
		return errors.Wrap(err, "failed to reset read timeout")
	}

	for ctx.Err() == nil {
		p, err := ledserial.ReadOutgoingPacket(port, ledserial.ReadContext{})
		if err != nil {
			if errors.Is(err, io.EOF) {
				continue
			}
			return errors.Wrap(err, "failed to read packet")
		}

		d.log.Debug("received packet from controller", "type", p.Type())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case dst <- p:
		}
	}

	return ctx.Err()
}

func (d *Daemon) writePacket(port serial.Port, p ledserial.IncomingPacket) bool {
	d.log.Debug("writing packet", "type", p.Type())
	if err := ledserial.WriteIncomingPacket(port, p); err != nil {
		d.log.Warn("failed to write packet", "packet", p.Type(), "error", err)
		return false
	}
	return true
}
