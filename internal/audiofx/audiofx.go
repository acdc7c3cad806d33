// Package audiofx drives an audio-reactive Effect input into a Muxer: it
// samples system audio through catnip and scales a base color by the
// resulting amplitude, completing what the teacher project's ledvis package
// only stubbed out.
package audiofx

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/noriah/catnip"
	"github.com/noriah/catnip/processor"

	"libdb.so/luxmux/internal/led"
	"libdb.so/luxmux/internal/muxer"
)

// ChannelStyle controls how stereo input is folded into a single strip.
type ChannelStyle uint8

const (
	// MonoLeft draws a single mono channel.
	MonoLeft ChannelStyle = iota
	// StereoSymmetricMiddle draws the left and right channels symmetrically
	// outward from the strip's middle.
	StereoSymmetricMiddle
)

// NumChannels reports how many audio channels this style consumes.
func (s ChannelStyle) NumChannels() int {
	switch s {
	case StereoSymmetricMiddle:
		return 2
	default:
		return 1
	}
}

// Config configures a Source.
type Config struct {
	Priority     muxer.Priority
	Origin       string
	Backend      string
	Device       string
	Bins         int
	SmoothFactor float64
	ChannelStyle ChannelStyle
	Color        led.RGBColor
	Timeout      time.Duration
}

// Source registers cfg.Priority as an Effect input and keeps it alive with
// amplitude-scaled color as long as the audio backend keeps delivering
// samples. Losing the backend lets the priority time out naturally through
// the muxer's normal expiry path rather than needing its own error signal.
type Source struct {
	mux      *muxer.Muxer
	cfg      Config
	log      *slog.Logger
	ledCount int

	mu        sync.Mutex
	lastMono  float64
	lastLeft  float64
	lastRight float64
}

var _ processor.Output = (*Source)(nil)

// New creates a Source that will drive ledCount LEDs when run.
func New(mux *muxer.Muxer, ledCount int, cfg Config, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Bins <= 0 {
		cfg.Bins = ledCount
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Source{mux: mux, cfg: cfg, log: log, ledCount: ledCount}
}

// Bins implements processor.Output.
func (s *Source) Bins() int { return s.cfg.Bins }

// Write implements processor.Output. For MonoLeft it folds every bin into a
// single normalized amplitude and pushes a scaled solid color. For
// StereoSymmetricMiddle it keeps the left and right channels separate and
// draws each into its own half of the strip, so the two channels light up
// symmetrically outward from the middle instead of blending into one flat
// color.
func (s *Source) Write(bins [][]float64, nchannels int) error {
	var colors led.LEDs
	if s.cfg.ChannelStyle == StereoSymmetricMiddle && len(bins) >= 2 {
		colors = s.renderStereo(bins[0], bins[1])
	} else {
		amp := s.smooth(&s.lastMono, averageAmplitude(bins))
		colors = led.Solid(s.ledCount, scaleColor(s.cfg.Color, amp))
	}

	_, err := s.mux.SetColorInput(s.cfg.Priority, colors, s.cfg.Timeout.Milliseconds())
	return err
}

// renderStereo draws left's amplitude into the first half of the strip and
// right's into the second half, each as a solid scaled color, so the two
// channels light up symmetrically outward from the middle.
func (s *Source) renderStereo(left, right []float64) led.LEDs {
	half := s.ledCount / 2
	leftAmp := s.smooth(&s.lastLeft, averageAmplitude([][]float64{left}))
	rightAmp := s.smooth(&s.lastRight, averageAmplitude([][]float64{right}))

	strip := led.New(s.ledCount)
	strip.Draw(0, led.Solid(half, scaleColor(s.cfg.Color, leftAmp)))
	strip.Draw(half, led.Solid(s.ledCount-half, scaleColor(s.cfg.Color, rightAmp)))
	return strip
}

// smooth applies a little extra exponential smoothing on top of catnip's own
// SmoothFactor so single-frame spikes don't strobe the strip. state is the
// caller's per-channel history cell.
func (s *Source) smooth(state *float64, amp float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	amp = *state*0.4 + amp*0.6
	*state = amp
	return amp
}

// Run registers the priority and streams audio through catnip until ctx is
// canceled or the backend fails.
func (s *Source) Run(ctx context.Context) error {
	s.mux.Register(s.cfg.Priority, muxer.ComponentEffect, s.cfg.Origin, "audiofx", 0)
	defer s.mux.Clear(s.cfg.Priority)

	s.log.Info("starting audio effect source",
		"priority", s.cfg.Priority, "backend", s.cfg.Backend, "device", s.cfg.Device)

	err := catnip.Run(ctx, catnip.Config{
		Backend:      s.cfg.Backend,
		Device:       s.cfg.Device,
		SmoothFactor: s.cfg.SmoothFactor,
		ChannelCount: s.cfg.ChannelStyle.NumChannels(),
		Output:       s,
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func averageAmplitude(bins [][]float64) float64 {
	var sum float64
	var n int
	for _, channel := range bins {
		for _, v := range channel {
			sum += math.Abs(v)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	amp := sum / float64(n)
	if amp > 1 {
		amp = 1
	}
	return amp
}

func scaleColor(base led.RGBColor, amp float64) led.RGBColor {
	scale := func(c uint8) uint8 { return uint8(float64(c) * amp) }
	return led.RGB(scale(base.R()), scale(base.G()), scale(base.B()))
}
