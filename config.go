package luxmux

import (
	"encoding"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"libdb.so/luxmux/internal/muxer"
)

// Config is the configuration for the luxmux daemon.
type Config struct {
	// Device is the path to the LED controller's serial device, usually
	// /dev/ttyUSB0 or /dev/ttyACM0.
	Device string `toml:"device"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud"`
	// Rate is the frame rate at which the visible priority is pushed to the
	// LED controller.
	Rate int `toml:"rate"`
	// LEDCount is the number of LEDs on the strip.
	LEDCount int `toml:"led_count"`

	Status   StatusConfig   `toml:"status"`
	Metrics  MetricsConfig  `toml:"metrics"`
	AudioFX  *AudioFXConfig `toml:"audiofx,omitempty"`
	NetInput NetInputConfig `toml:"net_input"`
}

// StatusConfig configures the read-only HTTP status surface.
type StatusConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// AudioFXConfig configures the audio-reactive effect source. A nil AudioFX
// field on Config means no audio effect is registered with the muxer.
type AudioFXConfig struct {
	Priority muxer.Priority `toml:"priority"`
	Backend  string         `toml:"backend"`
	Device   string         `toml:"device"`
	Smooth   float64        `toml:"smooth"`
	Timeout  TOMLDuration   `toml:"timeout"`
}

// NetInputConfig configures the network listeners that feed the muxer on
// behalf of remote grabbers and light-control clients. A nil listener is not
// started.
type NetInputConfig struct {
	Boblight    *ListenerConfig `toml:"boblight,omitempty"`
	FlatBuffer  *ListenerConfig `toml:"flatbuffer,omitempty"`
	ProtoBuffer *ListenerConfig `toml:"protobuffer,omitempty"`
}

// ListenerConfig is the shared shape of a network input listener.
type ListenerConfig struct {
	Listen   string         `toml:"listen"`
	Priority muxer.Priority `toml:"priority"`
	Timeout  TOMLDuration   `toml:"timeout"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LEDCount <= 0 {
		return errors.New("led_count must be positive")
	}
	if c.Device == "" {
		return errors.New("device must be set")
	}
	if c.Baud <= 0 {
		return errors.New("baud must be positive")
	}
	if c.Rate <= 0 {
		return errors.New("rate must be positive")
	}
	if c.Status.Enabled && c.Status.Listen == "" {
		return errors.New("status.listen must be set when status is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New("metrics.listen must be set when metrics is enabled")
	}
	if c.AudioFX != nil && c.AudioFX.Priority == muxer.LowestPriority {
		return errors.New("audiofx.priority must not be the reserved lowest priority")
	}
	if l := c.NetInput.Boblight; l != nil && l.Listen == "" {
		return errors.New("net_input.boblight.listen must be set")
	}
	if l := c.NetInput.FlatBuffer; l != nil && l.Listen == "" {
		return errors.New("net_input.flatbuffer.listen must be set")
	}
	if l := c.NetInput.ProtoBuffer; l != nil && l.Listen == "" {
		return errors.New("net_input.protobuffer.listen must be set")
	}
	return nil
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader. Rate defaults to 60fps
// when unset since a zero rate would otherwise divide-by-zero when
// scheduling the output frame ticker.
func ParseConfig(r io.Reader) (*Config, error) {
	config := Config{Rate: 60}
	if err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
