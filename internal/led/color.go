// Package led holds the raw pixel types shared by the priority multiplexer
// and everything downstream of it. It knows nothing about priorities,
// timeouts, or protocols; it is the "opaque blob with a size" the muxer
// stores and returns without interpreting.
package led

// RGBColor is a single LED pixel. It is a fixed-size array, not a struct, so
// that a strip of them can be reinterpreted as a flat byte buffer for the
// wire (see LEDs.AsPixels).
type RGBColor [3]uint8

// Black is the zero color, used to fill newly grown LED buffers.
var Black = RGBColor{0, 0, 0}

// RGB constructs a color from its channels.
func RGB(r, g, b uint8) RGBColor {
	return RGBColor{r, g, b}
}

func (c RGBColor) R() uint8 { return c[0] }
func (c RGBColor) G() uint8 { return c[1] }
func (c RGBColor) B() uint8 { return c[2] }
