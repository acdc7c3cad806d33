package led

import (
	"unsafe"
)

// LEDs describes a strip of LEDs. It is a preallocated slice of RGBColor.
type LEDs []RGBColor

// New creates a new strip of LEDs. Colors are initialized to black (off).
func New(numLEDs int) LEDs {
	return make(LEDs, numLEDs)
}

// Solid creates a new strip of LEDs, all set to c.
func Solid(numLEDs int, c RGBColor) LEDs {
	l := make(LEDs, numLEDs)
	for i := range l {
		l[i] = c
	}
	return l
}

// AsPixels returns the LED strip as a slice of uint8 values. Each LED is
// represented by three values, one for each color channel.
func (l LEDs) AsPixels() []uint8 {
	if len(l) == 0 {
		return nil
	}
	return unsafe.Slice((*uint8)(unsafe.Pointer(&l[0])), 3*len(l))
}

// SetRange sets the color of the LEDs in the given range.
func (l LEDs) SetRange(start, end int, c RGBColor) {
	for i := start; i < end; i++ {
		l[i] = c
	}
}

// Draw draws the given LEDs into the strip at the given index. It stops when
// either l or other is exhausted and returns the number of LEDs written.
func (l LEDs) Draw(start int, other LEDs) int {
	for i := range other {
		if start+i >= len(l) {
			return i
		}
		l[start+i] = other[i]
	}
	return len(other)
}

// Resized returns l grown or shrunk to n elements. Newly grown slots take
// the value of element 0, or black if l was empty. This is the buffer-resize
// rule the priority multiplexer applies to every input's LED buffer on an
// LED-count change.
func (l LEDs) Resized(n int) LEDs {
	if len(l) == n {
		return l
	}
	fill := Black
	if len(l) > 0 {
		fill = l[0]
	}
	out := make(LEDs, n)
	copy(out, l)
	for i := len(l); i < n; i++ {
		out[i] = fill
	}
	return out
}
