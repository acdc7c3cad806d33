// Package image holds the opaque raster payload the priority multiplexer
// stores for image-driven inputs (grabbers, network sources). The muxer
// never decodes or renders pixels; it only needs the byte payload and its
// dimensions to hand off to a downstream consumer.
package image

// Image is an opaque raster frame. Width and Height describe the frame for
// consumers that need to know its shape without decoding Pixels.
type Image struct {
	Width  int
	Height int
	// Pixels is a packed RGB buffer, len(Pixels) == Width*Height*3.
	// It is never interpreted by the multiplexer itself.
	Pixels []uint8
}

// Empty reports whether the image carries no pixel data. set_inactive uses
// an empty image as its "no data" payload.
func (img Image) Empty() bool {
	return img.Width == 0 || img.Height == 0 || len(img.Pixels) == 0
}

// New allocates a black image of the given dimensions.
func New(width, height int) Image {
	return Image{
		Width:  width,
		Height: height,
		Pixels: make([]uint8, width*height*3),
	}
}
