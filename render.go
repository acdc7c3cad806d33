package luxmux

import (
	"libdb.so/luxmux/internal/image"
	"libdb.so/luxmux/internal/led"
	"libdb.so/luxmux/internal/muxer"
)

// framePixels is the color-transform step between the muxer's visible
// record and the wire: the muxer never decodes or renders image payloads
// (it only stores them), so an image-driven input's LEDColors is left
// empty and this is where that gap gets filled in for the serial output
// path specifically.
func framePixels(in muxer.InputInfo, ledCount int) []uint8 {
	if len(in.LEDColors) > 0 {
		return in.LEDColors.AsPixels()
	}
	if in.Image != nil && !in.Image.Empty() {
		return renderImage(*in.Image, ledCount).AsPixels()
	}
	return led.New(ledCount).AsPixels()
}

// renderImage reduces img to a ledCount-long strip using a two-zone
// average: the top half of pixel rows fills the first half of the strip,
// the bottom half fills the rest. It stands in for the real edge-detection
// LED mapping a production ambient-lighting pipeline would use.
func renderImage(img image.Image, ledCount int) led.LEDs {
	strip := led.New(ledCount)
	if img.Empty() || ledCount == 0 {
		return strip
	}

	half := ledCount / 2
	strip.SetRange(0, half, averageRegion(img, 0, img.Height/2))
	strip.SetRange(half, ledCount, averageRegion(img, img.Height/2, img.Height))
	return strip
}

// averageRegion returns the mean RGB color of img's rows in [y0, y1).
func averageRegion(img image.Image, y0, y1 int) led.RGBColor {
	if y1 <= y0 {
		y1 = y0 + 1
	}
	stride := img.Width * 3
	var rSum, gSum, bSum, n int64
	for y := y0; y < y1 && y < img.Height; y++ {
		rowStart := y * stride
		for x := 0; x < img.Width; x++ {
			i := rowStart + x*3
			if i+2 >= len(img.Pixels) {
				break
			}
			rSum += int64(img.Pixels[i])
			gSum += int64(img.Pixels[i+1])
			bSum += int64(img.Pixels[i+2])
			n++
		}
	}
	if n == 0 {
		return led.Black
	}
	return led.RGB(uint8(rSum/n), uint8(gSum/n), uint8(bSum/n))
}
