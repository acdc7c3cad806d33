package luxmux

import (
	"reflect"
	"testing"

	"libdb.so/luxmux/internal/image"
	"libdb.so/luxmux/internal/led"
	"libdb.so/luxmux/internal/muxer"
)

func TestFramePixelsPrefersLEDColors(t *testing.T) {
	in := muxer.InputInfo{LEDColors: led.Solid(2, led.RGB(1, 2, 3))}
	got := framePixels(in, 2)
	want := []uint8{1, 2, 3, 1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFramePixelsFallsBackToImage(t *testing.T) {
	img := image.Image{
		Width:  2,
		Height: 2,
		Pixels: []uint8{
			255, 0, 0, 255, 0, 0,
			0, 0, 255, 0, 0, 255,
		},
	}
	in := muxer.InputInfo{Image: &img}

	got := framePixels(in, 4)
	want := []uint8{
		255, 0, 0,
		255, 0, 0,
		0, 0, 255,
		0, 0, 255,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFramePixelsBlankWhenNeitherSet(t *testing.T) {
	got := framePixels(muxer.InputInfo{}, 3)
	want := make([]uint8, 9)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRenderImageEmpty(t *testing.T) {
	strip := renderImage(image.Image{}, 3)
	for i, c := range strip {
		if c != led.Black {
			t.Fatalf("led %d: got %v, want black", i, c)
		}
	}
}
