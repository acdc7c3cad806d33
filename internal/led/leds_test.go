package led_test

import (
	"reflect"
	"testing"

	"libdb.so/luxmux/internal/led"
)

func TestSetRange(t *testing.T) {
	strip := led.New(6)
	strip.SetRange(1, 4, led.RGB(10, 20, 30))

	want := led.LEDs{
		led.Black,
		led.RGB(10, 20, 30),
		led.RGB(10, 20, 30),
		led.RGB(10, 20, 30),
		led.Black,
		led.Black,
	}
	if !reflect.DeepEqual(strip, want) {
		t.Fatalf("got %v, want %v", strip, want)
	}
}

func TestDraw(t *testing.T) {
	strip := led.New(4)
	n := strip.Draw(1, led.Solid(2, led.RGB(1, 2, 3)))
	if n != 2 {
		t.Fatalf("got %d LEDs written, want 2", n)
	}

	want := led.LEDs{led.Black, led.RGB(1, 2, 3), led.RGB(1, 2, 3), led.Black}
	if !reflect.DeepEqual(strip, want) {
		t.Fatalf("got %v, want %v", strip, want)
	}
}

func TestDrawTruncatesAtStripEnd(t *testing.T) {
	strip := led.New(3)
	n := strip.Draw(2, led.Solid(3, led.RGB(9, 9, 9)))
	if n != 1 {
		t.Fatalf("got %d LEDs written, want 1", n)
	}
	if strip[2] != led.RGB(9, 9, 9) {
		t.Fatalf("got %v at index 2, want (9,9,9)", strip[2])
	}
}

func TestAsPixels(t *testing.T) {
	strip := led.LEDs{led.RGB(1, 2, 3), led.RGB(4, 5, 6)}
	want := []uint8{1, 2, 3, 4, 5, 6}
	if !reflect.DeepEqual(strip.AsPixels(), want) {
		t.Fatalf("got %v, want %v", strip.AsPixels(), want)
	}
}

func TestResized(t *testing.T) {
	strip := led.Solid(2, led.RGB(7, 8, 9))

	grown := strip.Resized(4)
	want := led.LEDs{led.RGB(7, 8, 9), led.RGB(7, 8, 9), led.RGB(7, 8, 9), led.RGB(7, 8, 9)}
	if !reflect.DeepEqual(grown, want) {
		t.Fatalf("grow: got %v, want %v", grown, want)
	}

	shrunk := grown.Resized(1)
	if !reflect.DeepEqual(shrunk, led.LEDs{led.RGB(7, 8, 9)}) {
		t.Fatalf("shrink: got %v", shrunk)
	}
}
