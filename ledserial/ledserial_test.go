package ledserial_test

import (
	"bytes"
	"testing"

	"libdb.so/luxmux/ledserial"
)

func TestIncomingPacketRoundTrip(t *testing.T) {
	cases := []ledserial.IncomingPacket{
		ledserial.InitializePacket{NumLEDs: 30},
		ledserial.ClearPacket{},
		ledserial.SetPacket{Pix: bytes.Repeat([]byte{0x10, 0x20, 0x30}, 30)},
	}

	for _, want := range cases {
		var buf bytes.Buffer
		if err := ledserial.WriteIncomingPacket(&buf, want); err != nil {
			t.Fatalf("write %v: %v", want.Type(), err)
		}

		got, err := ledserial.ReadIncomingPacket(&buf, ledserial.ReadContext{NumLEDs: 30})
		if err != nil {
			t.Fatalf("read %v: %v", want.Type(), err)
		}
		if got.Type() != want.Type() {
			t.Fatalf("got type %v, want %v", got.Type(), want.Type())
		}
	}
}

func TestIncomingPacketChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := ledserial.WriteIncomingPacket(&buf, ledserial.InitializePacket{NumLEDs: 30}); err != nil {
		t.Fatalf("write: %v", err)
	}

	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF

	if _, err := ledserial.ReadIncomingPacket(bytes.NewReader(corrupted), ledserial.ReadContext{}); err == nil {
		t.Fatal("expected checksum mismatch error, got nil")
	}
}

func TestOutgoingPacketRoundTrip(t *testing.T) {
	cases := []ledserial.OutgoingPacket{
		ledserial.ErrorPacket{Message: "brownout detected"},
		ledserial.PanicPacket{},
		ledserial.LogPacket{Message: "boot complete"},
	}

	for _, want := range cases {
		var buf bytes.Buffer
		if err := ledserial.WriteOutgoingPacket(&buf, want); err != nil {
			t.Fatalf("write %v: %v", want.Type(), err)
		}

		got, err := ledserial.ReadOutgoingPacket(&buf, ledserial.ReadContext{})
		if err != nil {
			t.Fatalf("read %v: %v", want.Type(), err)
		}
		if got.Type() != want.Type() {
			t.Fatalf("got type %v, want %v", got.Type(), want.Type())
		}
	}
}
