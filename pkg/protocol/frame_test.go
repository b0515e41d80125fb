package protocol

import (
	"bufio"
	"bytes"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		[]byte("hello"),
		bytes.Repeat([]byte{0xAA}, 4096),
		[]byte("contains:colons:and\x00nulls"),
	}
	for _, payload := range cases {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, payload); err != nil {
			t.Fatalf("WriteFrame(%v): %v", payload, err)
		}
		got, err := ReadFrame(bufio.NewReader(&buf))
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if !bytes.Equal(got, payload) && !(len(got) == 0 && len(payload) == 0) {
			t.Errorf("round trip: got %q, want %q", got, payload)
		}
	}
}

func TestReadFrameMalformedHeader(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte("!5:hello")))
	if _, err := ReadFrame(r); err == nil {
		t.Fatal("expected error for malformed header")
	}
}

func TestReadFrameEmptyPayload(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte("@0:")))
	payload, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if len(payload) != 0 {
		t.Fatalf("got %q, want empty payload", payload)
	}
}

func TestHeaderBytesAreASCII(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("x")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	header := buf.Bytes()[:3] // "@1:"
	for _, b := range header {
		if b != 0x40 && !(b >= 0x30 && b <= 0x3A) {
			t.Errorf("header byte 0x%02x outside allowed set", b)
		}
	}
}
