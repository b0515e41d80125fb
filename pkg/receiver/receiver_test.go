package receiver

import (
	"bytes"
	"errors"
	"testing"

	"github.com/emmt/xen/pkg/protocol"
)

func frame(payload []byte) []byte {
	return append([]byte("@"+itoa(len(payload))+":"), payload...)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestFeedWholeStream(t *testing.T) {
	stream := append(frame([]byte("hello")), frame([]byte{})...)
	stream = append(stream, frame([]byte("world"))...)

	r := New(0)
	got, err := r.Feed(stream)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	want := [][]byte{[]byte("hello"), {}, []byte("world")}
	if len(got) != len(want) {
		t.Fatalf("got %d payloads, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("payload %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

// TestChunkingInvariance checks the chunking-invariance property: for any
// partition of a frame stream into chunks, feeding the chunks in order
// yields the same payload sequence as feeding the stream whole.
func TestChunkingInvariance(t *testing.T) {
	stream := append(frame([]byte("CMD:1:hi")), frame([]byte("EVT:2:x"))...)
	stream = append(stream, frame([]byte(""))...)

	whole := New(0)
	wantPayloads, err := whole.Feed(stream)
	if err != nil {
		t.Fatalf("whole feed: %v", err)
	}

	partitions := [][]int{
		{len(stream)},
		splitEvery(stream, 1),
		splitEvery(stream, 3),
		splitEvery(stream, 7),
		{11, 9, len(stream) - 20},
	}

	for pi, sizes := range partitions {
		r := New(0)
		var got [][]byte
		pos := 0
		for _, size := range sizes {
			if pos >= len(stream) {
				break
			}
			end := pos + size
			if end > len(stream) {
				end = len(stream)
			}
			payloads, err := r.Feed(stream[pos:end])
			if err != nil {
				t.Fatalf("partition %d: Feed: %v", pi, err)
			}
			got = append(got, payloads...)
			pos = end
		}
		if pos < len(stream) {
			payloads, err := r.Feed(stream[pos:])
			if err != nil {
				t.Fatalf("partition %d: trailing Feed: %v", pi, err)
			}
			got = append(got, payloads...)
		}
		if len(got) != len(wantPayloads) {
			t.Fatalf("partition %d: got %d payloads, want %d", pi, len(got), len(wantPayloads))
		}
		for i := range wantPayloads {
			if !bytes.Equal(got[i], wantPayloads[i]) {
				t.Errorf("partition %d payload %d: got %q, want %q", pi, i, got[i], wantPayloads[i])
			}
		}
	}
}

func splitEvery(stream []byte, n int) []int {
	var sizes []int
	for i := 0; i < len(stream); i += n {
		sizes = append(sizes, n)
	}
	return sizes
}

func TestFeedByteAtATime(t *testing.T) {
	stream := frame([]byte("a:b:c"))
	r := New(0)
	var got [][]byte
	for _, b := range stream {
		payloads, err := r.Feed([]byte{b})
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		got = append(got, payloads...)
	}
	if len(got) != 1 || string(got[0]) != "a:b:c" {
		t.Fatalf("got %v, want one payload %q", got, "a:b:c")
	}
}

func TestMalformedHeader(t *testing.T) {
	r := New(0)
	_, err := r.Feed([]byte("!5:hello"))
	if !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got err %v, want ErrProtocol", err)
	}
}

func TestEmptyHeaderDigits(t *testing.T) {
	r := New(0)
	_, err := r.Feed([]byte("@:"))
	if !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got err %v, want ErrProtocol", err)
	}
}

func TestOversizedFrameRejected(t *testing.T) {
	r := New(10)
	_, err := r.Feed([]byte("@11:"))
	if !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got err %v, want ErrProtocol", err)
	}
}

func TestPartialHeaderKeepsAwaitingHeader(t *testing.T) {
	r := New(0)
	got, err := r.Feed([]byte("@0"))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d payloads before header closed, want 0", len(got))
	}
	got, err = r.Feed([]byte(":"))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("got %v, want one zero-length payload", got)
	}
}
