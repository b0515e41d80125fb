package textcodec

import "testing"

func TestEncodeDecodeRoundTripUTF8(t *testing.T) {
	text := "héllo wörld"
	encoded, err := Encode(text, "utf-8")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded, "utf-8")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != text {
		t.Errorf("round trip = %q, want %q", decoded, text)
	}
}

func TestEncodeDecodeRoundTripDefaultEncoding(t *testing.T) {
	text := "plain ascii"
	encoded, err := Encode(text, DefaultEncoding)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded, DefaultEncoding)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != text {
		t.Errorf("round trip = %q, want %q", decoded, text)
	}
}

func TestCanonicalizeLabelAliases(t *testing.T) {
	for _, label := range []string{"iso8859-1", "latin1"} {
		if _, err := Encode("x", label); err != nil {
			t.Errorf("Encode with label %q: %v", label, err)
		}
	}
}

func TestBinaryModeSkipsTranscoding(t *testing.T) {
	raw := []byte{0x00, 0xff, 0x80, 'a'}
	encoded, err := Encode(string(raw), Binary)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(encoded) != string(raw) {
		t.Errorf("Encode(Binary) altered bytes: got %v, want %v", encoded, raw)
	}
	decoded, err := Decode(encoded, Binary)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != string(raw) {
		t.Errorf("Decode(Binary) = %q, want %q", decoded, string(raw))
	}
}

func TestUnknownEncodingFails(t *testing.T) {
	if _, err := Encode("x", "no-such-encoding"); err == nil {
		t.Error("Encode with unknown encoding: expected error, got nil")
	}
	if _, err := Decode([]byte("x"), "no-such-encoding"); err == nil {
		t.Error("Decode with unknown encoding: expected error, got nil")
	}
}
