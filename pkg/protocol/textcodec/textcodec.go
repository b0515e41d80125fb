// Package textcodec transcodes between a symbolic encoding label (default
// "iso8859-1"; the literal "binary" means no transcoding) and the bytes a
// Channel writes to its transport.
package textcodec

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/emmt/xen/pkg/protocol"
)

func wrapEncoding(cause error) error {
	return protocol.NewEncodingError(cause.Error())
}

// DefaultEncoding is the encoding label a Channel assumes when none is given.
const DefaultEncoding = "iso8859-1"

// Binary is the literal label meaning "payload bytes are already the text;
// do not transcode."
const Binary = "binary"

// Encode transcodes text into encoding's byte representation. For
// encoding == Binary, text's bytes are returned unchanged (the caller is
// expected to have placed raw bytes in a string in that mode). Fails with a
// wrapped EncodingError on an unmappable character or an unrecognized
// encoding label.
func Encode(text string, encoding_ string) ([]byte, error) {
	if encoding_ == Binary {
		return []byte(text), nil
	}
	enc, err := resolve(encoding_)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().String(text)
	if err != nil {
		return nil, fmt.Errorf("xen: encode text as %s: %w", encoding_, wrapEncoding(err))
	}
	return []byte(out), nil
}

// Decode is Encode's inverse. For encoding == Binary, payload is returned
// unchanged as a string.
func Decode(payload []byte, encoding_ string) (string, error) {
	if encoding_ == Binary {
		return string(payload), nil
	}
	enc, err := resolve(encoding_)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(payload)
	if err != nil {
		return "", fmt.Errorf("xen: decode text as %s: %w", encoding_, wrapEncoding(err))
	}
	return string(out), nil
}

func resolve(label string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(canonicalize(label))
	if err != nil {
		return nil, fmt.Errorf("xen: unknown encoding %q: %w", label, wrapEncoding(err))
	}
	return enc, nil
}

// canonicalize maps the spec's dash-free label spelling ("iso8859-1") onto
// the spelling htmlindex expects ("iso-8859-1"), leaving already-canonical
// labels such as "utf-8" untouched.
func canonicalize(label string) string {
	switch label {
	case "iso8859-1", "latin1":
		return "iso-8859-1"
	default:
		return label
	}
}
