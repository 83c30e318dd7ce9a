package persist

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// Encoding selects how a topic's message sequence is stored in its record.
type Encoding string

const (
	// EncodingNewline joins messages with '\n'. A message that contains '\n'
	// comes back as several messages after a reload, and empty messages are
	// dropped. Messages must be UTF-8 without NUL bytes. Kept for
	// compatibility with stores written that way.
	EncodingNewline Encoding = "newline"
	// EncodingFramed writes a marker byte followed by the protobuf wire form of
	// `repeated bytes message = 1`. Every payload round-trips unchanged.
	EncodingFramed Encoding = "framed"
)

// ParseEncoding validates an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingNewline, EncodingFramed:
		return Encoding(s), nil
	case "":
		return EncodingFramed, nil
	default:
		return "", fmt.Errorf("persist: unknown queue encoding %q", s)
	}
}

const (
	newlineSep   = '\n'
	framedMarker = 0x00
	messageField = protowire.Number(1)
)

var errDecode = errors.New("persist: undecodable queue record")

// ErrUnencodable marks a message the configured queue encoding cannot store
// and read back.
var ErrUnencodable = errors.New("message cannot be stored with this queue encoding")

// checkMessage reports whether msg survives a round trip through enc. Newline
// records are read back as UTF-8 text, and a NUL at the start of any line
// would make the record look framed once the lines before it are consumed.
func checkMessage(enc Encoding, msg []byte) error {
	if enc != EncodingNewline {
		return nil
	}
	if !utf8.Valid(msg) {
		return fmt.Errorf("%w: %s requires UTF-8", ErrUnencodable, enc)
	}
	if bytes.IndexByte(msg, framedMarker) >= 0 {
		return fmt.Errorf("%w: %s forbids NUL bytes", ErrUnencodable, enc)
	}
	return nil
}

// encodeMessages serializes msgs with the given encoding.
func encodeMessages(enc Encoding, msgs [][]byte) []byte {
	if enc == EncodingNewline {
		return bytes.Join(msgs, []byte{newlineSep})
	}
	size := 1
	for _, m := range msgs {
		size += protowire.SizeTag(messageField) + protowire.SizeBytes(len(m))
	}
	out := make([]byte, 0, size)
	out = append(out, framedMarker)
	for _, m := range msgs {
		out = protowire.AppendTag(out, messageField, protowire.BytesType)
		out = protowire.AppendBytes(out, m)
	}
	return out
}

// decodeMessages detects the record's encoding from its first byte. The
// returned slices never alias value.
func decodeMessages(value []byte) ([][]byte, error) {
	if len(value) > 0 && value[0] == framedMarker {
		return decodeFramed(value[1:])
	}
	return decodeNewline(value)
}

func decodeFramed(b []byte) ([][]byte, error) {
	var msgs [][]byte
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", errDecode, protowire.ParseError(n))
		}
		b = b[n:]
		if num != messageField || typ != protowire.BytesType {
			return nil, fmt.Errorf("%w: unexpected field %d type %d", errDecode, num, typ)
		}
		m, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", errDecode, protowire.ParseError(n))
		}
		msgs = append(msgs, append([]byte{}, m...))
		b = b[n:]
	}
	return msgs, nil
}

func decodeNewline(b []byte) ([][]byte, error) {
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("%w: invalid UTF-8", errDecode)
	}
	var msgs [][]byte
	for _, part := range bytes.Split(b, []byte{newlineSep}) {
		if len(part) == 0 {
			continue
		}
		msgs = append(msgs, append([]byte(nil), part...))
	}
	return msgs, nil
}
