package wschat_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	. "github.com/gbrlsnchs/wschat"
)

func TestEncodeDecode(t *testing.T) {
	testCases := []struct {
		opcode Opcode
		size   int
		masked bool
	}{
		{OpcodeText, 0, true},
		{OpcodeText, 5, true},
		{OpcodeText, 125, false},
		{OpcodeText, 126, true},
		{OpcodeText, 70000, true},
		{OpcodePing, 4, false},
		{OpcodePong, 125, true},
		{OpcodeClose, 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.opcode.String(), func(t *testing.T) {
			payload := []byte(strings.Repeat("x", tc.size))
			b, err := Encode(tc.opcode, payload, tc.masked)
			if want, got := (error)(nil), err; want != got {
				t.Fatalf("want %v, got %v", want, got)
			}
			if want, got := tc.masked, b[1]&0x80 != 0; want != got {
				t.Errorf("want masked %t, got %t", want, got)
			}

			// A masked frame goes from client to server.
			f, err := NewDecoder(bytes.NewReader(b), !tc.masked).Next()
			if want, got := (error)(nil), err; want != got {
				t.Fatalf("want %v, got %v", want, got)
			}
			if want, got := tc.opcode, f.Opcode; want != got {
				t.Errorf("want %s, got %s", want, got)
			}
			if want, got := string(payload), string(f.Payload); want != got {
				t.Errorf("want %d bytes, got %d bytes", len(want), len(got))
			}
		})
	}
}

func TestEncodeMasksPayload(t *testing.T) {
	payload := []byte("Hello")
	b, err := Encode(OpcodeText, payload, true)
	if want, got := (error)(nil), err; want != got {
		t.Fatalf("want %v, got %v", want, got)
	}
	if want, got := 2+4+len(payload), len(b); want != got {
		t.Fatalf("want %d, got %d", want, got)
	}
	if want, got := byte(0x81), b[0]; want != got {
		t.Errorf("want %#x, got %#x", want, got)
	}
	m := b[2:6]
	for i, c := range b[6:] {
		if want, got := payload[i], c^m[i%4]; want != got {
			t.Errorf("byte %d: want %q, got %q", i, want, got)
		}
	}
}

func TestEncodeLargeControlFrame(t *testing.T) {
	if _, err := Encode(OpcodePing, make([]byte, 126), true); err == nil {
		t.Error("want error, got nil")
	}
}

func TestDecodeMalformed(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"rsv bits", []byte{0xC1, 0x00}},
		{"reserved opcode", []byte{0x83, 0x00}},
		{"fragmented ping", []byte{0x09, 0x00}},
		{"non-final text", []byte{0x01, 0x01, 'a'}},
		{"continuation", []byte{0x80, 0x01, 'a'}},
		{"masked server frame", []byte{0x81, 0x81, 1, 2, 3, 4, 'a'}},
		{"large ping", append([]byte{0x89, 0x7E, 0x00, 0x7E}, make([]byte, 126)...)},
		{"1-byte close", []byte{0x88, 0x01, 0x03}},
		{"invalid close code", []byte{0x88, 0x02, 0x03, 0xE7}},
		{"invalid close reason", []byte{0x88, 0x03, 0x03, 0xE8, 0xFF}},
		{"invalid text", []byte{0x81, 0x01, 0xFF}},
		{"illegal length", []byte{0x81, 0x7F, 0x80, 0, 0, 0, 0, 0, 0, 0}},
		{"too large", []byte{0x82, 0x7F, 0, 0, 0, 0, 0x10, 0, 0, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDecoder(bytes.NewReader(tc.data), true).Next()
			var perr *ProtocolError
			if want, got := true, errors.As(err, &perr); want != got {
				t.Errorf("want protocol error, got %v", err)
			}
		})
	}
}

func TestDecodeUnmaskedClientFrame(t *testing.T) {
	_, err := NewDecoder(bytes.NewReader([]byte{0x81, 0x01, 'a'}), false).Next()
	var perr *ProtocolError
	if want, got := true, errors.As(err, &perr); want != got {
		t.Errorf("want protocol error, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	testCases := []struct {
		data []byte
		err  error
	}{
		{nil, io.EOF},
		{[]byte{0x81}, io.ErrUnexpectedEOF},
		{[]byte{0x81, 0x05, 'h', 'i'}, io.ErrUnexpectedEOF},
		{[]byte{0x81, 0x7E, 0x01}, io.ErrUnexpectedEOF},
	}
	for _, tc := range testCases {
		_, err := NewDecoder(bytes.NewReader(tc.data), true).Next()
		if want, got := tc.err, err; want != got {
			t.Errorf("%v: want %v, got %v", tc.data, want, got)
		}
	}
}

func TestDecodeSequence(t *testing.T) {
	frames := []Frame{
		{Opcode: OpcodePing, Payload: []byte("p")},
		{Opcode: OpcodeText, Payload: []byte("hi")},
		{Opcode: OpcodeClose, Payload: ClosePayload(CloseNormal, "bye")},
	}
	var buf bytes.Buffer
	for _, f := range frames {
		b, err := Encode(f.Opcode, f.Payload, false)
		if err != nil {
			t.Fatal(err)
		}
		buf.Write(b)
	}
	dec := NewDecoder(&buf, true)
	for _, want := range frames {
		got, err := dec.Next()
		if err != nil {
			t.Fatal(err)
		}
		if want.Opcode != got.Opcode || string(want.Payload) != string(got.Payload) {
			t.Errorf("want %s %q, got %s %q", want.Opcode, want.Payload, got.Opcode, got.Payload)
		}
	}
	if want, got := io.EOF, func() error { _, err := dec.Next(); return err }(); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestClosePayload(t *testing.T) {
	b := ClosePayload(CloseNormal, "bye")
	if want, got := "\x03\xe8bye", string(b); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
	cc, reason, err := ParseClosePayload(b)
	if want, got := (error)(nil), err; want != got {
		t.Fatalf("want %v, got %v", want, got)
	}
	if want, got := CloseNormal, cc; want != got {
		t.Errorf("want %d, got %d", want, got)
	}
	if want, got := "bye", reason; want != got {
		t.Errorf("want %s, got %s", want, got)
	}

	if cc, _, _ := ParseClosePayload(nil); cc != CloseNoStatus {
		t.Errorf("want %d, got %d", CloseNoStatus, cc)
	}
	if _, _, err := ParseClosePayload(ClosePayload(999, "")); err == nil {
		t.Error("want error, got nil")
	}
}
