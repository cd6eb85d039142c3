package wschat

import (
	"bufio"
	"encoding/binary"
	"io"
	"unicode/utf8"
)

// Decoder reads frames one at a time from a byte stream.
type Decoder struct {
	rd     *bufio.Reader
	hdr    [8]byte
	client bool // is the decoder reading on behalf of a client?
}

// NewDecoder returns a decoder reading from r.
//
// A client decoder rejects masked frames, while a server decoder
// requires frames to be masked and unmasks their payload.
func NewDecoder(r io.Reader, client bool) *Decoder {
	rd, ok := r.(*bufio.Reader)
	if !ok {
		rd = bufio.NewReader(r)
	}
	return &Decoder{rd: rd, client: client}
}

// Next blocks until a complete frame is read.
//
// Frames violating the protocol are reported as *ProtocolError.
// Any other error comes from the underlying reader.
func (d *Decoder) Next() (Frame, error) {
	b := d.hdr[:2]
	if _, err := io.ReadFull(d.rd, b); err != nil {
		return Frame{}, err
	}
	fin, rsv, op := b[0]&leftBit != 0, b[0]&rsvBits, Opcode(b[0]&opcodeBits)
	masked, length := b[1]&leftBit != 0, uint64(b[1]&lengthBits)

	// Validate the first two bytes.
	switch {
	case rsv != 0:
		return Frame{}, protocolErr(errUnnegotiatedRSV)
	case !op.isValid():
		return Frame{}, protocolErr(errInvalidOpcode)
	case op.isControl() && !fin:
		return Frame{}, protocolErr(errFragmentedControlFrame)
	case !fin || op == opcodeContinuation:
		return Frame{}, protocolErr(errFragmentedMessage)
	case op.isControl() && length > maxControlPayload:
		return Frame{}, protocolErr(errLargeControlFrame)
	case d.client && masked:
		return Frame{}, protocolErr(errMaskedServerFrame)
	case !d.client && !masked:
		return Frame{}, protocolErr(errUnmaskedClientFrame)
	}

	// Read the payload length according to the length indicator:
	// 0 until 125 is the literal length.
	// 126 means the length is indicated by an unsigned 16-bit integer.
	// 127 means the length is indicated by an unsigned 64-bit integer.
	switch length {
	case 126:
		b = d.hdr[:2]
		if _, err := io.ReadFull(d.rd, b); err != nil {
			return Frame{}, unexpected(err)
		}
		length = uint64(binary.BigEndian.Uint16(b))
	case 127:
		b = d.hdr[:8]
		if _, err := io.ReadFull(d.rd, b); err != nil {
			return Frame{}, unexpected(err)
		}
		length = binary.BigEndian.Uint64(b)
		if length>>63 != 0 {
			return Frame{}, protocolErr(errIllegalLength)
		}
	}
	if length > maxPayloadSize {
		return Frame{}, protocolErr(errPayloadTooLarge)
	}

	var m mask
	if masked {
		if _, err := io.ReadFull(d.rd, m[:]); err != nil {
			return Frame{}, unexpected(err)
		}
	}
	f := Frame{Opcode: op}
	if length > 0 {
		f.Payload = make([]byte, length)
		if _, err := io.ReadFull(d.rd, f.Payload); err != nil {
			return Frame{}, unexpected(err)
		}
		if masked {
			m.transform(f.Payload)
		}
	}

	switch op {
	case OpcodeText:
		if !utf8.Valid(f.Payload) {
			return Frame{}, protocolErr(errInvalidUTF8)
		}
	case OpcodeClose:
		if _, _, err := ParseClosePayload(f.Payload); err != nil {
			return Frame{}, protocolErr(err)
		}
	}
	return f, nil
}

// unexpected reports a stream ending in the middle of a frame.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
