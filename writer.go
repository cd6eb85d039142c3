package wschat

import (
	"crypto/rand"
	"encoding/binary"
	"math"

	"github.com/gbrlsnchs/wschat/internal"
)

// Encode serializes a single final frame.
//
// Frames sent by a client must be masked. The masking key is read from crypto/rand.
func Encode(op Opcode, payload []byte, masked bool) ([]byte, error) {
	if !op.isValid() || op == opcodeContinuation {
		return nil, errInvalidOpcode
	}
	size := len(payload)
	if op.isControl() && size > maxControlPayload {
		return nil, errLargeControlFrame
	}

	b := make([]byte, 0, internal.FrameSize(size, masked))
	b = append(b, byte(leftBit|op))

	var maskBit byte
	if masked {
		maskBit = leftBit
	}
	switch {
	case size <= 125:
		b = append(b, maskBit|byte(size))
	case size <= math.MaxUint16:
		b = append(b, maskBit|126)
		b = binary.BigEndian.AppendUint16(b, uint16(size))
	default:
		b = append(b, maskBit|127)
		b = binary.BigEndian.AppendUint64(b, uint64(size))
	}

	if !masked {
		return append(b, payload...), nil
	}
	var m mask
	if _, err := rand.Read(m[:]); err != nil {
		return nil, err
	}
	b = append(b, m[:]...)
	start := len(b)
	b = append(b, payload...)
	m.transform(b[start:])
	return b, nil
}
