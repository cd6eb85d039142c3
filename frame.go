package wschat

const (
	leftBit    = 0x80
	rsvBits    = 0x70
	opcodeBits = 0xF
	lengthBits = 0x7F

	maxControlPayload = 125
	maxPayloadSize    = 16 << 20
)

// Frame is a single, unfragmented WebSocket frame.
//
// For close frames, Payload holds the raw close body,
// that is, an optional 2-byte close code followed by a UTF-8 reason.
type Frame struct {
	Opcode  Opcode
	Payload []byte
}
