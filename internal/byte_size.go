package internal

import "math"

// FrameSize returns the encoded size of a single frame carrying
// length payload bytes.
func FrameSize(length int, masked bool) (size int) {
	size++ // FIN, RSV and opcode

	switch {
	case length <= 125:
		size++ // indicator is the current length
	case length <= math.MaxUint16:
		size += 3 // indicator + 2 bytes for length value
	default:
		size += 9 // indicator + 8 bytes for length value
	}
	if masked {
		size += 4
	}
	return size + length
}
