package wschat

import (
	"errors"
	"fmt"
)

var (
	ErrBadStatus   = errors.New("wschat: handshake response status is not 101")
	ErrBadAccept   = errors.New("wschat: Sec-WebSocket-Accept mismatch")
	ErrNotOpen     = errors.New("wschat: session is not open")
	ErrInvalidRole = errors.New("wschat: role must be one of producer, consumer or both")
	ErrLineTooLong = errors.New("wschat: input line is too long for a frame")
)

var (
	errFragmentedControlFrame = errors.New("wschat: fragmented control frame")
	errFragmentedMessage      = errors.New("wschat: fragmented messages are not supported")
	errInvalidOpcode          = errors.New("wschat: invalid opcode")
	errUnexpectedOpcode       = errors.New("wschat: unexpected opcode")
	errMaskedServerFrame      = errors.New("wschat: masked frame sent from server")
	errUnmaskedClientFrame    = errors.New("wschat: unmasked frame sent from client")
	errLargeControlFrame      = errors.New("wschat: control frame with length greater than 125")
	errUnnegotiatedRSV        = errors.New("wschat: unnegotiated RSV bits")
	errInvalidClosePayload    = errors.New("wschat: invalid application data for opcode close")
	errInvalidCloseCode       = errors.New("wschat: invalid close code")
	errInvalidUTF8            = errors.New("wschat: payload contains invalid UTF-8 text")
	errIllegalLength          = errors.New("wschat: illegal length indicator")
	errPayloadTooLarge        = errors.New("wschat: frame payload too large")
)

// HandshakeError reports a failed opening handshake.
// Err is ErrBadStatus, ErrBadAccept or the underlying I/O error.
type HandshakeError struct {
	Status int
	Body   []byte
	Err    error
}

func (e *HandshakeError) Error() string {
	if errors.Is(e.Err, ErrBadStatus) {
		return fmt.Sprintf("%v (got %d)", e.Err, e.Status)
	}
	return "wschat: handshake: " + e.Err.Error()
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// ProtocolError reports a frame that violates the WebSocket protocol
// or that the session cannot handle in its current state.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string { return "wschat: protocol error: " + e.Err.Error() }
func (e *ProtocolError) Unwrap() error { return e.Err }

// EncodingError reports a console line that cannot be sent as a text frame.
type EncodingError struct {
	Line string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("wschat: input %q is not valid UTF-8", e.Line)
}

func protocolErr(err error) error {
	return &ProtocolError{Err: err}
}
