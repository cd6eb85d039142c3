package wschat

import (
	"errors"
	"fmt"
	"io"
)

// receiveLoop reads frames until a close frame is processed, the socket
// fails, or the coordinator's read deadline wakes it after cancellation.
// It runs in every role: producers need it to answer pings and to notice
// a server-initiated close.
func (s *Session) receiveLoop() {
	defer s.cancel.Ack()
	defer s.cancel.Fire()

	dec := NewDecoder(s.rd, true)
	for {
		f, err := dec.Next()
		if err != nil {
			s.receiveFailed(err)
			return
		}
		text, done, err := s.handle(f)
		if err != nil {
			s.receiveFailed(err)
			return
		}
		if text != nil && s.role.Consumes() {
			s.sink.Message(string(text))
		}
		if done {
			return
		}
	}
}

func (s *Session) receiveFailed(err error) {
	var perr *ProtocolError
	if errors.As(err, &perr) {
		s.logger.Warn().Err(err).Msg("malformed frame")
		s.sink.Error(err)
		s.stop(ClosePayload(CloseProtocolError, ""), "protocol error")
		return
	}

	// Once the client is closing, the socket going away is how the session ends.
	if s.cancel.Fired() || s.CloseSent() {
		s.logger.Debug().Err(err).Msg("receive loop stopped")
		return
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = fmt.Errorf("wschat: connection closed by server: %w", err)
	}
	s.logger.Warn().Err(err).Msg("connection lost")
	s.sink.Error(err)
	// An I/O failure counts as an implicit close: send ours if the socket still takes it.
	s.stop(nil, "connection lost")
}
