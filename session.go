package wschat

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Session is the client side of a single WebSocket connection.
//
// The send path is shared by the input loop (text) and the receive loop
// (pong and close echo), so writes and state changes happen under mu.
type Session struct {
	conn         net.Conn
	rd           *bufio.Reader
	role         Role
	idle         time.Duration
	closeTimeout time.Duration
	writeTimeout time.Duration
	input        io.Reader
	cancel       *Canceler
	sink         Sink
	logger       *zerolog.Logger

	mu        sync.Mutex
	state     State
	closeSent bool
	closeOnce sync.Once

	// expired is set once pending writes must finish within closeTimeout.
	expired atomic.Bool
}

func newSession(conn net.Conn, cfg *Config) *Session {
	return &Session{
		conn:         conn,
		rd:           bufio.NewReaderSize(conn, defaultReadSize),
		role:         cfg.Role,
		idle:         cfg.IdleTimeout,
		closeTimeout: cfg.CloseTimeout,
		writeTimeout: cfg.WriteTimeout,
		input:        cfg.Input,
		sink:         cfg.Sink,
		logger:       cfg.Logger,
		state:        StateHandshaking,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CloseSent reports whether the client has sent its close frame.
func (s *Session) CloseSent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeSent
}

func (s *Session) setOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateHandshaking {
		s.state = StateOpen
	}
}

// writeLocked encodes and writes a frame under a write deadline. s.mu must be held.
func (s *Session) writeLocked(op Opcode, payload []byte) error {
	b, err := Encode(op, payload, true)
	if err != nil {
		return err
	}
	timeout := s.writeTimeout
	if op == OpcodeClose || s.expired.Load() {
		timeout = s.closeTimeout
	}
	if err = s.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("wschat: write %s frame: %w", op, err)
	}
	// expireWrites may have run since the check above.
	if timeout != s.closeTimeout && s.expired.Load() {
		s.conn.SetWriteDeadline(time.Now().Add(s.closeTimeout))
	}
	if _, err = s.conn.Write(b); err != nil {
		return fmt.Errorf("wschat: write %s frame: %w", op, err)
	}
	s.logger.Debug().Stringer("opcode", op).Int("len", len(payload)).Msg("frame sent")
	return nil
}

// send writes a data or pong frame, which is only legal while the session is open.
func (s *Session) send(op Opcode, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return ErrNotOpen
	}
	return s.writeLocked(op, payload)
}

// SendText sends a line of text to the server.
func (s *Session) SendText(text string) error {
	return s.send(OpcodeText, []byte(text))
}

// closeLocal starts the closing handshake from the client side.
// Only the first call while open sends a close frame, later calls are no-ops.
func (s *Session) closeLocal(payload []byte, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen || s.closeSent {
		return false, nil
	}
	s.state = StateClosing
	s.closeSent = true
	s.logger.Info().Str("reason", reason).Msg("closing session")
	return true, s.writeLocked(OpcodeClose, payload)
}

// handle applies a received frame to the state machine.
// It returns the text to deliver, if any, and whether the receive loop is done.
func (s *Session) handle(f Frame) (text []byte, done bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug().Stringer("opcode", f.Opcode).Int("len", len(f.Payload)).Stringer("state", s.state).Msg("frame received")

	switch s.state {
	case StateOpen:
		switch f.Opcode {
		case OpcodePing:
			return nil, false, s.writeLocked(OpcodePong, f.Payload)
		case OpcodePong: // keepalive acknowledged
			return nil, false, nil
		case OpcodeText:
			return f.Payload, false, nil
		case OpcodeClose:
			cc, reason, _ := ParseClosePayload(f.Payload)
			s.logger.Info().Uint16("code", uint16(cc)).Str("reason", reason).Msg("server closed session")
			s.state = StateClosing
			s.closeSent = true
			return nil, true, s.writeLocked(OpcodeClose, f.Payload)
		}
		return nil, false, protocolErr(fmt.Errorf("%w %s", errUnexpectedOpcode, f.Opcode))
	case StateClosing:
		// Our close frame is out: wait for the reply and drop everything else.
		if f.Opcode == OpcodeClose {
			return nil, true, nil
		}
		return nil, false, nil
	}
	return nil, true, nil
}

// teardown releases the socket. It runs at most once.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		// Closing the socket first unblocks a writer stuck while holding mu.
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("closing socket")
		}
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		s.logger.Info().Msg("session closed")
	})
}
