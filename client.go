package wschat

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Run dials the server and serves the session until it is closed.
//
// Cancelling ctx closes the session with a normal closing handshake.
// Only dial and handshake failures are returned: anything going wrong
// afterwards is reported to the sink and ends the session.
func Run(ctx context.Context, cfg Config) error {
	s, err := Dial(ctx, cfg)
	if err != nil {
		return err
	}
	s.Serve(ctx)
	return nil
}

// Dial connects to the server and performs the opening handshake.
// On failure the socket is closed and no loop is started.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	c := cfg.withDefaults()
	if _, err := ParseRole(string(c.Role)); err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	d := &net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("wschat: dial %s: %w", addr, err)
	}
	logger := c.Logger.With().Str("addr", addr).Str("role", string(c.Role)).Logger()
	c.Logger = &logger

	s := newSession(conn, c)
	// Interrupting a handshake just makes the pending read or write fail.
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	err = s.negotiate(c.Host, c.Port, c.Nonce)
	if !stop() && err == nil {
		err = &HandshakeError{Err: ctx.Err()}
	}
	if err != nil {
		conn.Close()
		logger.Error().Err(err).Msg("handshake failed")
		return nil, err
	}
	logger.Info().Msg("session open")
	return s, nil
}

// Serve starts the loops of the session role, waits for the session to end
// and releases the socket. It must be called once.
func (s *Session) Serve(ctx context.Context) {
	loops := 1
	if s.role.Produces() {
		loops++
	}
	s.cancel = NewCanceler(loops)

	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		s.receiveLoop()
	}()

	inputDone := make(chan struct{})
	if s.role.Produces() {
		lines := readLines(s.input, s.cancel.Done())
		go func() {
			defer close(inputDone)
			s.inputLoop(lines)
		}()
	} else {
		close(inputDone)
	}

	select {
	case <-recvDone:
	case <-ctx.Done():
		// A write stuck on a peer that stopped reading holds mu: cut it short
		// so the close frame can go out.
		s.expireWrites()
		s.stop(nil, "interrupted")
		s.awaitClose(recvDone)
	case <-s.cancel.Done():
		s.awaitClose(recvDone)
	}

	s.cancel.Fire()
	// The input loop selects on the canceler, so this join does not wait on the console.
	<-inputDone
	s.teardown()
}

// expireWrites bounds any pending write by closeTimeout without taking mu.
func (s *Session) expireWrites() {
	s.expired.Store(true)
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.closeTimeout)); err != nil {
		s.logger.Debug().Err(err).Msg("setting write deadline")
	}
}

// awaitClose leaves the server closeTimeout to answer the client's close
// frame, then wakes the receive loop through the read deadline.
func (s *Session) awaitClose(recvDone <-chan struct{}) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.closeTimeout)); err != nil {
		s.logger.Debug().Err(err).Msg("setting read deadline")
	}
	<-recvDone
}
