package wschat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// QuitCommand typed on its own line closes the session.
const QuitCommand = "/quit"

type line struct {
	text string
	// bad is set for a line that cannot be sent, reading goes on.
	bad error
	// err ends the input.
	err error
}

// readLines feeds lines from r into a channel that is closed at EOF.
//
// The goroutine may stay parked in r.Read after the session ends, since a
// console read cannot be interrupted. It never touches the session.
func readLines(r io.Reader, done <-chan struct{}) <-chan line {
	lines := make(chan line)
	go func() {
		defer close(lines)
		rd := bufio.NewReaderSize(r, defaultReadSize)
		for {
			l, ok := readLine(rd)
			if !ok {
				return
			}
			select {
			case lines <- l:
			case <-done:
				return
			}
			if l.err != nil {
				return
			}
		}
	}()
	return lines
}

// readLine reads up to the next newline, dropping it and a preceding
// carriage return. Lines longer than a frame payload are skipped.
// It returns false at a clean EOF.
func readLine(rd *bufio.Reader) (line, bool) {
	var buf []byte
	size := 0
	for {
		chunk, err := rd.ReadSlice('\n')
		size += len(chunk)
		if size <= maxPayloadSize+2 {
			buf = append(buf, chunk...)
		}
		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF && size == 0:
			return line{}, false
		case err != nil && err != io.EOF:
			return line{err: err}, true
		}
		break
	}

	text := strings.TrimSuffix(strings.TrimSuffix(string(buf), "\n"), "\r")
	if size > maxPayloadSize+2 || len(text) > maxPayloadSize {
		return line{bad: fmt.Errorf("%w (%d bytes)", ErrLineTooLong, size)}, true
	}
	return line{text: text}, true
}

// inputLoop sends console lines as text frames until the session leaves
// the open state, the canceler fires, or the producer stays idle for too long.
func (s *Session) inputLoop(lines <-chan line) {
	defer s.cancel.Ack()

	// A nil channel blocks forever, which disables the idle timeout.
	var idle <-chan time.Time
	var timer *time.Timer
	if s.idle > 0 {
		timer = time.NewTimer(s.idle)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		select {
		case <-s.cancel.Done():
			return

		case <-idle:
			s.logger.Info().Dur("timeout", s.idle).Msg("producer idle")
			s.stop(nil, "idle timeout")
			return

		case l, ok := <-lines:
			switch {
			case !ok:
				s.stop(nil, "end of input")
				return
			case l.bad != nil:
				s.sink.Error(l.bad)
				continue
			case l.err != nil:
				s.sink.Error(l.err)
				s.stop(nil, "input error")
				return
			case l.text == QuitCommand:
				s.stop(nil, "user quit")
				return
			case !utf8.ValidString(l.text):
				s.sink.Error(&EncodingError{Line: l.text})
				continue
			}

			err := s.SendText(l.text)
			if errors.Is(err, ErrNotOpen) {
				// Closing already: the line is dropped and the canceler will fire.
				continue
			}
			if err != nil {
				s.sink.Error(err)
				s.stop(nil, "write error")
				return
			}
			if timer != nil {
				timer.Reset(s.idle)
			}
		}
	}
}

// stop requests a local close and wakes the other loops.
func (s *Session) stop(payload []byte, reason string) {
	if _, err := s.closeLocal(payload, reason); err != nil {
		s.logger.Warn().Err(err).Msg("sending close frame")
	}
	s.cancel.Fire()
}
