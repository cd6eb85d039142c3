package wschat

import (
	"fmt"
	"io"
	"sync"
)

// Sink receives what a session has to show to the user.
type Sink interface {
	Message(text string)
	Error(err error)
}

// WriterSink prints messages to Out and errors to Err.
type WriterSink struct {
	mu  sync.Mutex
	Out io.Writer
	Err io.Writer
}

func (s *WriterSink) Message(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.Out, text)
}

func (s *WriterSink) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.Err, "error:", err)
}
