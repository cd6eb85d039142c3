// Package wstest provides a scripted WebSocket server speaking raw frames,
// for testing clients against exact byte sequences.
package wstest

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"

	"github.com/gbrlsnchs/wschat"
	"github.com/gbrlsnchs/wschat/internal"
)

// Server accepts TCP connections and hands each one to a script.
type Server struct {
	ln     net.Listener
	script func(*Conn)
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns []*Conn
}

// NewServer starts a server on a random local port.
// It is closed when the test ends.
func NewServer(t testing.TB, script func(*Conn)) *Server {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("wstest: listen: %v", err)
	}
	s := &Server{ln: ln, script: script}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			return
		}
		c := newConn(nc)
		s.mu.Lock()
		s.conns = append(s.conns, c)
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer nc.Close()
			s.script(c)
		}()
	}
}

// Host returns the listening IP address.
func (s *Server) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listening TCP port.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Close stops accepting connections and waits for running scripts.
func (s *Server) Close() {
	s.ln.Close()
	s.wg.Wait()
}

// Conns returns the connections accepted so far.
func (s *Server) Conns() []*Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Conn(nil), s.conns...)
}

// Conn is the server side of one client connection.
type Conn struct {
	net.Conn
	rd  *bufio.Reader
	dec *wschat.Decoder

	// Request is the client's opening handshake, once read.
	Request *http.Request

	mu        sync.Mutex
	frames    []wschat.Frame
	closeSent bool
	readErr   error
}

func newConn(nc net.Conn) *Conn {
	rd := bufio.NewReader(nc)
	return &Conn{Conn: nc, rd: rd, dec: wschat.NewDecoder(rd, false)}
}

// ReadRequest reads the client's opening handshake.
func (c *Conn) ReadRequest() (*http.Request, error) {
	r, err := http.ReadRequest(c.rd)
	if err != nil {
		return nil, err
	}
	c.Request = r
	return r, internal.Validate(r)
}

// Accept reads the opening handshake and answers it properly.
func (c *Conn) Accept() error {
	r, err := c.ReadRequest()
	if err != nil {
		return err
	}
	return c.WriteRaw(SwitchingProtocols(internal.AcceptKey(r.Header.Get("Sec-WebSocket-Key"))))
}

// Reject reads the opening handshake and answers it with status and body.
func (c *Conn) Reject(status int, body string) error {
	if _, err := c.ReadRequest(); err != nil {
		return err
	}
	res := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Type: text/plain\r\nContent-Length: %d\r\n\r\n%s",
		status, http.StatusText(status), len(body), body)
	return c.WriteRaw([]byte(res))
}

// SwitchingProtocols returns a 101 response carrying the given accept value.
func SwitchingProtocols(accept string) []byte {
	return []byte("HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n\r\n")
}

// WriteRaw writes b to the client as is.
func (c *Conn) WriteRaw(b []byte) error {
	_, err := c.Write(b)
	return err
}

// WriteFrame sends an unmasked frame, as servers do.
func (c *Conn) WriteFrame(op wschat.Opcode, payload []byte) error {
	b, err := wschat.Encode(op, payload, false)
	if err != nil {
		return err
	}
	if op == wschat.OpcodeClose {
		c.mu.Lock()
		c.closeSent = true
		c.mu.Unlock()
	}
	return c.WriteRaw(b)
}

// ReadFrame reads and records the next client frame.
func (c *Conn) ReadFrame() (wschat.Frame, error) {
	f, err := c.dec.Next()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.readErr = err
		return f, err
	}
	c.frames = append(c.frames, f)
	return f, nil
}

// Serve reads client frames until the connection ends,
// echoing the client's close frame unless one was sent already.
func (c *Conn) Serve() {
	for {
		f, err := c.ReadFrame()
		if err != nil {
			return
		}
		if f.Opcode != wschat.OpcodeClose {
			continue
		}
		c.mu.Lock()
		echo := !c.closeSent
		c.mu.Unlock()
		if echo {
			c.WriteFrame(wschat.OpcodeClose, f.Payload)
		}
	}
}

// Frames returns every frame received from the client.
func (c *Conn) Frames() []wschat.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]wschat.Frame(nil), c.frames...)
}

// Count returns how many received frames carry the opcode.
func (c *Conn) Count(op wschat.Opcode) int {
	n := 0
	for _, f := range c.Frames() {
		if f.Opcode == op {
			n++
		}
	}
	return n
}

// ReadErr returns the error that ended the last read, if any.
func (c *Conn) ReadErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

