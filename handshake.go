package wschat

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gbrlsnchs/uuid"
	"github.com/gbrlsnchs/wschat/internal"
)

const maxErrorBody = 4096

// NonceFunc returns the random nonce of an opening handshake.
type NonceFunc func() ([internal.NonceSize]byte, error)

func uuidNonce() ([internal.NonceSize]byte, error) {
	var nonce [internal.NonceSize]byte
	guid, err := uuid.GenerateV4(nil)
	if err != nil {
		return nonce, err
	}
	copy(nonce[:], guid[:])
	return nonce, nil
}

// ExpectedAccept returns the Sec-WebSocket-Accept value a server must
// answer with for the given Sec-WebSocket-Key.
func ExpectedAccept(key string) string {
	return internal.AcceptKey(key)
}

// negotiate performs the opening handshake over the session's socket.
// The response is read through the session reader, so frames that follow
// the response in the same packet are kept for the receive loop.
func (s *Session) negotiate(host string, port int, nonce NonceFunc) error {
	n, err := nonce()
	if err != nil {
		return &HandshakeError{Err: err}
	}
	key := internal.EncodeKey(n)
	r := newUpgradeRequest(net.JoinHostPort(host, strconv.Itoa(port)), s.role, key)

	w := bufio.NewWriter(s.conn)
	if err = r.Write(w); err == nil {
		err = w.Flush()
	}
	if err != nil {
		return &HandshakeError{Err: fmt.Errorf("send request: %w", err)}
	}
	s.logger.Debug().Str("path", r.URL.Path).Str("key", key).Msg("handshake request sent")

	rr, err := http.ReadResponse(s.rd, r)
	if err != nil {
		return &HandshakeError{Err: fmt.Errorf("read response: %w", err)}
	}
	if rr.StatusCode != http.StatusSwitchingProtocols {
		body, _ := io.ReadAll(io.LimitReader(rr.Body, maxErrorBody))
		rr.Body.Close()
		return &HandshakeError{Status: rr.StatusCode, Body: body, Err: ErrBadStatus}
	}
	if err = validateAccept(rr.Header, key); err != nil {
		return &HandshakeError{Status: rr.StatusCode, Err: err}
	}
	s.setOpen()
	s.logger.Debug().Msg("handshake accepted")
	return nil
}

func newUpgradeRequest(host string, role Role, key string) *http.Request {
	r := &http.Request{
		Method:     http.MethodGet,
		URL:        &url.URL{Scheme: "http", Host: host, Path: role.Path()},
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Host:       host,
	}
	// Set directly on the map so the WebSocket headers keep their canonical spelling.
	r.Header["Upgrade"] = []string{internal.UpgradeHeader}
	r.Header["Connection"] = []string{"Upgrade"}
	r.Header["Sec-WebSocket-Key"] = []string{key}
	r.Header["Sec-WebSocket-Version"] = []string{internal.SecWebSocketVersionHeader}
	return r
}

// validateAccept compares the server's accept value byte by byte.
// If the header is repeated, the last value wins.
func validateAccept(hdr http.Header, key string) error {
	vals := hdr.Values("Sec-WebSocket-Accept")
	if len(vals) == 0 || vals[len(vals)-1] != ExpectedAccept(key) {
		return ErrBadAccept
	}
	return nil
}
