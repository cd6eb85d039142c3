package internal

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

const (
	UpgradeHeader             = "websocket"
	ConnectionHeader          = "upgrade"
	SecWebSocketVersionHeader = "13"
	guid                      = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

	// NonceSize is the size of the decoded Sec-WebSocket-Key.
	NonceSize = 16
)

var (
	ErrMissingHost                = errors.New("wschat: missing Host header")
	ErrUpgradeMismatch            = errors.New("wschat: Upgrade header mismatch")
	ErrConnectionMismatch         = errors.New("wschat: Connection header mismatch")
	ErrSecWebSocketVersionMissing = errors.New("wschat: missing Sec-WebSocket-Version header")
	ErrInvalidSecWebSocketKey     = errors.New("wschat: invalid Sec-WebSocket-Key")
)

// EncodeKey returns the Sec-WebSocket-Key for a nonce.
func EncodeKey(nonce [NonceSize]byte) string {
	return base64.StdEncoding.EncodeToString(nonce[:])
}

// AcceptKey computes the Sec-WebSocket-Accept value a server
// must answer with for the given Sec-WebSocket-Key.
func AcceptKey(key string) string {
	sha := sha1.New()
	b := make([]byte, len(key)+len(guid))
	copy(b[copy(b, key):], guid)
	sha.Write(b)
	return base64.StdEncoding.EncodeToString(sha.Sum(nil))
}

// Validate checks the upgrade headers of an opening handshake request.
func Validate(r *http.Request) error {
	hdr := r.Header
	switch {
	case r.Host == "":
		return ErrMissingHost
	case strings.ToLower(hdr.Get("Upgrade")) != UpgradeHeader:
		return ErrUpgradeMismatch
	case strings.ToLower(hdr.Get("Connection")) != ConnectionHeader:
		return ErrConnectionMismatch
	case hdr.Get("Sec-WebSocket-Version") != SecWebSocketVersionHeader:
		return ErrSecWebSocketVersionMissing
	}
	nonce, err := base64.StdEncoding.DecodeString(hdr.Get("Sec-WebSocket-Key"))
	if err != nil || len(nonce) != NonceSize {
		return ErrInvalidSecWebSocketKey
	}
	return nil
}
