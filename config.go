package wschat

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultReadSize     = 4096
	DefaultIdleTimeout  = 20 * time.Second
	DefaultCloseTimeout = 2 * time.Second
	DefaultDialTimeout  = 10 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// Config describes a client session.
type Config struct {
	Host string
	Port int
	Role Role

	// IdleTimeout closes the session once the producer has not sent
	// anything for that long. Zero disables it.
	IdleTimeout time.Duration
	// CloseTimeout bounds the wait for the server's close frame
	// after the client has sent its own.
	CloseTimeout time.Duration
	DialTimeout  time.Duration
	// WriteTimeout bounds every frame write, so a server that stops
	// reading cannot stall the session. Close frames use CloseTimeout.
	WriteTimeout time.Duration

	// Input is read line by line by producers. Defaults to os.Stdin.
	Input  io.Reader
	Sink   Sink
	Logger *zerolog.Logger
	Nonce  NonceFunc
}

func (cfg *Config) withDefaults() *Config {
	c := *cfg
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Input == nil {
		c.Input = os.Stdin
	}
	if c.Sink == nil {
		c.Sink = &WriterSink{Out: os.Stdout, Err: os.Stderr}
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	if c.Nonce == nil {
		c.Nonce = uuidNonce
	}
	return &c
}
