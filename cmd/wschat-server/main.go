// Command wschat-server runs the chat server wschat clients connect to.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gbrlsnchs/wschat/chatserver"
	"github.com/gbrlsnchs/wschat/internal/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

const (
	envPrefix       = "WSCHAT_SERVER"
	shutdownTimeout = 5 * time.Second
)

type settings struct {
	Verbose      bool    `mapstructure:"verbose"`
	PingInterval float64 `mapstructure:"ping-interval"`
	Timeout      float64 `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"verbose":       false,
	"ping-interval": chatserver.DefaultPingInterval.Seconds(),
	"timeout":       chatserver.DefaultTimeout.Seconds(),
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: loading .env:", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stderr, nil).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "wschat-server:", err)
		os.Exit(2)
	}
}

// newCommand builds the command. ready, if not nil, receives the bound
// listener address once the server accepts connections.
func newCommand(stderr io.Writer, ready chan<- net.Addr) *cli.Command {
	return &cli.Command{
		Name:      "wschat-server",
		Usage:     "relay chat messages between WebSocket clients",
		ArgsUsage: "port",
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log every message",
			},
			&cli.FloatFlag{
				Name:    "ping-interval",
				Aliases: []string{"p"},
				Value:   chatserver.DefaultPingInterval.Seconds(),
				Usage:   "ping clients every `SECONDS`, 0 or less disables pings",
			},
			&cli.FloatFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   chatserver.DefaultTimeout.Seconds(),
				Usage:   "drop clients silent for `SECONDS` after a ping",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "read settings from the YAML `FILE`",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, stderr, ready)
		},
	}
}

func run(ctx context.Context, cmd *cli.Command, stderr io.Writer, ready chan<- net.Addr) error {
	if cmd.Args().Len() != 1 {
		return cli.Exit("wschat-server: expected a port", 2)
	}
	// Port 0 picks a free port.
	port, err := strconv.Atoi(cmd.Args().First())
	if err != nil || port < 0 || port > 65535 {
		return cli.Exit(fmt.Sprintf("wschat-server: invalid port %q", cmd.Args().First()), 2)
	}

	s, err := config.Load[settings](cmd.String("config"), envPrefix, defaults)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if cmd.IsSet("verbose") {
		s.Verbose = cmd.Bool("verbose")
	}
	if cmd.IsSet("ping-interval") {
		s.PingInterval = cmd.Float("ping-interval")
	}
	if cmd.IsSet("timeout") {
		s.Timeout = cmd.Float("timeout")
	}

	level := zerolog.InfoLevel
	if s.Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return cli.Exit(fmt.Sprintf("wschat-server: %v", err), 1)
	}

	srv := chatserver.New(chatserver.Config{
		PingInterval: time.Duration(s.PingInterval * float64(time.Second)),
		Timeout:      time.Duration(s.Timeout * float64(time.Second)),
		Logger:       &logger,
	})
	hctx, stopHub := context.WithCancel(ctx)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		srv.Run(hctx)
	}()

	hs := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	served := make(chan error, 1)
	go func() { served <- hs.Serve(ln) }()
	logger.Info().Stringer("addr", ln.Addr()).Msg("accepting connections")
	if ready != nil {
		ready <- ln.Addr()
	}

	select {
	case err = <-served:
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = hs.Shutdown(sctx)
	}
	stopHub()
	<-hubDone
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return cli.Exit(fmt.Sprintf("wschat-server: %v", err), 1)
	}
	logger.Info().Msg("server stopped")
	return nil
}
