// Command wschat is a terminal chat client.
//
// Producers send each line typed on stdin as a text message, consumers print
// every message the server relays, and "both" does both. Typing /quit or
// closing stdin ends the session.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gbrlsnchs/wschat"
	"github.com/gbrlsnchs/wschat/internal/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

const envPrefix = "WSCHAT"

type settings struct {
	Verbose      bool          `mapstructure:"verbose"`
	Timeout      float64       `mapstructure:"timeout"`
	CloseTimeout time.Duration `mapstructure:"close-timeout"`
	DialTimeout  time.Duration `mapstructure:"dial-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

var defaults = map[string]any{
	"verbose":       false,
	"timeout":       wschat.DefaultIdleTimeout.Seconds(),
	"close-timeout": wschat.DefaultCloseTimeout,
	"dial-timeout":  wschat.DefaultDialTimeout,
	"write-timeout": wschat.DefaultWriteTimeout,
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: loading .env:", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Run(ctx, os.Args); err != nil {
		// Errors carrying an exit code have already exited, what is left is bad usage.
		fmt.Fprintln(os.Stderr, "wschat:", err)
		os.Exit(2)
	}
}

func newCommand(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "wschat",
		Usage:     "chat over a WebSocket connection",
		ArgsUsage: "host port role",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log frames and session events",
			},
			&cli.FloatFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   wschat.DefaultIdleTimeout.Seconds(),
				Usage:   "close after `SECONDS` without sending anything, 0 disables it",
			},
			&cli.DurationFlag{
				Name:  "close-timeout",
				Value: wschat.DefaultCloseTimeout,
				Usage: "how long to wait for the server to answer a close",
			},
			&cli.DurationFlag{
				Name:  "dial-timeout",
				Value: wschat.DefaultDialTimeout,
				Usage: "how long to wait for the TCP connection",
			},
			&cli.DurationFlag{
				Name:  "write-timeout",
				Value: wschat.DefaultWriteTimeout,
				Usage: "give up on a server that stops reading after this long",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "read settings from the YAML `FILE`",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, stdin, stdout, stderr)
		},
	}
}

func run(ctx context.Context, cmd *cli.Command, stdin io.Reader, stdout, stderr io.Writer) error {
	if cmd.Args().Len() != 3 {
		return cli.Exit("wschat: expected host, port and role", 2)
	}
	host := cmd.Args().Get(0)
	port, err := strconv.Atoi(cmd.Args().Get(1))
	if err != nil || port <= 0 || port > 65535 {
		return cli.Exit(fmt.Sprintf("wschat: invalid port %q", cmd.Args().Get(1)), 2)
	}
	role, err := wschat.ParseRole(cmd.Args().Get(2))
	if err != nil {
		return cli.Exit(fmt.Sprintf("%v %q", err, cmd.Args().Get(2)), 2)
	}

	s, err := config.Load[settings](cmd.String("config"), envPrefix, defaults)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if cmd.IsSet("verbose") {
		s.Verbose = cmd.Bool("verbose")
	}
	if cmd.IsSet("timeout") {
		s.Timeout = cmd.Float("timeout")
	}
	if cmd.IsSet("close-timeout") {
		s.CloseTimeout = cmd.Duration("close-timeout")
	}
	if cmd.IsSet("dial-timeout") {
		s.DialTimeout = cmd.Duration("dial-timeout")
	}
	if cmd.IsSet("write-timeout") {
		s.WriteTimeout = cmd.Duration("write-timeout")
	}

	logger := newLogger(stderr, s.Verbose)
	err = wschat.Run(ctx, wschat.Config{
		Host:         host,
		Port:         port,
		Role:         role,
		IdleTimeout:  seconds(s.Timeout),
		CloseTimeout: s.CloseTimeout,
		DialTimeout:  s.DialTimeout,
		WriteTimeout: s.WriteTimeout,
		Input:        stdin,
		Sink:         &wschat.WriterSink{Out: stdout, Err: stderr},
		Logger:       &logger,
	})
	if err == nil {
		return nil
	}
	var herr *wschat.HandshakeError
	if errors.As(err, &herr) && len(herr.Body) > 0 {
		return cli.Exit(fmt.Sprintf("%v: %s", err, herr.Body), 1)
	}
	return cli.Exit(err.Error(), 1)
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// seconds converts a timeout flag, where zero or less means none.
func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
