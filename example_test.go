package wschat_test

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gbrlsnchs/wschat"
)

func ExampleRun() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := wschat.Run(ctx, wschat.Config{
		Host: "localhost",
		Port: 8998,
		Role: wschat.RoleBoth,
	})
	var herr *wschat.HandshakeError
	if errors.As(err, &herr) && errors.Is(err, wschat.ErrBadStatus) {
		log.Fatalf("server refused the session: %d %s", herr.Status, herr.Body)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func ExampleDial() {
	s, err := wschat.Dial(context.Background(), wschat.Config{
		Host:  "localhost",
		Port:  8998,
		Role:  wschat.RoleProducer,
		Input: strings.NewReader("Hello, WebSocket!\n/quit\n"),
	})
	if err != nil {
		log.Fatal(err)
	}
	s.Serve(context.Background())
}
