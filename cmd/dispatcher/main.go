// Command dispatcher runs the central dispatcher: zero arguments, binds the
// fixed port (spec.md §6).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"elevsys/config"
	"elevsys/dispatcher"
	"elevsys/internal/obslog"
)

func main() {
	if len(os.Args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: dispatcher")
		os.Exit(1)
	}

	signal.Ignore(syscall.SIGPIPE)

	log := obslog.Named("dispatcher")
	cfg, err := config.Load(os.Getenv("ELEVSYS_CONFIG"))
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("failed to bind")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", addr).Msg("dispatcher listening")
	srv := dispatcher.New(cfg, log)
	if err := srv.Serve(ctx, ln); err != nil {
		log.Error().Err(err).Msg("dispatcher exited")
		os.Exit(1)
	}
}
