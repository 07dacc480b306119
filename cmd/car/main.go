// Command car runs one per-car controller: `<name> <lo> <hi> <delay_ms>`
// (spec.md §6).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"elevsys/carctl"
	"elevsys/carstate"
	"elevsys/config"
	"elevsys/floor"
	"elevsys/internal/obslog"
)

func main() {
	if len(os.Args) != 5 {
		fmt.Fprintln(os.Stderr, "usage: car <name> <lo> <hi> <delay_ms>")
		os.Exit(1)
	}
	name := os.Args[1]

	lo, err := floor.Parse(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid lo floor %q: %v\n", os.Args[2], err)
		os.Exit(1)
	}
	hi, err := floor.Parse(os.Args[3])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid hi floor %q: %v\n", os.Args[3], err)
		os.Exit(1)
	}
	if lo > hi {
		fmt.Fprintf(os.Stderr, "lo %s is above hi %s\n", lo, hi)
		os.Exit(1)
	}
	delayMS, err := strconv.Atoi(os.Args[4])
	if err != nil || delayMS <= 0 {
		fmt.Fprintf(os.Stderr, "invalid delay_ms %q\n", os.Args[4])
		os.Exit(1)
	}

	signal.Ignore(syscall.SIGPIPE)

	log := obslog.Named("car").With().Str("car", name).Logger()
	cfg, err := config.Load(os.Getenv("ELEVSYS_CONFIG"))
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	region, err := carstate.Open(name)
	if err != nil {
		log.Error().Err(err).Msg("failed to open shared car-state region")
		os.Exit(1)
	}
	defer region.Close()

	dialAddr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	dialer := carctl.TCPDialer(dialAddr, cfg.DialTimeout)
	tick := time.Duration(delayMS) * time.Millisecond

	ctrl := carctl.New(name, lo, hi, tick, region, dialer, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("lo", lo.String()).Str("hi", hi.String()).Msg("car controller starting")
	err = ctrl.Run(ctx)
	region.Unlink()
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("car controller exited")
		os.Exit(1)
	}
}
