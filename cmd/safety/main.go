// Command safety runs the independent safety monitor for one car:
// `<car_name>` (spec.md §6).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"elevsys/carstate"
	"elevsys/internal/obslog"
	"elevsys/safety"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: safety <car_name>")
		os.Exit(1)
	}
	name := os.Args[1]

	signal.Ignore(syscall.SIGPIPE)

	log := obslog.Named("safety").With().Str("car", name).Logger()

	region, err := carstate.Open(name)
	if err != nil {
		log.Error().Err(err).Msg("failed to open shared car-state region")
		os.Exit(1)
	}
	defer region.Close()

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	log.Info().Msg("safety monitor starting")
	safety.New(region, log).Run(stop)
}
