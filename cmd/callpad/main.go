// Command callpad sends one CALL request to the dispatcher and prints the
// result: `<src> <dst>` (spec.md §6). Equal floors are rejected locally
// without contacting the dispatcher (spec.md §8 scenario 6).
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elevsys/codec"
	"elevsys/config"
	"elevsys/floor"
	"elevsys/wire"
)

// parseArgs validates the call pad's two floor-label arguments, rejecting
// equal floors locally so the dispatcher is never bothered with a
// request that could never be serviced (spec.md §8 scenario 6).
func parseArgs(args []string) (src, dst floor.Floor, err error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("usage: callpad <src> <dst>")
	}
	src, err = floor.Parse(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid src floor %q: %w", args[0], err)
	}
	dst, err = floor.Parse(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid dst floor %q: %w", args[1], err)
	}
	if src == dst {
		return 0, 0, fmt.Errorf("src and dst must differ")
	}
	return src, dst, nil
}

func main() {
	src, dst, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	signal.Ignore(syscall.SIGPIPE)

	cfg, err := config.Load(os.Getenv("ELEVSYS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to reach dispatcher at %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := codec.Send(conn, []byte(wire.Call{Src: src, Dst: dst}.String())); err != nil {
		fmt.Fprintf(os.Stderr, "failed to send call: %v\n", err)
		os.Exit(1)
	}

	conn.SetReadDeadline(time.Now().Add(cfg.DialTimeout))
	payload, err := codec.Receive(conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read dispatcher reply: %v\n", err)
		os.Exit(1)
	}

	reply, err := wire.ParseCarReply(string(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "malformed dispatcher reply: %v\n", err)
		os.Exit(1)
	}
	if !reply.Available {
		fmt.Println("UNAVAILABLE")
		os.Exit(0)
	}
	fmt.Printf("CAR %s\n", reply.Name)
}
