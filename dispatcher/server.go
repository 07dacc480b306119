package dispatcher

import (
	"context"
	"net"

	"elevsys/codec"
	"elevsys/config"
	"elevsys/wire"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Server is the central dispatcher: one TCP listener, a bounded pool of
// connection slots, and the car registry.
type Server struct {
	cfg  config.Config
	reg  *Registry
	log  zerolog.Logger
	slot *semaphore.Weighted
}

// New constructs a dispatcher server from its configuration.
func New(cfg config.Config, log zerolog.Logger) *Server {
	return &Server{
		cfg:  cfg,
		reg:  NewRegistry(cfg.CarCapacity, cfg.QueueDepth),
		log:  log,
		slot: semaphore.NewWeighted(int64(cfg.ConnCapacity)),
	}
}

// Serve accepts connections on ln until ctx is cancelled, spawning one
// worker goroutine per connection (spec.md §5: "each connection is handled
// by its own worker thread").
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if !s.slot.TryAcquire(1) {
			s.log.Warn().Msg("connection pool exhausted, rejecting")
			conn.Close()
			continue
		}

		go func() {
			defer s.slot.Release(1)
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn reads the first framed message and dispatches on its prefix,
// per spec.md §4.6.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	payload, err := codec.Receive(conn)
	if err != nil {
		return
	}
	msg := string(payload)

	switch wire.Prefix(msg) {
	case "CAR":
		s.serveCar(ctx, conn, msg)
	case "CALL":
		s.serveCall(conn, msg)
	default:
		return
	}
}

// serveCar handles one car's connection for its entire lifetime: register,
// then loop applying STATUS updates until EOF, INDIVIDUAL SERVICE, or
// EMERGENCY.
func (s *Server) serveCar(ctx context.Context, conn net.Conn, registerMsg string) {
	reg, err := wire.ParseCarRegister(registerMsg)
	if err != nil {
		return
	}
	if err := s.reg.Register(reg.Name, reg.Lo, reg.Hi, conn); err != nil {
		s.log.Warn().Err(err).Str("car", reg.Name).Msg("car registration rejected")
		return
	}
	defer s.reg.Deregister(reg.Name)

	s.log.Info().Str("car", reg.Name).Msg("car registered")

	for {
		if ctx.Err() != nil {
			return
		}
		payload, err := codec.Receive(conn)
		if err != nil {
			return
		}
		msg := string(payload)

		if msg == wire.IndividualService || msg == wire.Emergency {
			return
		}

		switch wire.Prefix(msg) {
		case "STATUS":
			st, err := wire.ParseStatus(msg)
			if err != nil {
				return
			}
			if newHead, changed := s.reg.UpdateStatus(reg.Name, st.Current, st.State); changed {
				s.reg.SendFloor(reg.Name, newHead)
			}
		default:
			return
		}
	}
}

// serveCall handles one call pad connection: a single CALL request, one
// reply, then close.
func (s *Server) serveCall(conn net.Conn, callMsg string) {
	call, err := wire.ParseCall(callMsg)
	if err != nil {
		return
	}

	name, headChanged, newHead, ok := s.reg.Schedule(call.Src, call.Dst)
	if !ok {
		codec.Send(conn, []byte(wire.CarReply{Available: false}.String()))
		return
	}

	codec.Send(conn, []byte(wire.CarReply{Name: name, Available: true}.String()))

	if headChanged {
		s.reg.SendFloor(name, newHead)
	}
}
