package carctl

import (
	"context"
	"errors"
	"net"
	"time"

	"elevsys/codec"
	"elevsys/wire"
)

// dispatcherTask implements spec.md §4.5's "Dispatcher task": it waits for
// the safety heartbeat to be fresh and the car to be in normal mode, opens
// and maintains the dispatcher connection, and applies FLOOR updates.
func (c *Controller) dispatcherTask(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		v := c.region.Read()
		if v.SafetySystem != 1 || v.IndividualService || v.EmergencyMode {
			// Not ready to talk to the dispatcher; wait for a state change
			// and recheck the predicate (spurious wakeups are possible).
			if waitOrDone(ctx, c.region) {
				return nil
			}
			continue
		}

		if c.activeConn() == nil {
			conn, err := c.dialer(ctx)
			if err != nil {
				c.log.Warn().Err(err).Msg("dispatcher dial failed, retrying")
				sleepOrDone(ctx, c.tick)
				continue
			}
			c.setConn(conn)
			c.sendFramed(wire.CarRegister{Name: c.Name, Lo: c.Lo, Hi: c.Hi}.String())
			c.publishStatus()
		}

		c.pollDispatcher(ctx)
	}
}

// pollDispatcher waits up to one tick for an inbound frame and applies it.
func (c *Controller) pollDispatcher(ctx context.Context) {
	conn := c.activeConn()
	if conn == nil {
		return
	}
	conn.SetReadDeadline(time.Now().Add(c.tick))

	payload, err := codec.Receive(conn)
	if err != nil {
		if isTimeout(err) {
			return
		}
		c.closeConn()
		return
	}

	msg := string(payload)
	switch wire.Prefix(msg) {
	case "FLOOR":
		fc, err := wire.ParseFloorCmd(msg)
		if err != nil {
			c.closeConn()
			return
		}
		if !fc.Floor.InRange(c.Lo, c.Hi) {
			c.closeConn()
			return
		}
		c.region.SetDestinationFloor(fc.Floor.String())
		c.destChanged.Set(true)
	default:
		c.closeConn()
	}
}

// isTimeout reports a benign idle-poll timeout, as opposed to a dead
// connection that warrants closeConn.
func isTimeout(err error) bool {
	return errors.Is(err, codec.ErrTimeout)
}

func (c *Controller) activeConn() net.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Controller) setConn(conn net.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Controller) closeConn() {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()
}

// sendFramed writes one frame on the dispatcher connection, holding connMu
// for the duration; errors are swallowed per spec.md §4.5 ("Publishing").
func (c *Controller) sendFramed(msg string) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return
	}
	if err := codec.Send(c.conn, []byte(msg)); err != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// publishStatus sends the current STATUS line, as required after every
// status change (spec.md §4.5, "Publishing").
func (c *Controller) publishStatus() {
	v := c.region.Read()
	c.sendFramed(wire.Status{
		State:       v.Status,
		Current:     mustFloor(v.CurrentFloor),
		Destination: mustFloor(v.DestinationFloor),
	}.String())
}

// waitOrDone blocks on the region condition variable, returning true if ctx
// was cancelled first.
func waitOrDone(ctx context.Context, region *Region) bool {
	done := make(chan struct{})
	go func() {
		region.Wait()
		close(done)
	}()
	select {
	case <-done:
		return false
	case <-ctx.Done():
		return true
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-ctx.Done():
		return true
	}
}
