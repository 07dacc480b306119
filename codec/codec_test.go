package codec

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"
)

func TestRoundTripVariousLengths(t *testing.T) {
	lengths := []int{0, 1, 17, 255, 256, 65535}
	for _, l := range lengths {
		payload := bytes.Repeat([]byte{'x'}, l)
		var buf bytes.Buffer
		if err := Send(&buf, payload); err != nil {
			t.Fatalf("Send(len=%d): %v", l, err)
		}
		got, err := Receive(&buf)
		if err != nil {
			t.Fatalf("Receive(len=%d): %v", l, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("round trip mismatch at len=%d", l)
		}
		if len(got) != l {
			t.Errorf("got length %d, want %d", len(got), l)
		}
	}
}

func TestSendRejectsOversizePayload(t *testing.T) {
	var buf bytes.Buffer
	if err := Send(&buf, make([]byte, MaxPayload+1)); err != ErrTooLarge {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestReceiveOnClosedStreamIsPermanent(t *testing.T) {
	r, w := io.Pipe()
	w.Close()
	if _, err := Receive(r); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestOverTCPConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		msg, err := Receive(conn)
		if err != nil {
			t.Errorf("server Receive: %v", err)
			return
		}
		if err := Send(conn, msg); err != nil {
			t.Errorf("server Send: %v", err)
		}
	}()

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	payload := []byte("CALL 1 3")
	if err := Send(conn, payload); err != nil {
		t.Fatalf("client Send: %v", err)
	}
	echo, err := Receive(conn)
	if err != nil {
		t.Fatalf("client Receive: %v", err)
	}
	if !bytes.Equal(echo, payload) {
		t.Errorf("echo mismatch: got %q want %q", echo, payload)
	}
	<-done
}

func TestReceiveDeadlineYieldsTimeoutNotClosed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(50 * time.Millisecond)
	}()

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	if _, err := Receive(conn); err != ErrTimeout {
		t.Fatalf("expected ErrTimeout on an idle deadline, got %v", err)
	}
	<-serverDone
}
