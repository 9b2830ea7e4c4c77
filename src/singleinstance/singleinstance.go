// Package singleinstance keeps two overlays from stacking on screen. The first
// snip binds a loopback port and answers PING with PONG until it exits; later
// snips see the answer and back off.
package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	guardHost    = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
	pingTimeout  = 300 * time.Millisecond
)

// ErrAlreadyRunning is returned when another snip currently owns the guard.
var ErrAlreadyRunning = errors.New("another snip-ocr selection is already in progress")

// Guard holds the loopback listener for the lifetime of one session.
type Guard struct {
	lis  net.Listener
	port int
	wg   sync.WaitGroup
}

// Acquire claims port. A zero port disables the guard and returns a no-op
// Guard. When the port is busy but nothing answers PING, the foreign owner is
// logged and the session proceeds unguarded.
func Acquire(ctx context.Context, port int) (*Guard, error) {
	if port == 0 {
		return &Guard{}, nil
	}

	addr := net.JoinHostPort(guardHost, strconv.Itoa(port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		if Detect(ctx, port) {
			return nil, ErrAlreadyRunning
		}
		log.Printf("singleinstance: %s busy with a foreign listener, continuing unguarded: %v", addr, err)
		return &Guard{}, nil
	}

	g := &Guard{lis: lis, port: port}
	g.wg.Add(1)
	go g.serve()
	log.Printf("singleinstance: guarding %s", addr)
	return g, nil
}

// Port returns the bound port, or 0 when unguarded.
func (g *Guard) Port() int { return g.port }

func (g *Guard) serve() {
	defer g.wg.Done()
	for {
		c, err := g.lis.Accept()
		if err != nil {
			return
		}
		_ = c.SetDeadline(time.Now().Add(time.Second))
		line, _ := bufio.NewReader(c).ReadString('\n')
		if line == pingRequest {
			_, _ = c.Write([]byte(pongResponse))
		}
		_ = c.Close()
	}
}

// Close releases the port. Safe on a nil or unguarded Guard.
func (g *Guard) Close() error {
	if g == nil || g.lis == nil {
		return nil
	}
	err := g.lis.Close()
	g.wg.Wait()
	g.lis = nil
	if err != nil {
		return fmt.Errorf("singleinstance: close: %w", err)
	}
	return nil
}

// Detect reports whether a snip guard answers on port.
func Detect(ctx context.Context, port int) bool {
	timeout := pingTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < timeout {
			timeout = d
		}
	}

	addr := net.JoinHostPort(guardHost, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(pingRequest)); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
