// Package pubsub broadcasts cell-change notifications over a ZeroMQ PUB
// socket, so any number of out-of-process subscribers (a UI, a logger, a
// second sheet mirroring this one) can follow a sheet's reactive updates
// without going through the engine's in-process Listener callbacks.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"
)

// Change is the wire format for one cell's new cached result.
type Change struct {
	CellID  string `json:"cellId"`
	Value   string `json:"value,omitempty"`
	IsError bool   `json:"isError"`
	Error   string `json:"error,omitempty"`
}

// Notifier owns a single PUB socket bound at construction time. Publish is
// safe to call from any goroutine.
type Notifier struct {
	mu   sync.Mutex
	sock zmq4.Socket
	addr string
}

// NewNotifier binds a PUB socket at addr (e.g. "tcp://127.0.0.1:5557").
func NewNotifier(addr string) (*Notifier, error) {
	sock := zmq4.NewPub(context.Background())
	if err := sock.Listen(addr); err != nil {
		return nil, fmt.Errorf("pubsub: bind %s: %w", addr, err)
	}
	return &Notifier{sock: sock, addr: addr}, nil
}

// Publish sends one cell-change notification as a single-frame JSON
// message. Topic filtering is left to subscribers (ZeroMQ PUB/SUB matches
// on message prefix, not a separate topic frame, to keep the wire format
// minimal).
func (n *Notifier) Publish(c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("pubsub: marshal change for %s: %w", c.CellID, err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sock.Send(zmq4.NewMsg(payload))
}

// Close releases the underlying socket.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sock.Close()
}
