package serialport

import (
	"sync"
)

// Link owns a single serial device exclusively and serializes
// command/response transactions against it, matching the specification's
// concurrency model (§5: "a single command<->response transaction on a
// link is not preemptible").
type Link struct {
	mu   sync.Mutex
	port SerialPorter
}

// NewLink wraps an open SerialPorter as a transactional Link.
func NewLink(port SerialPorter) *Link {
	return &Link{port: port}
}

// Transact runs fn with exclusive access to the underlying port. fn
// typically writes a request frame and reads a response frame.
func (l *Link) Transact(fn func(SerialPorter) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.port)
}

// Close closes the underlying port.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port.Close()
}
