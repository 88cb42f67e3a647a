// Package conn implements the KATCP connection engine: line framing over
// a TCP byte stream and a per-connection write queue that preserves
// ordering between informs, replies, and #log lines (spec section 4.5).
package conn

import (
	"bufio"
	"errors"
	"net"
	"sync"

	"github.com/nasa-jpl/katcp/core"
)

// ErrClosed is returned by ReadMessage/WriteMessage once the connection
// has been closed.
var ErrClosed = errors.New("katcp: connection closed")

// writeQueueDepth bounds how many outbound messages may be buffered
// before WriteMessage blocks; it exists to apply backpressure to a
// producer faster than the network, not to drop messages.
const writeQueueDepth = 256

// Conn wraps a net.Conn with KATCP line framing on read and a single
// writer goroutine draining a write queue on write, so that concurrent
// request handlers never interleave partial lines (spec section 4.5,
// section 9's "coroutine-based handlers" note re-expressed as a
// dedicated writer goroutine).
type Conn struct {
	netConn net.Conn
	reader  *bufio.Reader

	writeCh chan []byte
	done    chan struct{}

	mu       sync.Mutex
	closed   bool
	writeErr error
}

// New wraps an already-established TCP connection.
func New(netConn net.Conn) *Conn {
	c := &Conn{
		netConn: netConn,
		reader:  bufio.NewReader(netConn),
		writeCh: make(chan []byte, writeQueueDepth),
		done:    make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// RemoteAddr returns the peer's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// ReadMessage blocks for one complete line and parses it. A malformed
// line is returned as a *core.SyntaxError alongside a nil Message;
// callers decide whether to surface it (spec section 4.5) without
// closing the connection. A transport error (including EOF) is returned
// unwrapped.
func (c *Conn) ReadMessage() (*core.Message, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		if len(line) == 0 {
			return nil, err
		}
		// Partial line followed by EOF/closure: surface the transport
		// error, the partial bytes can't form a message.
		return nil, err
	}
	return core.ParseMessage(line)
}

// WriteMessage enqueues m for serialized delivery. It returns ErrClosed
// if the connection has already been closed, or the first write error
// the writer goroutine observed.
func (c *Conn) WriteMessage(m *core.Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.writeErr != nil {
		err := c.writeErr
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	select {
	case c.writeCh <- m.Bytes():
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *Conn) writeLoop() {
	for {
		select {
		case b := <-c.writeCh:
			if _, err := c.netConn.Write(b); err != nil {
				c.mu.Lock()
				c.writeErr = err
				c.mu.Unlock()
			}
		case <-c.done:
			return
		}
	}
}

// Close shuts down the write queue and closes the underlying transport.
// It is safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
	return c.netConn.Close()
}
