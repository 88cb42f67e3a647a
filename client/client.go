// Package client implements the KATCP client-side protocol engine: an
// outstanding-request table keyed by message id, unsolicited-inform
// dispatch, and optional backoff-governed reconnection (spec section
// 4.7), grounded on the same request/reply framing as package server.
package client

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/nasa-jpl/katcp/conn"
	"github.com/nasa-jpl/katcp/core"
)

const maxMid = 1<<31 - 1

// Observer receives informs that do not correspond to any outstanding
// request's mid — the "unsolicited" stream (spec section 4.7).
type Observer interface {
	Inform(msg *core.Message)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(msg *core.Message)

func (f ObserverFunc) Inform(msg *core.Message) { f(msg) }

type pendingRequest struct {
	name    string
	mid     int
	informs []*core.Message
	done    chan struct{}
	reply   *core.Message
	err     error
}

// Client is a connected KATCP client endpoint. The zero value is not
// usable; build one with Dial.
type Client struct {
	log             *logrus.Logger
	observer        Observer
	timeout         time.Duration
	reconnectPolicy func() backoff.BackOff
	addr            string

	mu      sync.Mutex
	conn    *conn.Conn
	nextMid int
	pending map[int]*pendingRequest
	closed  bool
	closeCh chan struct{}
}

// Option configures a Client at Dial time.
type Option func(*Client)

// WithLogger overrides the default standard logrus logger.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithObserver installs the handler for unsolicited informs.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithRequestTimeout bounds how long Request waits for a reply before
// failing with a TimeoutError. Zero (the default) disables the timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithReconnect installs a reconnection policy: after the transport is
// lost, the client's read loop calls policy to obtain a new
// backoff.BackOff and redials addr until a dial succeeds or that
// BackOff gives up; after giving up the client stays disconnected.
// Omit this option to disable reconnection entirely.
func WithReconnect(policy func() backoff.BackOff) Option {
	return func(c *Client) { c.reconnectPolicy = policy }
}

// Dial connects to addr and starts the client's read loop. If a
// reconnect policy was supplied, a lost connection is redialed as
// WithReconnect describes.
func Dial(addr string, opts ...Option) (*Client, error) {
	c := &Client{
		log:     logrus.StandardLogger(),
		addr:    addr,
		nextMid: 1,
		pending: make(map[int]*pendingRequest),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	c.conn = conn.New(netConn)
	go c.readLoop(c.conn)
	return c, nil
}

// Close shuts the client down: the connection is closed, any
// reconnection loop stops, and all outstanding requests fail with
// ConnectionLostError.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closeCh)
	conn := c.conn
	c.mu.Unlock()
	return conn.Close()
}

func (c *Client) allocMid() int {
	for {
		mid := c.nextMid
		c.nextMid++
		if c.nextMid > maxMid {
			c.nextMid = 1
		}
		if _, inUse := c.pending[mid]; !inUse {
			return mid
		}
	}
}

// Request sends name(args…) and blocks for the matching reply,
// returning it along with any informs the server emitted under the
// same mid before replying (spec section 4.7). ctx governs
// cancellation; a configured request timeout applies independently.
func (c *Client) Request(ctx context.Context, name string, args ...interface{}) (*core.Message, []*core.Message, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, nil, &ConnectionLostError{}
	}
	mid := c.allocMid()
	pr := &pendingRequest{name: name, mid: mid, done: make(chan struct{})}
	c.pending[mid] = pr
	conn := c.conn
	c.mu.Unlock()

	msg, err := core.NewRequest(name, mid, args...)
	if err != nil {
		c.removePending(mid)
		return nil, nil, err
	}
	if err := conn.WriteMessage(msg); err != nil {
		c.removePending(mid)
		return nil, nil, err
	}

	var timeoutCh <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-pr.done:
		return pr.reply, pr.informs, pr.err
	case <-timeoutCh:
		c.removePending(mid)
		return nil, nil, &TimeoutError{Name: name, Mid: mid}
	case <-ctx.Done():
		c.removePending(mid)
		return nil, nil, ctx.Err()
	case <-c.closeCh:
		return nil, nil, &ConnectionLostError{}
	}
}

func (c *Client) removePending(mid int) {
	c.mu.Lock()
	delete(c.pending, mid)
	c.mu.Unlock()
}

// readLoop owns one physical connection; on loss it either hands off
// to a freshly redialed connection's own readLoop (when a reconnect
// policy is configured) or returns for good.
func (c *Client) readLoop(active *conn.Conn) {
	for {
		msg, err := active.ReadMessage()
		if err != nil {
			if se, ok := err.(*core.SyntaxError); ok {
				c.log.WithError(se).Warn("dropping malformed frame")
				continue
			}
			active.Close()
			c.failAllPending(&ConnectionLostError{Cause: err})
			if c.reconnectPolicy == nil {
				return
			}
			next := c.reconnect()
			if next == nil {
				return
			}
			go c.readLoop(next)
			return
		}

		switch msg.Type {
		case core.Reply:
			c.resolveReply(msg)
		case core.Inform:
			c.dispatchInform(msg)
		case core.Request:
			// clients never receive requests; ignore defensively
		}
	}
}

func (c *Client) resolveReply(msg *core.Message) {
	c.mu.Lock()
	pr, ok := c.pending[msg.Mid]
	if ok {
		delete(c.pending, msg.Mid)
	}
	c.mu.Unlock()
	if !ok || pr.name != msg.Name {
		c.log.WithError(&InvalidReplyError{Name: msg.Name, Mid: msg.Mid}).Warn("unmatched reply")
		return
	}
	pr.reply = msg
	close(pr.done)
}

func (c *Client) dispatchInform(msg *core.Message) {
	if msg.Mid != 0 {
		c.mu.Lock()
		pr, ok := c.pending[msg.Mid]
		c.mu.Unlock()
		if ok && pr.name == msg.Name {
			pr.informs = append(pr.informs, msg)
			return
		}
	}
	if c.observer != nil {
		c.observer.Inform(msg)
	}
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int]*pendingRequest)
	c.mu.Unlock()
	for _, pr := range pending {
		pr.err = err
		close(pr.done)
	}
}

// reconnect redials addr using the configured backoff policy and
// installs the new connection as current. It returns nil if the
// client was closed meanwhile or the policy gave up.
func (c *Client) reconnect() *conn.Conn {
	var netConn net.Conn
	op := func() error {
		nc, err := net.DialTimeout("tcp", c.addr, 5*time.Second)
		if err != nil {
			return err
		}
		netConn = nc
		return nil
	}
	if err := backoff.Retry(op, c.reconnectPolicy()); err != nil {
		c.log.WithError(err).Error("giving up reconnecting")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		netConn.Close()
		return nil
	}
	next := conn.New(netConn)
	c.conn = next
	return next
}
