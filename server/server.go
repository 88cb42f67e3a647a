// Package server implements the KATCP server-side protocol engine:
// per-connection dispatch, the built-in requests every KATCP device must
// answer, the client registry, and mass-inform broadcast (spec section
// 4.6).
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nasa-jpl/katcp/conn"
	"github.com/nasa-jpl/katcp/core"
	"github.com/nasa-jpl/katcp/sampler"
	"github.com/nasa-jpl/katcp/sensor"
	"github.com/nasa-jpl/katcp/util"
)

// HandlerFunc answers one request. A nil error and non-nil return encode
// to "!name[mid] ok <args…>". Returning a *FailReply encodes to
// "!name[mid] fail <message>" without an error log entry; any other
// error is treated as an internal failure, logged, and redacted on the
// wire (spec section 7).
type HandlerFunc func(c *ClientConn, req *core.Message) ([]interface{}, error)

type handlerEntry struct {
	fn   HandlerFunc
	help string
}

// Info identifies this server implementation for the #version-connect
// greeting and ?version-list (spec section 4.6).
type Info struct {
	LibraryName    string
	LibraryVersion string
	DeviceVersion  string
	BuildState     string
}

// Server dispatches requests from any number of connected clients,
// supervises background service tasks, and owns the sensor set those
// clients sample (spec section 4.6).
type Server struct {
	info Info
	log  *logrus.Logger

	mu       sync.Mutex
	handlers map[string]handlerEntry
	versions []string

	Sensors *sensor.SensorSet

	clientsMu sync.Mutex
	clients   map[*ClientConn]struct{}

	listener        net.Listener
	shutdownTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

// New builds a Server. log may be nil, in which case logrus's standard
// logger is used.
func New(info Info, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		info:            info,
		log:             log,
		handlers:        make(map[string]handlerEntry),
		versions:        []string{info.LibraryName + "-" + info.LibraryVersion},
		Sensors:         sensor.NewSensorSet(),
		clients:         make(map[*ClientConn]struct{}),
		shutdownTimeout: 5 * time.Second,
		ctx:             ctx,
		cancel:          cancel,
	}
	s.registerBuiltins()
	return s
}

// Register adds a request handler. Registering an already-registered
// name is an error.
func (s *Server) Register(name, help string, fn HandlerFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.handlers[name]; exists {
		return Fail("request %q is already registered", name)
	}
	s.handlers[name] = handlerEntry{fn: fn, help: help}
	return nil
}

// Go spawns fn as a supervised service task: it receives the server's
// lifetime context and is expected to return when that context is
// canceled, which Halt does (spec section 9's "coroutine-based request
// handlers" note, re-expressed here for background work rather than
// per-request handlers).
func (s *Server) Go(fn func(ctx context.Context)) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		fn(s.ctx)
	}()
}

// SetShutdownTimeout overrides the default grace period Halt allows
// in-flight replies to drain before forcibly closing connections.
func (s *Server) SetShutdownTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownTimeout = d
}

// Listen opens the TCP listening socket. Call Serve afterward to accept
// connections.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr returns the bound listening address, valid after a successful
// Listen.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed (typically by
// Halt), handling each on its own goroutine.
func (s *Server) Serve() error {
	for {
		netConn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(netConn)
	}
}

// MassInform broadcasts an unsolicited inform (mid absent) to every
// connected client, in this call's own order, with no cross-client
// ordering guarantee (spec section 4.6, section 5).
func (s *Server) MassInform(name string, args ...interface{}) error {
	msg, err := core.NewInform(name, 0, args...)
	if err != nil {
		return err
	}
	s.clientsMu.Lock()
	clients := make([]*ClientConn, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.Unlock()

	for _, c := range clients {
		if err := c.conn.WriteMessage(msg); err != nil {
			s.log.WithError(err).WithField("client", c.addr).Warn("mass-inform write failed")
		}
	}
	return nil
}

// ClientAddrs lists the peer addresses of every connected client, in no
// particular order, for ?client-list.
func (s *Server) ClientAddrs() []core.Address {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	out := make([]core.Address, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c.addr)
	}
	return out
}

// Halt initiates graceful shutdown: service tasks are canceled, the
// listener is closed so no new connections are accepted, and existing
// connections are closed by a background goroutine once the shutdown
// timeout has elapsed, giving in-flight replies that long to drain.
// Connections are not closed earlier when they go idle, and Halt waits
// only for service tasks to return, not for that close.
func (s *Server) Halt() {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	timeout := s.shutdownTimeout
	s.mu.Unlock()
	go func() {
		time.Sleep(timeout)
		s.clientsMu.Lock()
		clients := make([]*ClientConn, 0, len(s.clients))
		for c := range s.clients {
			clients = append(clients, c)
		}
		s.clientsMu.Unlock()
		var closeErrs []error
		for _, c := range clients {
			if err := c.conn.Close(); err != nil {
				closeErrs = append(closeErrs, err)
			}
		}
		if err := util.MergeErrors(closeErrs); err != nil {
			s.log.WithError(err).Warn("errors closing client connections during halt")
		}
	}()
	s.tasks.Wait()
}

func (s *Server) handleConn(netConn net.Conn) {
	c := &ClientConn{
		conn:     conn.New(netConn),
		server:   s,
		addr:     peerAddress(netConn),
		samplers: make(map[string]*sampler.Sampler),
	}
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()
		c.stopAllSamplers()
		c.conn.Close()
	}()

	s.sendGreeting(c)

	for {
		msg, err := c.conn.ReadMessage()
		if err != nil {
			if se, ok := err.(*core.SyntaxError); ok {
				c.logError(se)
				continue
			}
			return // transport closed or irrecoverable
		}
		if msg.Type != core.Request {
			continue // servers don't expect replies/informs from clients
		}
		go s.dispatch(c, msg)
	}
}

func (s *Server) sendGreeting(c *ClientConn) {
	informs := [][]interface{}{
		{"katcp-protocol", "5.0-MI"},
		{"katcp-library", s.info.LibraryName + "-" + s.info.LibraryVersion},
		{"katcp-device", s.info.DeviceVersion, s.info.BuildState},
	}
	for _, args := range informs {
		msg, err := core.NewInform("version-connect", 0, args...)
		if err != nil {
			s.log.WithError(err).Error("failed to build greeting inform")
			continue
		}
		_ = c.conn.WriteMessage(msg)
	}
}

func (s *Server) dispatch(c *ClientConn, req *core.Message) {
	s.mu.Lock()
	entry, ok := s.handlers[req.Name]
	s.mu.Unlock()
	if !ok {
		reply, _ := core.ReplyToRequest(req, "fail", "unknown request")
		c.conn.WriteMessage(reply)
		return
	}

	okArgs, err := s.runHandler(c, req, entry.fn)
	var reply *core.Message
	if err == nil {
		args := append([]interface{}{"ok"}, okArgs...)
		reply, err = core.ReplyToRequest(req, args...)
	} else if fr, ok := err.(*FailReply); ok {
		reply, err = core.ReplyToRequest(req, "fail", fr.Message)
	} else {
		s.log.WithError(err).WithField("request", req.Name).Error("internal error handling request")
		reply, err = core.ReplyToRequest(req, "fail", "internal error")
	}
	if err != nil {
		s.log.WithError(err).WithField("request", req.Name).Error("failed to build reply")
		return
	}
	c.conn.WriteMessage(reply)
}

// runHandler invokes a handler with panic recovery, since an uncaught
// exception in a handler must become an Internal error reply rather than
// taking down the connection's goroutine (spec section 7).
func (s *Server) runHandler(c *ClientConn, req *core.Message, fn HandlerFunc) (okArgs []interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Fail("internal error")
			s.log.WithField("panic", r).WithField("request", req.Name).Error("handler panicked")
		}
	}()
	return fn(c, req)
}

func peerAddress(netConn net.Conn) core.Address {
	addr, err := core.ParseAddress(netConn.RemoteAddr().String())
	if err != nil {
		return core.Address{}
	}
	return addr
}

// ClientConn is one connected client's state: its wire connection and
// the samplers it has installed (spec section 3's Connection, narrowed
// to the server's view of it).
type ClientConn struct {
	conn   *conn.Conn
	server *Server
	addr   core.Address

	mu       sync.Mutex
	samplers map[string]*sampler.Sampler
}

// Addr returns the client's peer address.
func (c *ClientConn) Addr() core.Address { return c.addr }

// Inform writes an unsolicited or request-scoped inform (mid may be 0).
func (c *ClientConn) Inform(mid int, name string, args ...interface{}) error {
	msg, err := core.NewInform(name, mid, args...)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(msg)
}

func (c *ClientConn) logError(se *core.SyntaxError) {
	ts := core.Now()
	msg, err := core.NewInform("log", 0, "error", ts, "katcp", se.Error())
	if err != nil {
		return
	}
	c.conn.WriteMessage(msg)
}

func (c *ClientConn) setSampler(sensorName string, smp *sampler.Sampler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, exists := c.samplers[sensorName]; exists {
		old.Stop()
	}
	c.samplers[sensorName] = smp
}

func (c *ClientConn) stopAllSamplers() {
	c.mu.Lock()
	samplers := make([]*sampler.Sampler, 0, len(c.samplers))
	for _, smp := range c.samplers {
		samplers = append(samplers, smp)
	}
	c.samplers = make(map[string]*sampler.Sampler)
	c.mu.Unlock()
	for _, smp := range samplers {
		smp.Stop()
	}
}
