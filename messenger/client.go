package messenger

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/armpathfinder/logging"
)

var (
	// InitialReconnectWait is the wait before the first reconnect attempt.
	// public for tests.
	InitialReconnectWait = 100 * time.Millisecond
	// ReconnectExponentialFactor is the factor by which the reconnect wait grows.
	ReconnectExponentialFactor = 2
)

var (
	// ErrClientClosed is returned by operations on a closed client.
	ErrClientClosed = errors.New("messenger client is closed")
	// ErrNotConnected is returned when sending while the client is reconnecting.
	ErrNotConnected = errors.New("messenger client is not connected")

	errHeartbeatTimeout = errors.New("no heartbeat from messenger broker")
)

// ClientConfig describes how a Client reaches the broker.
type ClientConfig struct {
	Address string
	Name    string
	// HeartbeatInterval defaults to one second.
	HeartbeatInterval time.Duration
	// HeartbeatTimeout forces a reconnect when the broker has not echoed a heartbeat for
	// this long. Zero disables the check.
	HeartbeatTimeout time.Duration
	// ReconnectMaxWait caps the reconnect backoff. It defaults to ten seconds.
	ReconnectMaxWait time.Duration
	Clock            clock.Clock
}

// Handler receives a message on the client's read goroutine. It must not block.
type Handler func(msg Message)

type handlerEntry struct {
	pattern string
	handler Handler
}

// Client is a connection to a messenger broker that reconnects on its own. Listens
// registered on the client survive reconnects.
type Client struct {
	cfg    ClientConfig
	clock  clock.Clock
	logger logging.Logger

	mu          sync.Mutex
	conn        net.Conn
	connectedCh chan struct{}
	handlers    []handlerEntry
	listening   []string

	writeMu       sync.Mutex
	connected     atomic.Bool
	closed        atomic.Bool
	lastHeartbeat atomic.Time

	cancelCtx               context.Context
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewClient starts a client that connects to cfg.Address in the background.
func NewClient(cfg ClientConfig, logger logging.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, goutils.NewConfigValidationFieldRequiredError("messenger", "address")
	}
	if cfg.Name == "" {
		return nil, goutils.NewConfigValidationFieldRequiredError("messenger", "name")
	}
	if len(cfg.Name) > MaxNameLength {
		return nil, errors.Wrap(ErrNameTooLong, "client name")
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = time.Second
	}
	if cfg.ReconnectMaxWait <= 0 {
		cfg.ReconnectMaxWait = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:         cfg,
		clock:       cfg.Clock,
		logger:      logger,
		connectedCh: make(chan struct{}),
		cancelCtx:   cancelCtx,
		cancel:      cancel,
	}
	c.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(c.run, c.activeBackgroundWorkers.Done)
	return c, nil
}

// Name returns the name the client identifies with.
func (c *Client) Name() string {
	return c.cfg.Name
}

// IsConnected reports whether the client currently has a broker connection.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// WaitConnected blocks until the client is connected or ctx is done.
func (c *Client) WaitConnected(ctx context.Context) error {
	c.mu.Lock()
	ch := c.connectedCh
	c.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.cancelCtx.Done():
		return ErrClientClosed
	case <-ch:
		return nil
	}
}

// Listen registers a handler for name. A name ending in '*' matches every message
// whose name starts with the part before it.
func (c *Client) Listen(name string, handler Handler) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if name == "" {
		return errors.New("cannot listen to an empty name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handlerEntry{pattern: name, handler: handler})
	for _, existing := range c.listening {
		if existing == name {
			return nil
		}
	}
	c.listening = append(c.listening, name)
	if c.conn == nil {
		return nil
	}
	return c.sendControl(c.conn, ListenName, name)
}

// Unlisten removes every handler registered for name.
func (c *Client) Unlisten(name string) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.handlers[:0]
	for _, entry := range c.handlers {
		if entry.pattern != name {
			kept = append(kept, entry)
		}
	}
	c.handlers = kept
	for i, existing := range c.listening {
		if existing == name {
			c.listening = append(c.listening[:i], c.listening[i+1:]...)
			break
		}
	}
	if c.conn == nil {
		return nil
	}
	return c.sendControl(c.conn, UnlistenName, name)
}

// Send publishes a message.
func (c *Client) Send(name string, data []byte) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return c.write(conn, Message{Name: name, Data: data})
}

// Close tells the broker the client is leaving and stops reconnecting.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		err = multierr.Combine(
			c.write(conn, Message{Name: DisconnectName}),
			conn.Close(),
		)
	}
	c.cancel()
	c.activeBackgroundWorkers.Wait()
	return err
}

func (c *Client) run() {
	ctx := c.cancelCtx
	nextWait := InitialReconnectWait
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.connect(ctx)
		if err == nil {
			nextWait = InitialReconnectWait
			err = c.serve(ctx, conn)
			if ctx.Err() != nil {
				return
			}
			c.logger.Warnw("lost connection to messenger", "address", c.cfg.Address, "error", err)
		} else {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debugw("failed to connect to messenger", "address", c.cfg.Address, "error", err, "retry_in", nextWait)
		}

		timer := c.clock.Timer(nextWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		nextWait *= time.Duration(ReconnectExponentialFactor)
		if nextWait > c.cfg.ReconnectMaxWait {
			nextWait = c.cfg.ReconnectMaxWait
		}
	}
}

// connect dials the broker, identifies, and replays every listen before the connection
// becomes visible to Send.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
	if err != nil {
		return nil, err
	}
	if err := WriteIdentity(conn, c.cfg.Name); err != nil {
		return nil, multierr.Combine(err, conn.Close())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range c.listening {
		if err := c.sendControl(conn, ListenName, name); err != nil {
			return nil, multierr.Combine(err, conn.Close())
		}
	}
	c.conn = conn
	c.lastHeartbeat.Store(c.clock.Now())
	c.connected.Store(true)
	close(c.connectedCh)
	c.logger.Infow("connected to messenger", "address", c.cfg.Address, "name", c.cfg.Name)
	return conn, nil
}

func (c *Client) serve(ctx context.Context, conn net.Conn) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		goutils.UncheckedError(conn.Close())
		return nil
	})
	g.Go(func() error {
		return c.readLoop(conn)
	})
	g.Go(func() error {
		return c.heartbeatLoop(gctx, conn)
	})
	err := g.Wait()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.connected.Store(false)
		c.connectedCh = make(chan struct{})
	}
	c.mu.Unlock()
	return err
}

func (c *Client) readLoop(conn net.Conn) error {
	reader := bufio.NewReader(conn)
	for {
		msg, err := ReadMessage(reader)
		if err != nil {
			return errors.Wrap(err, "reading from messenger")
		}
		if msg.Name == HeartbeatName {
			c.lastHeartbeat.Store(c.clock.Now())
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) heartbeatLoop(ctx context.Context, conn net.Conn) error {
	ticker := c.clock.Ticker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := c.write(conn, Message{Name: HeartbeatName}); err != nil {
			return errors.Wrap(err, "sending heartbeat")
		}
		if c.cfg.HeartbeatTimeout > 0 {
			if silent := c.clock.Since(c.lastHeartbeat.Load()); silent > c.cfg.HeartbeatTimeout {
				return errors.Wrapf(errHeartbeatTimeout, "for %v", silent)
			}
		}
	}
}

func (c *Client) dispatch(msg Message) {
	c.mu.Lock()
	var matched []Handler
	for _, entry := range c.handlers {
		if matches(entry.pattern, msg.Name) {
			matched = append(matched, entry.handler)
		}
	}
	c.mu.Unlock()

	for _, handler := range matched {
		handler(msg)
	}
}

// sendControl must be called with c.mu held.
func (c *Client) sendControl(conn net.Conn, name, target string) error {
	msg, err := NewMessageBuilder().AddString(target).Build(name)
	if err != nil {
		return err
	}
	return c.write(conn, msg)
}

func (c *Client) write(conn net.Conn, msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteMessage(conn, msg)
}

// matches reports whether a listen pattern covers name.
func matches(pattern, name string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(name, prefix)
	}
	return pattern == name
}
