package messenger

import (
	"bufio"
	"context"
	"io"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/armpathfinder/logging"
)

// Event types carried in EventName messages.
const (
	EventConnect    = "Connect"
	EventListen     = "Listen"
	EventUnlisten   = "Unlisten"
	EventDisconnect = "Disconnect"
	EventTimeout    = "Timeout"
	EventError      = "Error"
)

const (
	defaultReadTimeout = 5 * time.Second
	defaultQueueSize   = 256
)

// BrokerConfig tunes a Broker.
type BrokerConfig struct {
	// ReadTimeout drops a client that has not sent a heartbeat for this long.
	ReadTimeout time.Duration
	// QueueSize bounds the messages waiting to be written to one client.
	QueueSize int
}

// Broker accepts messenger clients and forwards each message to every client
// listening to its name.
type Broker struct {
	cfg    BrokerConfig
	logger logging.Logger

	mu      sync.Mutex
	clients map[*remoteClient]struct{}
}

// NewBroker returns a broker with no clients.
func NewBroker(cfg BrokerConfig, logger logging.Logger) *Broker {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Broker{
		cfg:     cfg,
		logger:  logger,
		clients: map[*remoteClient]struct{}{},
	}
}

// ListenAndServe listens on address and serves until ctx is done.
func (b *Broker) ListenAndServe(ctx context.Context, address string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return errors.Wrapf(err, "listening on %q", address)
	}
	b.logger.Infow("messenger broker listening", "address", ln.Addr().String())
	return b.Serve(ctx, ln)
}

// Serve accepts clients on ln until ctx is done, then closes ln and every client.
func (b *Broker) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		goutils.UncheckedError(ln.Close())
		return nil
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return errors.Wrap(err, "accepting messenger client")
			}
			g.Go(func() error {
				b.serveClient(gctx, conn)
				return nil
			})
		}
	})
	return g.Wait()
}

// ClientNames returns the names of the connected clients, sorted.
func (b *Broker) ClientNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := lo.Map(lo.Keys(b.clients), func(client *remoteClient, _ int) string { return client.name })
	sort.Strings(names)
	return names
}

// Listeners returns the names of the clients a message called name would reach, sorted.
func (b *Broker) Listeners(name string) []string {
	var names []string
	for _, client := range b.clientsListeningTo(name) {
		names = append(names, client.name)
	}
	sort.Strings(names)
	return names
}

func (b *Broker) clientsListeningTo(name string) []*remoteClient {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo.Filter(lo.Keys(b.clients), func(client *remoteClient, _ int) bool {
		return client.listensTo(name)
	})
}

func (b *Broker) dispatch(msg Message) {
	for _, client := range b.clientsListeningTo(msg.Name) {
		if !client.enqueue(msg) {
			b.logger.Warnw("client queue full, dropping message", "client", client.name, "message", msg.Name)
		}
	}
}

func (b *Broker) broadcastEvent(eventType, name, descriptor string) {
	b.logger.Infow("messenger event", "type", eventType, "client", name, "descriptor", descriptor)
	msg, err := NewMessageBuilder().
		AddString(eventType).
		AddString(name).
		AddString(descriptor).
		Build(EventName)
	if err != nil {
		b.logger.Errorw("failed to encode event", "type", eventType, "error", err)
		return
	}
	b.dispatch(msg)
}

func (b *Broker) serveClient(ctx context.Context, conn net.Conn) {
	defer goutils.UncheckedErrorFunc(conn.Close)

	reader := bufio.NewReader(conn)
	if err := conn.SetReadDeadline(time.Now().Add(b.cfg.ReadTimeout)); err != nil {
		b.logger.Debugw("failed to set read deadline", "error", err)
		return
	}
	name, err := ReadIdentity(reader)
	if err != nil {
		b.logger.Debugw("client did not identify", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}

	client := &remoteClient{
		name:     name,
		out:      make(chan Message, b.cfg.QueueSize),
		exact:    map[string]struct{}{},
		prefixes: map[string]struct{}{},
	}
	b.mu.Lock()
	b.clients[client] = struct{}{}
	b.mu.Unlock()
	b.broadcastEvent(EventConnect, name, "")

	clientCtx, cancel := context.WithCancel(ctx)
	var writerDone sync.WaitGroup
	writerDone.Add(1)
	goutils.PanicCapturingGo(func() {
		defer writerDone.Done()
		b.writeLoop(clientCtx, conn, client)
	})
	stop := context.AfterFunc(clientCtx, func() {
		goutils.UncheckedError(conn.Close())
	})

	eventType, descriptor := b.readLoop(conn, reader, client)

	b.mu.Lock()
	delete(b.clients, client)
	b.mu.Unlock()
	cancel()
	stop()
	writerDone.Wait()
	if ctx.Err() == nil {
		b.broadcastEvent(eventType, name, descriptor)
	}
}

// readLoop handles one client's frames until it leaves, returning the event describing
// how it left.
func (b *Broker) readLoop(conn net.Conn, reader *bufio.Reader, client *remoteClient) (string, string) {
	if err := conn.SetReadDeadline(time.Now().Add(b.cfg.ReadTimeout)); err != nil {
		return EventError, err.Error()
	}
	for {
		msg, err := ReadMessage(reader)
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				return EventTimeout, ""
			case errors.Is(err, io.EOF):
				return EventDisconnect, ""
			default:
				b.logger.Debugw("client read failed", "client", client.name, "error", err)
				return EventError, ""
			}
		}

		switch msg.Name {
		case HeartbeatName:
			if err := conn.SetReadDeadline(time.Now().Add(b.cfg.ReadTimeout)); err != nil {
				return EventError, ""
			}
			client.enqueue(msg)
		case ListenName, UnlistenName:
			target, err := NewMessageReader(msg.Data).ReadString()
			if err != nil {
				b.logger.Warnw("malformed listen request", "client", client.name, "error", err)
				continue
			}
			if msg.Name == ListenName {
				client.listen(target)
				b.broadcastEvent(EventListen, client.name, target)
			} else {
				client.unlisten(target)
				b.broadcastEvent(EventUnlisten, client.name, target)
			}
		case DisconnectName:
			return EventDisconnect, ""
		default:
			b.logger.Debugw("message", "client", client.name, "message", msg.Name, "size", len(msg.Data))
			b.dispatch(msg)
		}
	}
}

func (b *Broker) writeLoop(ctx context.Context, conn net.Conn, client *remoteClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-client.out:
			if err := WriteMessage(conn, msg); err != nil {
				b.logger.Debugw("client write failed", "client", client.name, "error", err)
				// unblocks the read loop
				goutils.UncheckedError(conn.Close())
				return
			}
		}
	}
}

type remoteClient struct {
	name string
	out  chan Message

	mu       sync.Mutex
	exact    map[string]struct{}
	prefixes map[string]struct{}
}

func (rc *remoteClient) listen(pattern string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		rc.prefixes[prefix] = struct{}{}
		return
	}
	rc.exact[pattern] = struct{}{}
}

// unlisten removes pattern both as an exact name and as a wildcard.
func (rc *remoteClient) unlisten(pattern string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.exact, pattern)
	delete(rc.prefixes, strings.TrimSuffix(pattern, "*"))
}

func (rc *remoteClient) listensTo(name string) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if _, ok := rc.exact[name]; ok {
		return true
	}
	for prefix := range rc.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// enqueue reports false when the client's queue is full.
func (rc *remoteClient) enqueue(msg Message) bool {
	select {
	case rc.out <- msg:
		return true
	default:
		return false
	}
}
