package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Default values for the transport settings.
const (
	DefaultDialTimeout    = 5 * time.Second
	DefaultIOTimeout      = 10 * time.Second
	DefaultMaxMessageSize = 32 << 20
)

// SendError is returned when a message can't be delivered to a peer.
type SendError struct {
	Host string
	Err  error
}

// Error implements the error interface.
func (se *SendError) Error() string {
	return fmt.Sprintf("send to peer[%s]: %s", se.Host, se.Err)
}

// Unwrap returns the underlying error.
func (se *SendError) Unwrap() error {
	return se.Err
}

// Handler is called with every message received. A non nil reply is
// written back on the same connection before it is closed.
type Handler func(ctx context.Context, from string, msg Message) (*Message, error)

// TransportConfig represents the settings for the transport.
type TransportConfig struct {
	DialTimeout    time.Duration
	IOTimeout      time.Duration
	MaxMessageSize int64
	EvHandler      func(v string, args ...any)
}

// Transport exchanges messages with peers over TCP. Every connection carries
// a single message, and optionally a single reply.
type Transport struct {
	dialTimeout    time.Duration
	ioTimeout      time.Duration
	maxMessageSize int64
	evHandler      func(v string, args ...any)
	wg             sync.WaitGroup
}

// NewTransport constructs a transport, zero values in the config are set to
// their default.
func NewTransport(cfg TransportConfig) *Transport {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	t := Transport{
		dialTimeout:    cfg.DialTimeout,
		ioTimeout:      cfg.IOTimeout,
		maxMessageSize: cfg.MaxMessageSize,
		evHandler:      ev,
	}

	if t.dialTimeout <= 0 {
		t.dialTimeout = DefaultDialTimeout
	}
	if t.ioTimeout <= 0 {
		t.ioTimeout = DefaultIOTimeout
	}
	if t.maxMessageSize <= 0 {
		t.maxMessageSize = DefaultMaxMessageSize
	}

	return &t
}

// Listen opens the listener for the specified host.
func (t *Transport) Listen(host string) (net.Listener, error) {
	ln, err := net.Listen("tcp", host)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", host, err)
	}

	return ln, nil
}

// Serve accepts connections until the listener is closed. Each connection is
// handled on its own goroutine. Serve waits for the connections in flight
// before returning.
func (t *Transport) Serve(ctx context.Context, ln net.Listener, handler Handler) error {
	t.evHandler("peer: Serve: started: host[%s]", ln.Addr())
	defer t.evHandler("peer: Serve: completed: host[%s]", ln.Addr())

	defer t.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			t.evHandler("peer: Serve: accept: ERROR: %s", err)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.handle(ctx, conn, handler)
		}()
	}
}

// handle reads the single message of the connection and dispatches it.
func (t *Transport) handle(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	from := conn.RemoteAddr().String()

	if err := conn.SetDeadline(time.Now().Add(t.ioTimeout)); err != nil {
		t.evHandler("peer: handle: from[%s]: deadline: ERROR: %s", from, err)
		return
	}

	msg, err := t.read(conn)
	if err != nil {
		t.evHandler("peer: handle: from[%s]: read: ERROR: %s", from, err)
		return
	}

	reply, err := handler(ctx, from, msg)
	if err != nil {
		t.evHandler("peer: handle: from[%s]: type[%s]: ERROR: %s", from, msg.Type, err)
		return
	}

	if reply == nil {
		return
	}

	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		t.evHandler("peer: handle: from[%s]: reply: ERROR: %s", from, err)
	}
}

// read decodes a single message bounded by the maximum message size.
func (t *Transport) read(r io.Reader) (Message, error) {
	lr := io.LimitReader(r, t.maxMessageSize+1)

	var raw json.RawMessage
	if err := json.NewDecoder(lr).Decode(&raw); err != nil {
		return Message{}, fmt.Errorf("%w: %s", ErrMalformedMessage, err)
	}

	if int64(len(raw)) > t.maxMessageSize {
		return Message{}, fmt.Errorf("%w: exceeds %d bytes", ErrMalformedMessage, t.maxMessageSize)
	}

	return Decode(raw)
}

// =============================================================================

// Dial checks the peer is accepting connections.
func (t *Transport) Dial(ctx context.Context, host string) error {
	conn, err := t.dial(ctx, host)
	if err != nil {
		return err
	}

	return conn.Close()
}

// Send delivers the message to the peer on a new connection.
func (t *Transport) Send(ctx context.Context, host string, msg Message) error {
	conn, err := t.dial(ctx, host)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return &SendError{Host: host, Err: err}
	}

	return nil
}

// Request delivers the message to the peer and waits for the reply. The
// write side of the connection is closed after the message so the peer sees
// the end of the message.
func (t *Transport) Request(ctx context.Context, host string, msg Message) (Message, error) {
	conn, err := t.dial(ctx, host)
	if err != nil {
		return Message{}, err
	}
	defer conn.Close()

	// The deadline bounds a peer that never replies, the context bounds the
	// caller's patience.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Message{}, &SendError{Host: host, Err: err}
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err != nil {
			return Message{}, &SendError{Host: host, Err: err}
		}
	}

	reply, err := t.read(conn)
	if err != nil {
		return Message{}, &SendError{Host: host, Err: err}
	}

	return reply, nil
}

// Broadcast delivers the message to every peer. A peer that fails does not
// stop the delivery to the others. The failures are returned joined.
func (t *Transport) Broadcast(ctx context.Context, peers []Peer, msg Message) error {
	var mu sync.Mutex
	var errs []error

	var wg sync.WaitGroup
	wg.Add(len(peers))

	for _, pr := range peers {
		go func(pr Peer) {
			defer wg.Done()

			if err := t.Send(ctx, pr.Host, msg); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}

			t.evHandler("peer: Broadcast: type[%s]: sent to peer[%s]", msg.Type, pr)
		}(pr)
	}

	wg.Wait()

	return errors.Join(errs...)
}

// dial opens a connection bounded by the dial timeout and sets the deadline
// for the exchange.
func (t *Transport) dial(ctx context.Context, host string) (net.Conn, error) {
	d := net.Dialer{Timeout: t.dialTimeout}

	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, &SendError{Host: host, Err: err}
	}

	if err := conn.SetDeadline(time.Now().Add(t.ioTimeout)); err != nil {
		conn.Close()
		return nil, &SendError{Host: host, Err: err}
	}

	return conn, nil
}
