package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/hackerzhuli/editor-messaging-service/internal/metrics"
	"github.com/hackerzhuli/editor-messaging-service/internal/protocol"
)

// ErrPortUnavailable reports that the OS refused the messaging port bind.
// The session does not retry within the same process lifetime; the next
// process start derives the same port and tries again.
var ErrPortUnavailable = errors.New("messaging port unavailable")

// Transport owns the process's single messaging socket. The receive
// goroutine decodes datagrams and hands them to the handler; it never
// touches registry or dispatch state.
type Transport struct {
	logger     *slog.Logger
	metrics    *metrics.Metrics
	handler    func(*protocol.Message)
	bufferSize int

	mu     sync.Mutex
	conn   *net.UDPConn
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// newTransport creates an unbound transport. The handler is invoked once
// per decoded datagram from the receive goroutine and must not block.
func newTransport(logger *slog.Logger, m *metrics.Metrics, bufferSize int, handler func(*protocol.Message)) *Transport {
	ctx, cancel := context.WithCancel(context.Background())

	return &Transport{
		logger:     logger,
		metrics:    m,
		handler:    handler,
		bufferSize: bufferSize,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Bind opens the UDP socket and starts the receive goroutine. A refused
// bind returns ErrPortUnavailable; there is no retry loop.
func (t *Transport) Bind(address string, port int) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		return fmt.Errorf("failed to resolve messaging address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPortUnavailable, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("transport already closed")
	}
	t.conn = conn
	t.mu.Unlock()

	if err := conn.SetReadBuffer(t.bufferSize); err != nil {
		t.logger.Warn("Failed to set UDP read buffer size",
			slog.Int("buffer_size", t.bufferSize),
			slog.String("error", err.Error()),
		)
	}

	t.logger.Info("Messaging socket bound",
		slog.String("address", conn.LocalAddr().String()),
	)

	t.wg.Add(1)
	go t.receiveLoop(conn)

	return nil
}

// LocalAddr returns the bound socket address, or nil while unbound.
func (t *Transport) LocalAddr() *net.UDPAddr {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	addr, _ := t.conn.LocalAddr().(*net.UDPAddr)
	return addr
}

// Send transmits one datagram to addr, best effort. It silently no-ops
// when the transport was never bound; send failures are counted and
// logged, never surfaced and never retried.
func (t *Transport) Send(addr *net.UDPAddr, kind protocol.Kind, payload string) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil || addr == nil {
		return
	}

	data, err := protocol.Encode(kind, payload)
	if err != nil {
		t.logger.Warn("Refusing to send unencodable message",
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	if _, err := conn.WriteToUDP(data, addr); err != nil {
		t.metrics.RecordSendError()
		t.logger.Debug("Send failed",
			slog.String("remote_addr", addr.String()),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	t.metrics.RecordMessageSent()
}

// Close stops the receive goroutine and releases the socket. Idempotent,
// and safe to call on a transport that never bound.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	t.cancel()
	if conn != nil {
		if err := conn.Close(); err != nil {
			t.logger.Warn("Error closing messaging socket", slog.String("error", err.Error()))
		}
	}

	t.wg.Wait()
}

// receiveLoop reads datagrams until the transport closes. The read
// deadline keeps the loop responsive to shutdown without busy-waiting.
func (t *Transport) receiveLoop(conn *net.UDPConn) {
	defer t.wg.Done()

	buffer := make([]byte, t.bufferSize)

	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			t.logger.Error("Failed to set read deadline", slog.String("error", err.Error()))
			continue
		}

		n, remoteAddr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}

			select {
			case <-t.ctx.Done():
				return
			default:
				t.logger.Error("Failed to read datagram", slog.String("error", err.Error()))
				continue
			}
		}

		kind, payload, err := protocol.Decode(buffer[:n])
		if err != nil {
			t.metrics.RecordDecodeError()
			t.logger.Warn("Failed to decode datagram",
				slog.String("remote_addr", remoteAddr.String()),
				slog.Int("datagram_size", n),
				slog.String("error", err.Error()),
			)
			continue
		}

		t.metrics.RecordMessageReceived()
		t.handler(&protocol.Message{Kind: kind, Origin: remoteAddr, Payload: payload})
	}
}
