package messenger

import (
	"log/slog"
	"net"

	"github.com/hackerzhuli/editor-messaging-service/internal/protocol"
)

// sendFunc transmits one best-effort datagram to a client.
type sendFunc func(addr *net.UDPAddr, kind protocol.Kind, payload string)

// dispatcher routes one decoded message to its handler. Handlers run on
// the tick goroutine only; their side effects are confined to one reply
// send, host state mutations and at most one delegation call.
type dispatcher struct {
	logger *slog.Logger
	host   Host
	tests  TestRunner
	send   sendFunc

	// stopSession performs an orderly teardown of the messaging session.
	// Entering play state shuts messaging down first.
	stopSession func()

	handlers map[protocol.Kind]func(*protocol.Message)
}

func newDispatcher(logger *slog.Logger, host Host, tests TestRunner, send sendFunc, stopSession func()) *dispatcher {
	d := &dispatcher{
		logger:      logger,
		host:        host,
		tests:       tests,
		send:        send,
		stopSession: stopSession,
	}

	d.handlers = map[protocol.Kind]func(*protocol.Message){
		protocol.KindPing:             d.handlePing,
		protocol.KindPlay:             d.handlePlay,
		protocol.KindStop:             d.handleStop,
		protocol.KindPause:            d.handlePause,
		protocol.KindUnpause:          d.handleUnpause,
		protocol.KindRefresh:          d.handleRefresh,
		protocol.KindVersion:          d.handleVersion,
		protocol.KindProjectPath:      d.handleProjectPath,
		protocol.KindExecuteTests:     d.handleExecuteTests,
		protocol.KindRetrieveTestList: d.handleRetrieveTestList,
		protocol.KindShowUsage:        d.handleShowUsage,
	}

	return d
}

// dispatch runs the handler for msg. Legacy and unrecognized kinds are
// no-ops kept for wire compatibility. A panicking handler must not stop
// the tick from draining the rest of the queue.
func (d *dispatcher) dispatch(msg *protocol.Message) {
	handler, ok := d.handlers[msg.Kind]
	if !ok {
		d.logger.Debug("Ignoring message without handler",
			slog.String("kind", msg.Kind.String()),
			slog.String("origin", msg.Origin.String()),
		)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Message handler panicked",
				slog.String("kind", msg.Kind.String()),
				slog.String("origin", msg.Origin.String()),
				slog.Any("panic", r),
			)
		}
	}()

	handler(msg)
}

func (d *dispatcher) handlePing(msg *protocol.Message) {
	d.send(msg.Origin, protocol.KindPong, "")
}

func (d *dispatcher) handlePlay(msg *protocol.Message) {
	d.logger.Info("Play requested, stopping messaging session",
		slog.String("origin", msg.Origin.String()),
	)
	d.stopSession()
	d.host.SetPlaying(true)
}

func (d *dispatcher) handleStop(msg *protocol.Message) {
	d.host.SetPlaying(false)
}

func (d *dispatcher) handlePause(msg *protocol.Message) {
	d.host.SetPaused(true)
}

func (d *dispatcher) handleUnpause(msg *protocol.Message) {
	d.host.SetPaused(false)
}

func (d *dispatcher) handleRefresh(msg *protocol.Message) {
	if d.host.IsSafeMode() {
		d.logger.Debug("Skipping refresh, host is in safe mode")
		return
	}

	switch d.host.AutoRefreshPolicy() {
	case RefreshDisabled:
		d.logger.Debug("Skipping refresh, auto-refresh is disabled")
	case RefreshOutsidePlay:
		if d.host.IsPlaying() {
			d.logger.Debug("Skipping refresh, host is playing")
			return
		}
		d.host.RequestRefresh()
	case RefreshAlways:
		d.host.RequestRefresh()
	}
}

func (d *dispatcher) handleVersion(msg *protocol.Message) {
	d.send(msg.Origin, protocol.KindVersion, d.host.Version())
}

func (d *dispatcher) handleProjectPath(msg *protocol.Message) {
	d.send(msg.Origin, protocol.KindProjectPath, d.host.ProjectPath())
}

func (d *dispatcher) handleExecuteTests(msg *protocol.Message) {
	d.tests.ExecuteTests(msg.Payload)
}

func (d *dispatcher) handleRetrieveTestList(msg *protocol.Message) {
	d.tests.RetrieveTestList(msg.Payload)
}

func (d *dispatcher) handleShowUsage(msg *protocol.Message) {
	d.tests.ShowUsage(msg.Payload)
}
