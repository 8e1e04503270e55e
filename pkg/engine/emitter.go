package engine

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erichter2018/MosaicTools-sub001/pkg/protocol"
)

// subscriberWriteTimeout bounds every channel-B write. A consumer that
// stops reading fills its socket buffer; without a deadline the write would
// block the reconciliation tick indefinitely.
const subscriberWriteTimeout = 2 * time.Second

// Emitter publishes lifecycle events and data snapshots to the two
// downstream channels: the legacy signal socket (channel A) and the
// structured subscriber connections (channel B). All sends are best-effort;
// a dead or stalled consumer never blocks or fails the reconciliation loop.
type Emitter struct {
	log        *zap.Logger
	legacyPath string

	mu          sync.Mutex
	legacyConn  net.Conn
	subscribers map[string]*subscriber
	lastData    *protocol.StudyData

	writeTimeout time.Duration
	nowFunc      func() time.Time
}

type subscriber struct {
	id   string
	conn net.Conn
	enc  *json.Encoder
}

// NewEmitter creates an Emitter. legacyPath is the unixgram socket the
// legacy consumer binds; empty disables channel A.
func NewEmitter(legacyPath string, log *zap.Logger) *Emitter {
	return &Emitter{
		log:          log,
		legacyPath:   legacyPath,
		subscribers:  make(map[string]*subscriber),
		writeTimeout: subscriberWriteTimeout,
		nowFunc:      time.Now,
	}
}

// Subscribe registers a channel-B consumer. The caller keeps ownership of
// the connection's read side; the emitter only writes.
func (e *Emitter) Subscribe(id string, conn net.Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers[id] = &subscriber{id: id, conn: conn, enc: json.NewEncoder(conn)}
}

// Unsubscribe removes a channel-B consumer.
func (e *Emitter) Unsubscribe(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subscribers, id)
}

// Subscribers returns the number of connected channel-B consumers.
func (e *Emitter) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subscribers)
}

// PublishData sends a study_data message if any field changed since the
// last published snapshot. Change detection is structural equality, not
// unconditional republish. Returns whether a publish happened.
func (e *Emitter) PublishData(d protocol.StudyData) bool {
	d.Type = protocol.TypeStudyData
	if d.Timestamp == "" {
		d.Timestamp = e.nowFunc().UTC().Format(time.RFC3339)
	}

	e.mu.Lock()
	if e.lastData != nil && e.lastData.EqualIgnoringTimestamp(d) {
		e.mu.Unlock()
		return false
	}
	e.lastData = &d
	e.broadcastLocked(d)
	e.mu.Unlock()
	return true
}

// ResetData clears the last-published snapshot so the next PublishData
// always sends. Used by the resync action.
func (e *Emitter) ResetData() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastData = nil
}

// PublishEvent sends a classified study_event on channel B and the matching
// fixed code on channel A. At-most-once delivery per transition is the
// lifecycle tracker's contract; the emitter publishes whatever it is given.
func (e *Emitter) PublishEvent(ev Event) {
	msg := protocol.StudyEvent{
		Type:        protocol.TypeStudyEvent,
		Kind:        string(ev.Classification),
		Accession:   ev.Accession,
		HasCritical: ev.Critical,
	}

	e.mu.Lock()
	e.broadcastLocked(msg)
	e.mu.Unlock()

	code := protocol.LegacySignal(string(ev.Classification), ev.Critical)
	e.sendLegacy(protocol.FormatSignal(code, ev.Accession))
}

// broadcastLocked writes one JSON line to every subscriber, dropping any
// whose connection errors or whose write misses the deadline. Caller holds
// e.mu, so every write must be bounded: a blocked subscriber would otherwise
// wedge the publish path and every other emitter method with it.
func (e *Emitter) broadcastLocked(v any) {
	for id, sub := range e.subscribers {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(e.writeTimeout))
		if err := sub.enc.Encode(v); err != nil {
			e.log.Info("dropping subscriber", zap.String("client_id", id), zap.Error(err))
			delete(e.subscribers, id)
			_ = sub.conn.Close()
			continue
		}
		// The control plane writes ACKs on the same connection; leave no
		// stale deadline behind.
		_ = sub.conn.SetWriteDeadline(time.Time{})
	}
}

// sendLegacy delivers one datagram to the legacy consumer. The consumer may
// not be running; failures are logged at debug and otherwise ignored.
func (e *Emitter) sendLegacy(body string) {
	if e.legacyPath == "" {
		return
	}

	e.mu.Lock()
	conn := e.legacyConn
	if conn == nil {
		var err error
		conn, err = net.Dial("unixgram", e.legacyPath)
		if err != nil {
			e.mu.Unlock()
			e.log.Debug("legacy consumer unavailable", zap.Error(err))
			return
		}
		e.legacyConn = conn
	}
	e.mu.Unlock()

	if _, err := conn.Write([]byte(body)); err != nil {
		e.log.Debug("legacy send failed", zap.Error(err))
		e.mu.Lock()
		_ = conn.Close()
		e.legacyConn = nil
		e.mu.Unlock()
	}
}

// Close releases the legacy socket connection.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.legacyConn != nil {
		_ = e.legacyConn.Close()
		e.legacyConn = nil
	}
}
