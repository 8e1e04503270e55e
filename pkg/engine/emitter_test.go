package engine //nolint:testpackage // internal white-box tests need access to unexported fields

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/erichter2018/MosaicTools-sub001/pkg/protocol"
)

// shortSockPath returns a short /tmp socket path safe for macOS (108 char limit).
func shortSockPath(t *testing.T, name string) string {
	t.Helper()
	p := fmt.Sprintf("/tmp/mosaic-em-%s-%d.sock", name, time.Now().UnixNano())
	t.Cleanup(func() { _ = os.Remove(p) })
	return p
}

// newSubscriber attaches a pipe subscriber and returns a scanner over the
// messages the emitter writes to it.
func newSubscriber(t *testing.T, e *Emitter, id string) *bufio.Scanner {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { _ = client.Close(); _ = server.Close() })
	e.Subscribe(id, server)
	return bufio.NewScanner(client)
}

func TestEmitter_PublishDataOnlyOnChange(t *testing.T) {
	e := NewEmitter("", testLogger())

	d := protocol.StudyData{Accession: "ACC1", Description: "CT CHEST WO"}
	if !e.PublishData(d) {
		t.Fatal("first publish must send")
	}

	// Identical snapshot: suppressed even though the timestamp differs.
	if e.PublishData(protocol.StudyData{Accession: "ACC1", Description: "CT CHEST WO"}) {
		t.Fatal("identical snapshot must be suppressed")
	}

	// Any field change republishes.
	if !e.PublishData(protocol.StudyData{Accession: "ACC1", Description: "CT CHEST WO", Drafted: true}) {
		t.Fatal("changed snapshot must send")
	}
}

func TestEmitter_ResetDataForcesRepublish(t *testing.T) {
	e := NewEmitter("", testLogger())
	d := protocol.StudyData{Accession: "ACC1"}

	e.PublishData(d)
	e.ResetData()
	if !e.PublishData(protocol.StudyData{Accession: "ACC1"}) {
		t.Fatal("publish after ResetData must send")
	}
}

func TestEmitter_SubscriberReceivesStudyData(t *testing.T) {
	e := NewEmitter("", testLogger())
	scanner := newSubscriber(t, e, "client-1")

	go e.PublishData(protocol.StudyData{Accession: "ACC1", Drafted: true})

	if !scanner.Scan() {
		t.Fatalf("no message received: %v", scanner.Err())
	}
	var got protocol.StudyData
	if err := json.Unmarshal(scanner.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != protocol.TypeStudyData || got.Accession != "ACC1" || !got.Drafted {
		t.Fatalf("unexpected message: %+v", got)
	}
	if got.Timestamp == "" {
		t.Fatal("timestamp must be stamped")
	}
}

func TestEmitter_PublishEventBroadcastsToSubscribers(t *testing.T) {
	e := NewEmitter("", testLogger())
	scanner := newSubscriber(t, e, "client-1")

	go e.PublishEvent(Event{
		Type:           EventStudyEnded,
		Accession:      "ACC1",
		Classification: ClassSigned,
		Critical:       true,
	})

	if !scanner.Scan() {
		t.Fatalf("no message received: %v", scanner.Err())
	}
	var got protocol.StudyEvent
	if err := json.Unmarshal(scanner.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != protocol.TypeStudyEvent || got.Kind != protocol.EventKindSigned ||
		got.Accession != "ACC1" || !got.HasCritical {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestEmitter_DeadSubscriberIsDropped(t *testing.T) {
	e := NewEmitter("", testLogger())

	client, server := net.Pipe()
	e.Subscribe("dead", server)
	_ = client.Close()
	_ = server.Close()

	// Write to the closed pipe fails; the subscriber is removed.
	e.PublishData(protocol.StudyData{Accession: "ACC1"})
	if e.Subscribers() != 0 {
		t.Fatalf("dead subscriber not dropped, %d remain", e.Subscribers())
	}
}

func TestEmitter_StalledSubscriberDoesNotBlockPublish(t *testing.T) {
	e := NewEmitter("", testLogger())
	e.writeTimeout = 50 * time.Millisecond

	// A subscriber that never reads: a pipe has no buffer, so the write
	// blocks until the deadline expires.
	client, server := net.Pipe()
	t.Cleanup(func() { _ = client.Close(); _ = server.Close() })
	e.Subscribe("stalled", server)

	done := make(chan bool, 1)
	go func() { done <- e.PublishData(protocol.StudyData{Accession: "ACC1"}) }()

	select {
	case sent := <-done:
		if !sent {
			t.Fatal("publish must still report a send")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a stalled subscriber")
	}
	if e.Subscribers() != 0 {
		t.Fatalf("stalled subscriber not dropped, %d remain", e.Subscribers())
	}

	// The emitter stays usable afterwards.
	e.ResetData()
	if !e.PublishData(protocol.StudyData{Accession: "ACC1"}) {
		t.Fatal("emitter wedged after dropping the stalled subscriber")
	}
}

func TestEmitter_LegacySignalDatagram(t *testing.T) {
	path := shortSockPath(t, "legacy")
	addr, err := net.ResolveUnixAddr("unixgram", path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	consumer, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		t.Fatalf("listen unixgram: %v", err)
	}
	defer func() { _ = consumer.Close() }()

	e := NewEmitter(path, testLogger())
	defer e.Close()

	e.PublishEvent(Event{
		Type:           EventStudyEnded,
		Accession:      "ACC9",
		Classification: ClassUnsigned,
		Critical:       true,
	})

	_ = consumer.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, err := consumer.Read(buf)
	if err != nil {
		t.Fatalf("read datagram: %v", err)
	}
	got := string(buf[:n])
	want := "STUDY_CLOSED_UNSIGNED_CRITICAL:ACC9"
	if got != want {
		t.Fatalf("legacy signal = %q, want %q", got, want)
	}
}

func TestEmitter_MissingLegacyConsumerIsIgnored(t *testing.T) {
	e := NewEmitter(shortSockPath(t, "absent"), testLogger())
	defer e.Close()

	// Nobody bound the socket; the send must not error or panic.
	e.PublishEvent(Event{
		Type:           EventStudyEnded,
		Accession:      "ACC1",
		Classification: ClassSigned,
	})
}
