package events

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

// pubSub connects a publisher and a subscriber to a fresh server.
func pubSub(t *testing.T, opts ...nats.Option) (*NATSPublisher, *NATSSubscriber) {
	t.Helper()
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	t.Cleanup(func() { pub.Close() })
	sub, err := NewNATSSubscriber(url, opts...)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	t.Cleanup(func() { sub.Close() })
	return pub, sub
}

func receive(t *testing.T, ch <-chan []byte) *model.Event {
	t.Helper()
	select {
	case data := <-ch:
		e, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestNATSSubscriber_ReceivesPublishedEvents(t *testing.T) {
	pub, sub := pubSub(t)
	ch, cancel, err := sub.Subscribe(SubjectAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	sent := &model.Event{ID: "ev-1", EventType: "agent.start", AgentName: "editor", WorkflowID: "wf-1"}
	if err := PublishEvent(context.Background(), pub, sent); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}
	pub.conn.Flush()

	got := receive(t, ch)
	if got.ID != "ev-1" || got.AgentName != "editor" || got.WorkflowID != "wf-1" {
		t.Errorf("got %+v", got)
	}
}

func TestNATSSubscriber_TypePrefixSubject(t *testing.T) {
	pub, sub := pubSub(t)
	ch, cancel, err := sub.Subscribe(Subject("script") + ".>")
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	for _, typ := range []string{"video.render.start", "script.generate.start", "workflow.success", "script.generate.success"} {
		if err := PublishEvent(context.Background(), pub, &model.Event{ID: typ, EventType: typ}); err != nil {
			t.Fatalf("PublishEvent(%s): %v", typ, err)
		}
	}
	pub.conn.Flush()

	for _, want := range []string{"script.generate.start", "script.generate.success"} {
		if got := receive(t, ch); got.EventType != want {
			t.Errorf("got %q, want %q", got.EventType, want)
		}
	}
	select {
	case data := <-ch:
		t.Errorf("unexpected extra message %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNATSSubscriber_CancelClosesChannel(t *testing.T) {
	pub, sub := pubSub(t)
	ch, cancel, err := sub.Subscribe(SubjectAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	// Leave messages buffered so cancel has to drain them.
	for i := 0; i < 10; i++ {
		_ = PublishEvent(context.Background(), pub, &model.Event{ID: "x", EventType: "system.retry"})
	}
	pub.conn.Flush()
	time.Sleep(50 * time.Millisecond)

	cancel()
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestNATSSubscriber_ImplementsSubscriber(t *testing.T) {
	var _ Subscriber = (*NATSSubscriber)(nil)
}

func TestNATSSubscriber_AcceptsHandlerOptions(t *testing.T) {
	_, sub := pubSub(t,
		nats.DisconnectErrHandler(func(*nats.Conn, error) {}),
		nats.ReconnectHandler(func(*nats.Conn) {}),
	)
	if !sub.conn.IsConnected() {
		t.Fatal("expected subscriber to be connected")
	}
}
