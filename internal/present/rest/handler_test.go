package rest

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/quillsocial/quill"
	"github.com/quillsocial/quill/internal/config"
)

// fakeRealtime feeds events to sessions and records when its context ends.
type fakeRealtime struct {
	events chan quill.NoticeEvent
	done   chan struct{}
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{
		events: make(chan quill.NoticeEvent),
		done:   make(chan struct{}),
	}
}

func (f *fakeRealtime) Realtime(ctx context.Context, output chan<- quill.NoticeEvent) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-f.events:
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func TestRealtimeSessionDeliversAndEndsOnDisconnect(t *testing.T) {
	source := newFakeRealtime()

	e := echo.New()
	h := NewHandler(config.Site{FQDN: "quill.example.net"}, nil, nil, source)
	h.RegisterRoutes(e)

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/realtime"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	source.events <- quill.NoticeEvent{NoticeID: 7, Verb: "post"}

	var got quill.NoticeEvent
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got.NoticeID != 7 || got.Verb != "post" {
		t.Fatalf("unexpected event: %+v", got)
	}

	// the session and its event source must wind down with the client
	conn.Close()
	select {
	case <-source.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not end after client disconnect")
	}
}
