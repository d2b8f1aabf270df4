package vizserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/bobbel"
	"github.com/pthm-cable/bobbeltank/sim"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testEntity(t *testing.T, name string, x, y float64) *bobbel.Entity {
	t.Helper()
	e, err := bobbel.New(bobbel.Descriptor{Name: name, Position: r2.Vec{X: x, Y: y}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func decode(t *testing.T, data []byte) Frame {
	t.Helper()
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("frame is not JSON: %v\n%s", err, data)
	}
	return f
}

func TestDisplayBuildsFrames(t *testing.T) {
	srv := New(quiet)
	d := NewDisplay(srv, 1000, 750, false)

	d.DisplayEdge(r2.Vec{X: 400, Y: 200}, r2.Vec{X: 600, Y: 260}, "orange")
	d.DisplayEdge(r2.Vec{X: 450, Y: 215}, r2.Vec{X: 550, Y: 245}, sim.HighlightColor)
	d.DisplayEntity(testEntity(t, "Wilson", 1, 40))
	d.Flush()

	f := decode(t, srv.Latest())
	if f.Seq != 1 || f.Width != 1000 || f.Height != 750 {
		t.Errorf("frame header %+v", f)
	}
	if len(f.Edges) != 2 || f.Edges[0].Highlight || !f.Edges[1].Highlight {
		t.Errorf("edges %+v", f.Edges)
	}
	if len(f.Entities) != 1 || f.Entities[0].Name != "Wilson" || f.Entities[0].Y != 40 {
		t.Errorf("entities %+v", f.Entities)
	}

	d.DisplayEntity(testEntity(t, "Hannah", 200, 375))
	d.Flush()
	f = decode(t, srv.Latest())
	if f.Seq != 2 || len(f.Entities) != 1 || len(f.Edges) != 0 {
		t.Errorf("second frame should only hold its own draw calls: %+v", f)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	srv := New(quiet)
	for i := 0; i < 10; i++ {
		srv.Publish([]byte{byte(i)})
	}
	if got := <-srv.frames; got[0] != 9 {
		t.Errorf("queue should hold the newest frame, got %v", got)
	}
	if srv.Latest()[0] != 9 {
		t.Error("latest frame not updated")
	}
}

func TestFrameEndpoint(t *testing.T) {
	srv := New(quiet)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/frame")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status %d before the first frame", resp.StatusCode)
	}

	srv.Publish([]byte(`{"seq":7}`))
	resp, err = http.Get(ts.URL + "/frame")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != `{"seq":7}` {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}

	resp, err = http.Post(ts.URL+"/frame", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status %d", resp.StatusCode)
	}
}

func TestStreamBroadcasts(t *testing.T) {
	srv := New(quiet)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.Publish([]byte(`{"seq":1}`))
	<-srv.frames // only the greeting should deliver this one

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.CloseNow()

	// the latest frame is sent on connect
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"seq":1}` {
		t.Errorf("greeting frame %q", data)
	}

	for srv.Hub().Len() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("viewer never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	go srv.Run(ctx)
	srv.Publish([]byte(`{"seq":2}`))
	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"seq":2}` {
		t.Errorf("broadcast frame %q", data)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	for srv.Hub().Len() != 0 {
		select {
		case <-ctx.Done():
			t.Fatal("viewer never removed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
