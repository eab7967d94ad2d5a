package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/steveyegge/filemon/internal/monitor"
)

func startServerForTest(t *testing.T) *Server {
	t.Helper()

	config := &Config{
		Port:   0, // Use random available port
		Logger: log.New(os.Stderr, "[test] ", log.LstdFlags),
	}

	server := NewServer(config)
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })

	time.Sleep(100 * time.Millisecond)
	return server
}

func TestServerStartStop(t *testing.T) {
	config := &Config{
		Port:   0,
		Logger: log.New(os.Stderr, "[test] ", log.LstdFlags),
	}

	server := NewServer(config)

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if addr := server.GetAddr(); addr == "" {
		t.Fatal("Server address is empty")
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestWebSocketConnection(t *testing.T) {
	server := startServerForTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws://" + server.GetAddr() + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if count := server.ClientCount(); count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}

	// Read welcome message
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read welcome message: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if msg.Type != MessageTypeStats {
		t.Errorf("Expected welcome message type %s, got %s", MessageTypeStats, msg.Type)
	}
}

func TestFileEventBroadcast(t *testing.T) {
	server := startServerForTest(t)
	handler := NewHandler(server, log.New(os.Stderr, "[test] ", log.LstdFlags))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws://" + server.GetAddr() + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Skip the welcome message
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("Failed to read welcome message: %v", err)
	}

	handler.OnEvent(monitor.Record{
		Time:   time.Now(),
		Source: "directory",
		Name:   "target.txt",
		Kind:   "create",
		Mask:   0x100,
	})

	// Expect a file_event, then a watch_update (create arms the file
	// watch), then stats.
	wantTypes := []MessageType{MessageTypeFileEvent, MessageTypeWatchUpdate, MessageTypeStats}
	for _, want := range wantTypes {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Failed to read %s message: %v", want, err)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if msg.Type != want {
			t.Fatalf("Expected message type %s, got %s", want, msg.Type)
		}

		switch msg.Type {
		case MessageTypeFileEvent:
			var ev FileEventData
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				t.Fatalf("Failed to unmarshal event data: %v", err)
			}
			if ev.Name != "target.txt" || ev.Kind != "create" || ev.Source != "directory" {
				t.Errorf("Unexpected event data: %+v", ev)
			}
		case MessageTypeWatchUpdate:
			var wu WatchUpdateData
			if err := json.Unmarshal(msg.Data, &wu); err != nil {
				t.Fatalf("Failed to unmarshal watch update: %v", err)
			}
			if !wu.Watching {
				t.Error("Create should report the watch as armed")
			}
		}
	}
}

func TestHandlerStats(t *testing.T) {
	server := startServerForTest(t)
	handler := NewHandler(server, nil)

	recs := []monitor.Record{
		{Source: "directory", Name: "target.txt", Kind: "create"},
		{Source: "file", Name: "target.txt", Kind: "modify"},
		{Source: "file", Name: "target.txt", Kind: "modify"},
		{Source: "directory", Name: "target.txt", Kind: "delete"},
	}
	for _, rec := range recs {
		handler.OnEvent(rec)
	}

	stats := handler.GetStats()
	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.ByKind["modify"] != 2 {
		t.Errorf("ByKind[modify] = %d, want 2", stats.ByKind["modify"])
	}
	if stats.BySource["directory"] != 2 {
		t.Errorf("BySource[directory] = %d, want 2", stats.BySource["directory"])
	}
}
