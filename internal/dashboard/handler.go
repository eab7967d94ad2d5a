package dashboard

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/steveyegge/filemon/internal/monitor"
)

// Handler bridges between monitor records and dashboard messages. Plug its
// OnEvent method into the monitor's event sink.
type Handler struct {
	server *Server
	logger *log.Logger

	// Statistics tracking
	statsMu sync.Mutex
	stats   *StatsData
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server: server,
		logger: logger,
		stats: &StatsData{
			ByKind:   make(map[string]int),
			BySource: make(map[string]int),
		},
	}
}

// OnEvent handles one dispatched monitor record
func (h *Handler) OnEvent(rec monitor.Record) {
	// Update statistics
	h.statsMu.Lock()
	h.stats.Total++
	if rec.Kind != "" {
		h.stats.ByKind[rec.Kind]++
	}
	h.stats.BySource[rec.Source]++
	h.statsMu.Unlock()

	// Format event data
	data := FileEventData{
		Source: rec.Source,
		Name:   rec.Name,
		Kind:   rec.Kind,
		Mask:   rec.Mask,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal event data: %v", err)
		return
	}

	// Broadcast message
	msg := Message{
		Type:      MessageTypeFileEvent,
		Timestamp: rec.Time,
		Data:      dataJSON,
	}
	h.server.Broadcast(msg)

	// Directory-sourced create/delete/moved_to drive the file watch, so
	// mirror them as watch updates.
	if rec.Source == "directory" {
		switch rec.Kind {
		case "create":
			h.broadcastWatchUpdate(rec.Name, true)
		case "delete", "moved_to":
			h.broadcastWatchUpdate(rec.Name, false)
		}
	}

	// Also broadcast updated stats
	h.broadcastStats()
}

// broadcastWatchUpdate sends a file-watch state change to all clients
func (h *Handler) broadcastWatchUpdate(target string, watching bool) {
	data := WatchUpdateData{
		Target:   target,
		Watching: watching,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal watch update: %v", err)
		return
	}

	msg := Message{
		Type:      MessageTypeWatchUpdate,
		Timestamp: time.Now(),
		Data:      dataJSON,
	}
	h.server.Broadcast(msg)
}

// broadcastStats sends current statistics to all clients
func (h *Handler) broadcastStats() {
	h.statsMu.Lock()
	dataJSON, err := json.Marshal(h.stats)
	h.statsMu.Unlock()
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}

	msg := Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      dataJSON,
	}
	h.server.Broadcast(msg)
}

// GetStats returns a copy of the current statistics
func (h *Handler) GetStats() StatsData {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()

	stats := StatsData{
		Total:    h.stats.Total,
		ByKind:   make(map[string]int, len(h.stats.ByKind)),
		BySource: make(map[string]int, len(h.stats.BySource)),
	}
	for k, v := range h.stats.ByKind {
		stats.ByKind[k] = v
	}
	for k, v := range h.stats.BySource {
		stats.BySource[k] = v
	}
	return stats
}
