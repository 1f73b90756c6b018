package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	jobsync "github.com/jobboard/jobboard/internal/sync"
)

// MessageType defines the type of a WebSocket message
type MessageType string

const (
	// MessageTypeStats carries the current row counts; sent on connect
	MessageTypeStats MessageType = "stats"

	// Sync progress messages mirror the sync event types.
	MessageTypeSyncStarted  = MessageType(jobsync.EventSyncStarted)
	MessageTypeEntitySynced = MessageType(jobsync.EventEntitySynced)
	MessageTypeSyncComplete = MessageType(jobsync.EventSyncComplete)
	MessageTypeSyncFailed   = MessageType(jobsync.EventSyncFailed)
)

// Message represents a broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// StatsData contains the store row counts
type StatsData struct {
	Companies int `json:"companies"`
	Jobs      int `json:"jobs"`
	Tags      int `json:"tags"`
	JobTags   int `json:"job_tags"`
}

// SyncEventData is the payload of sync progress messages
type SyncEventData struct {
	Result *jobsync.Result `json:"result,omitempty"`
	Report *jobsync.Report `json:"report,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// OnSyncEvent implements sync.Observer by broadcasting the event.
func (s *Server) OnSyncEvent(e jobsync.Event) {
	data, err := json.Marshal(SyncEventData{Result: e.Result, Report: e.Report, Error: e.Error})
	if err != nil {
		s.logger.Printf("Failed to marshal sync event: %v", err)
		return
	}
	s.Broadcast(Message{
		Type:      MessageType(e.Type),
		Timestamp: e.Timestamp,
		Data:      data,
	})
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// broadcastLoop handles message broadcasting to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades the connection and sends the current stats.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	welcome := Message{Type: MessageTypeStats, Timestamp: time.Now()}
	if counts, err := s.db.CountsContext(r.Context()); err == nil {
		welcome.Data, _ = json.Marshal(StatsData(counts))
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	welcomeData, _ := json.Marshal(welcome)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = conn.Write(ctx, websocket.MessageText, welcomeData)
	cancel()

	go s.readLoop(conn)
}

// readLoop keeps the connection open until the client goes away
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

// removeClient safely removes a client connection
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
