package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 16
)

// Hub fans project events out to websocket subscribers.
type Hub struct {
	mu       sync.Mutex
	subs     map[int]map[chan models.Event]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
	now      func() time.Time
	closed   chan struct{}
	once     sync.Once
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		subs: make(map[int]map[chan models.Event]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:    log,
		now:    time.Now,
		closed: make(chan struct{}),
	}
}

// Close ends every open event stream with a going-away close frame. Later
// upgrades are closed the same way right after they connect.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.closed) })
}

// Publish sends an event to every subscriber of projectID. A subscriber
// whose buffer is full misses the event.
func (h *Hub) Publish(projectID int, eventType, message string) models.Event {
	ev := models.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ProjectID: projectID,
		At:        h.now().UTC(),
		Message:   message,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[projectID] {
		select {
		case ch <- ev:
		default:
			h.log.Warn("subscriber buffer full, dropping event", "project", projectID, "event", ev.ID)
		}
	}
	return ev
}

// Subscribers returns the number of subscribers of projectID.
func (h *Hub) Subscribers(projectID int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[projectID])
}

func (h *Hub) subscribe(projectID int) chan models.Event {
	ch := make(chan models.Event, sendBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[projectID] == nil {
		h.subs[projectID] = make(map[chan models.Event]struct{})
	}
	h.subs[projectID][ch] = struct{}{}
	return ch
}

func (h *Hub) unsubscribe(projectID int, ch chan models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[projectID], ch)
	if len(h.subs[projectID]) == 0 {
		delete(h.subs, projectID)
	}
}

// Serve upgrades the request and streams projectID's events until the
// peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, projectID int) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe(projectID)
	defer h.unsubscribe(projectID, ch)
	h.log.Debug("event subscriber connected", "project", projectID, "remote", r.RemoteAddr)

	// Read loop only detects the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-h.closed:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case ev := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Warn("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
