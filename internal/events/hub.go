// Package events fans pipeline stage events out to websocket clients.
package events

import (
	"net/http"
	"sync"
	"time"

	"autocut/internal/appcore"
	"autocut/internal/pipeline"
	"autocut/log"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	historySize    = 64
	subscriberSize = 32
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub keeps the recent events of every job and the live subscribers.
// Slow subscribers drop events rather than stall the pipeline.
type Hub struct {
	mu      sync.Mutex
	subs    map[string]map[chan appcore.JobEvent]struct{}
	history map[string][]appcore.JobEvent
}

var _ pipeline.Observer = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		subs:    make(map[string]map[chan appcore.JobEvent]struct{}),
		history: make(map[string][]appcore.JobEvent),
	}
}

func (h *Hub) OnStage(ev appcore.JobEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hist := append(h.history[ev.JobID], ev)
	if len(hist) > historySize {
		hist = hist[len(hist)-historySize:]
	}
	h.history[ev.JobID] = hist

	for ch := range h.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns the events recorded so far for jobID and a channel of
// the ones that follow. cancel must be called once the caller is done.
func (h *Hub) Subscribe(jobID string) (past []appcore.JobEvent, live <-chan appcore.JobEvent, cancel func()) {
	ch := make(chan appcore.JobEvent, subscriberSize)

	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan appcore.JobEvent]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	past = append([]appcore.JobEvent(nil), h.history[jobID]...)
	h.mu.Unlock()

	var once sync.Once
	return past, ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[jobID], ch)
			if len(h.subs[jobID]) == 0 {
				delete(h.subs, jobID)
			}
			h.mu.Unlock()
		})
	}
}

// Forget drops the recorded events of a job.
func (h *Hub) Forget(jobID string) {
	h.mu.Lock()
	delete(h.history, jobID)
	h.mu.Unlock()
}

func terminal(ev appcore.JobEvent) bool {
	return ev.Kind == appcore.EventJobFinished || ev.Kind == appcore.EventStageFailed
}

// ServeWS upgrades the request and streams the events of jobID as JSON
// until the job finishes or fails, or the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, jobID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.GetLogger().Warn("websocket upgrade failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	defer conn.Close()

	past, live, cancel := h.Subscribe(jobID)
	defer cancel()

	// the read side only exists to notice the client closing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ev appcore.JobEvent) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(ev) == nil
	}
	for _, ev := range past {
		if !send(ev) {
			return
		}
		if terminal(ev) {
			closeNormally(conn)
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case ev := <-live:
			if !send(ev) {
				return
			}
			if terminal(ev) {
				closeNormally(conn)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func closeNormally(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job done"),
		time.Now().Add(writeWait))
}
