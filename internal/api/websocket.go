package api

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mescon/neonclock/internal/clock"
	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/eventbus"
	"github.com/mescon/neonclock/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message types sent to clients.
const (
	MsgSnapshot = "snapshot"
	MsgEvent    = "event"
	MsgLog      = "log"
)

// relayedEvents are forwarded to every client as they happen.
var relayedEvents = []domain.EventType{
	domain.TimerStarted,
	domain.TimerPaused,
	domain.TimerReset,
	domain.TimerModeChanged,
	domain.TimerFinished,
	domain.AlarmAdded,
	domain.AlarmToggled,
	domain.AlarmDeleted,
	domain.AlarmTriggered,
	domain.AlarmDismissed,
	domain.CuePlayed,
	domain.WeatherUpdated,
	domain.WeatherFailed,
	domain.SettingsUpdated,
	domain.NotificationSent,
	domain.NotificationFailed,
}

// wsMessage is the envelope of every message a client receives.
type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// HubOptions configures a WebSocketHub.
type HubOptions struct {
	// Snapshot produces the render state pushed at PushInterval.
	Snapshot     func() interface{}
	PushInterval time.Duration
	// CORSOrigin is checked against the Origin header on upgrade.
	CORSOrigin string
	// OnClients is called with the client count whenever it changes.
	OnClients func(n int)
	// RelayLogs streams log entries to clients.
	RelayLogs bool
}

// newUpgrader returns an upgrader that accepts same-origin requests, the
// configured origin, or any origin for "*".
func newUpgrader(corsOrigin string) websocket.Upgrader {
	allowed := make(map[string]bool)
	for _, origin := range strings.Split(corsOrigin, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = true
		}
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowed["*"] {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// WebSocketHub pushes snapshots, events and log lines to connected clients.
type WebSocketHub struct {
	upgrader  websocket.Upgrader
	snapshot  func() interface{}
	onClients func(n int)
	push      *clock.Loop

	broadcast  chan wsMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	logCh   chan logger.LogEntry
}

// NewWebSocketHub creates a running hub subscribed to eb.
func NewWebSocketHub(eb eventbus.Publisher, opts HubOptions, clocks ...clock.Clock) *WebSocketHub {
	h := &WebSocketHub{
		upgrader:   newUpgrader(opts.CORSOrigin),
		snapshot:   opts.Snapshot,
		onClients:  opts.OnClients,
		broadcast:  make(chan wsMessage, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]bool),
	}

	for _, t := range relayedEvents {
		eb.Subscribe(t, func(e domain.Event) {
			h.send(wsMessage{Type: MsgEvent, Data: e})
		})
	}

	if opts.RelayLogs {
		h.logCh = logger.Subscribe()
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for entry := range h.logCh {
				h.send(wsMessage{Type: MsgLog, Data: entry})
			}
		}()
	}

	if h.snapshot != nil && opts.PushInterval > 0 {
		h.push = clock.NewLoop(clock.OrReal(clocks...), opts.PushInterval, func(time.Time) {
			if h.ClientCount() > 0 {
				h.send(wsMessage{Type: MsgSnapshot, Data: h.snapshot()})
			}
		})
		h.push.Start()
	}

	h.wg.Add(1)
	go h.run()
	return h
}

// send queues a message for every client. Messages are dropped when the
// queue is full or the hub is shut down.
func (h *WebSocketHub) send(msg wsMessage) {
	select {
	case <-h.done:
	case h.broadcast <- msg:
	default:
	}
}

func (h *WebSocketHub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				_ = client.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second))
				_ = client.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.clientsChanged(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			logger.Debugf("WebSocket client connected (Total: %d)", n)
			h.clientsChanged(n)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				if err := client.Close(); err != nil {
					logger.Debugf("WebSocket close error: %v", err)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			if ok {
				logger.Debugf("WebSocket client disconnected")
				h.clientsChanged(n)
			}

		case msg := <-h.broadcast:
			h.mu.Lock()
			before := len(h.clients)
			for client := range h.clients {
				if err := h.writeJSON(client, msg); err != nil {
					_ = client.Close()
					delete(h.clients, client)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			if n != before {
				h.clientsChanged(n)
			}
		}
	}
}

// writeJSON must be called with h.mu held.
func (h *WebSocketHub) writeJSON(ws *websocket.Conn, v interface{}) error {
	if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return ws.WriteJSON(v)
}

func (h *WebSocketHub) clientsChanged(n int) {
	if h.onClients != nil {
		h.onClients(n)
	}
}

// HandleConnection upgrades the request and serves the client until it
// disconnects. The first message is always a snapshot.
func (h *WebSocketHub) HandleConnection(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	select {
	case h.register <- ws:
	case <-h.done:
		_ = ws.Close()
		return
	}
	defer func() {
		select {
		case h.unregister <- ws:
		case <-h.done:
		}
	}()

	if h.snapshot != nil {
		h.mu.Lock()
		err := h.writeJSON(ws, wsMessage{Type: MsgSnapshot, Data: h.snapshot()})
		h.mu.Unlock()
		if err != nil {
			logger.Debugf("Failed to send initial snapshot: %v", err)
			return
		}
	}

	if err := ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Debugf("Failed to set initial read deadline: %v", err)
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ticker.C:
				h.mu.Lock()
				if !h.clients[ws] {
					h.mu.Unlock()
					return
				}
				err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				h.mu.Unlock()
				if err != nil {
					logger.Debugf("WebSocket ping error: %v", err)
					_ = ws.Close()
					return
				}
			}
		}
	}()

	// Clients don't send anything meaningful; reading keeps the pong
	// handler running and notices disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// ClientCount returns the number of connected WebSocket clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown stops the snapshot push, detaches from the log stream and closes
// every client. Safe to call more than once.
func (h *WebSocketHub) Shutdown() {
	h.stopOnce.Do(func() {
		if h.push != nil {
			h.push.Stop()
		}
		close(h.done)
		if h.logCh != nil {
			logger.Unsubscribe(h.logCh)
		}
	})
	h.wg.Wait()
}
