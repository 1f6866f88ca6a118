package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/marketcore/lob/internal/book"
	"github.com/marketcore/lob/pkg/logger"
	"github.com/marketcore/lob/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	clientSendBuf  = 256
)

// topOfBookMessage is the only payload the stream ever pushes: it never
// decodes an inbound wire protocol from the client, keeping the core's "no
// wire-format decoding" non-goal intact on the stream's receive side too.
type topOfBookMessage struct {
	Side      string `json:"side"`
	Price     int64  `json:"price"`
	Size      uint64 `json:"size"`
	Timestamp int64  `json:"timestamp"`
}

// Hub fans out top-of-book change notifications to subscribed websocket
// clients. It is a pure broadcaster: it never reads a client's own
// messages as order-entry commands, since all writes enter the book
// through Gateway's single command channel instead.
type Hub struct {
	log *logger.Logger
	book *book.Book

	clients    map[*streamClient]bool
	register   chan *streamClient
	unregister chan *streamClient
	broadcast  chan []byte

	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

type streamClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub constructs a Hub. Call Run to start its event loop.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*streamClient]bool),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		broadcast:  make(chan []byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run drives the hub's register/unregister/broadcast loop until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			metrics.ActiveConnections.Inc()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				metrics.ActiveConnections.Dec()
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ServeWS upgrades the request to a websocket connection and registers a
// new subscriber.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &streamClient{hub: h, conn: conn, send: make(chan []byte, clientSendBuf)}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

// Attach binds the Book the hub reads top-of-book snapshots from. It must
// be called before any event reaches Observer.
func (h *Hub) Attach(b *book.Book) {
	h.book = b
}

// Observer adapts book.Event into the top-of-book broadcast the stream
// pushes: it re-derives the current best price from the attached Book
// rather than trusting the event payload alone, since an Update or a
// deeper Remove can change the best without being the event that fired.
func (h *Hub) Observer() book.Observer {
	return book.ObserverFunc(func(e book.Event) {
		switch e.Kind {
		case book.EventAdd, book.EventUpdate, book.EventRemove, book.EventLevelOpened, book.EventLevelClosed:
			h.publishTop(e.Order.Side)
		}
	})
}

func (h *Hub) publishTop(side book.Side) {
	top, ok := h.book.TopLevel(side)
	msg := topOfBookMessage{Side: side.String()}
	if ok {
		msg.Price = top.Price
		msg.Size = top.AggregateSize
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

func (c *streamClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
