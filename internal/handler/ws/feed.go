package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"LoanServe/internal/domain/models"
	applogger "LoanServe/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Feed is a broadcast hub for live prediction events. Every served prediction
// is pushed to all connected subscribers; slow subscribers are dropped rather
// than allowed to block the hub.
type Feed struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}

	upgrader websocket.Upgrader
	logger   *applogger.Logger
}

func NewFeed(logger *applogger.Logger) *Feed {
	return &Feed{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Run owns the client set. It must run in its own goroutine before the first
// Serve call.
func (f *Feed) Run() {
	for {
		select {
		case c := <-f.register:
			f.clients[c] = true
			f.logger.Debug("feed subscriber connected", applogger.Int("total", len(f.clients)))

		case c := <-f.unregister:
			if _, ok := f.clients[c]; ok {
				delete(f.clients, c)
				close(c.send)
			}
			f.logger.Debug("feed subscriber disconnected", applogger.Int("total", len(f.clients)))

		case msg := <-f.broadcast:
			for c := range f.clients {
				select {
				case c.send <- msg:
				default:
					delete(f.clients, c)
					close(c.send)
				}
			}

		case <-f.done:
			for c := range f.clients {
				delete(f.clients, c)
				close(c.send)
			}
			return
		}
	}
}

// Stop shuts the hub down and disconnects all subscribers.
func (f *Feed) Stop() {
	close(f.done)
}

// Notify broadcasts one prediction event. It never blocks: when the hub's
// buffer is full the event is dropped.
func (f *Feed) Notify(rec *models.PredictionRecord) {
	payload, err := marshalRecord(rec)
	if err != nil {
		f.logger.Warn("feed event marshal failed", applogger.Error(err))
		return
	}
	select {
	case f.broadcast <- payload:
	default:
	}
}

// Serve upgrades the request and attaches the connection to the hub.
func (f *Feed) Serve(c echo.Context) error {
	conn, err := f.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	f.register <- cl

	go cl.writePump(f)
	go cl.readPump(f)
	return nil
}

func (c *client) writePump(f *Feed) {
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

func (c *client) readPump(f *Feed) {
	defer func() {
		f.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The feed is one-way; inbound frames are drained only to service
	// control messages.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
