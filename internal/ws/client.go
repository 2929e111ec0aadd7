package ws

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskmarket-backend/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	maxChannels    = 64
)

// clientCommand запрос клиента на подписку или отписку.
type clientCommand struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// serverFrame кадр, который получает клиент.
type serverFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Data    any    `json:"data,omitempty"`
	ID      int64  `json:"id,omitempty"`
}

// Client представляет одно подключение WebSocket.
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	userID uuid.UUID
	role   string
	send   chan []byte

	mu   sync.Mutex
	subs map[string]func()

	done      chan struct{}
	closeOnce sync.Once
	log       *logrus.Entry
}

// NewClient создаёт нового клиента.
func NewClient(conn *websocket.Conn, hub *Hub, userID uuid.UUID, role string) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		userID: userID,
		role:   role,
		send:   make(chan []byte, 32),
		subs:   make(map[string]func()),
		done:   make(chan struct{}),
		log:    logger.Component("ws-client").WithField("user_id", userID),
	}
}

// Run подписывает клиента на личный канал и обслуживает соединение до его закрытия.
func (c *Client) Run(ctx context.Context) {
	if !c.hub.Register(c) {
		c.shutdown()
		return
	}
	c.subscribe(UserChannel(c.userID))

	go c.writePumpSafe()
	c.readPump(ctx)
}

// Close отписывает клиента от всех каналов и закрывает соединение.
func (c *Client) Close() {
	c.hub.Unregister(c)
	c.shutdown()
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		for channel, unsubscribe := range c.subs {
			unsubscribe()
			delete(c.subs, channel)
		}
		c.mu.Unlock()

		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) subscribe(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.subs[channel]; ok {
		return true
	}
	if len(c.subs) >= maxChannels {
		return false
	}

	events, unsubscribe := c.hub.bus.Subscribe(channel)
	c.subs[channel] = unsubscribe

	go c.forward(events)
	return true
}

func (c *Client) unsubscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if unsubscribe, ok := c.subs[channel]; ok {
		unsubscribe()
		delete(c.subs, channel)
	}
}

// forward переносит события шины в очередь записи, пока канал подписки открыт.
func (c *Client) forward(events <-chan Event) {
	for ev := range events {
		c.push(serverFrame{Type: ev.Type, Channel: ev.Channel, Data: ev.Data, ID: ev.ID})
	}
}

func (c *Client) push(frame serverFrame) {
	raw, err := json.Marshal(frame)
	if err != nil {
		c.log.WithError(err).Warn("ws: не удалось сериализовать кадр")
		return
	}
	select {
	case <-c.done:
	case c.send <- raw:
	default:
		c.log.Warn("ws: очередь клиента переполнена, кадр отброшен")
	}
}

func (c *Client) handleCommand(ctx context.Context, raw []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		c.push(serverFrame{Type: "error", Data: "некорректная команда"})
		return
	}

	switch cmd.Action {
	case "subscribe":
		ok, err := c.hub.Authorize(ctx, c.userID, c.role, cmd.Channel)
		if err != nil || !ok {
			c.push(serverFrame{Type: "subscribe-denied", Channel: cmd.Channel})
			return
		}
		if !c.subscribe(cmd.Channel) {
			c.push(serverFrame{Type: "subscribe-denied", Channel: cmd.Channel, Data: "слишком много подписок"})
			return
		}
		c.push(serverFrame{Type: "subscribed", Channel: cmd.Channel})
	case "unsubscribe":
		c.unsubscribe(cmd.Channel)
		c.push(serverFrame{Type: "unsubscribed", Channel: cmd.Channel})
	case "ping":
		c.push(serverFrame{Type: "pong"})
	default:
		c.push(serverFrame{Type: "error", Data: "неизвестное действие"})
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("ws: readPump panic recovered: %v\n%s", r, debug.Stack())
		}
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Debug("ws: соединение закрыто")
			}
			return
		}
		c.handleCommand(ctx, raw)
	}
}

func (c *Client) writePumpSafe() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("ws: writePump panic recovered: %v\n%s", r, debug.Stack())
			c.Close()
		}
	}()
	c.writePump()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
