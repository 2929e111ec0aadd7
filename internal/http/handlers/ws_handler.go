package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/taskmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskmarket-backend/internal/http/middleware"
	"github.com/ignatzorin/taskmarket-backend/internal/http/response"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
	"github.com/ignatzorin/taskmarket-backend/internal/ws"
)

// EventHistory история событий каналов (есть только в режиме Redis).
type EventHistory interface {
	HasHistory() bool
	Replay(ctx context.Context, channel string, fromID int64) ([]ws.Event, error)
}

// ChannelGate проверка права слушать канал.
type ChannelGate interface {
	Authorize(ctx context.Context, userID uuid.UUID, role, channel string) (bool, error)
}

// WSHandler отвечает за установку WebSocket соединений и выдачу истории каналов.
type WSHandler struct {
	hub      *ws.Hub
	tokens   middleware.AccessParser
	history  EventHistory
	gate     ChannelGate
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. Пустой allowedOrigins или "*" разрешает любой Origin.
func NewWSHandler(hub *ws.Hub, tokens middleware.AccessParser, history EventHistory, allowedOrigins []string) *WSHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	_, allowAll := origins["*"]

	return &WSHandler{
		hub:     hub,
		tokens:  tokens,
		history: history,
		gate:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 || allowAll {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		response.Unauthorized(c, "access токен обязателен")
		return
	}

	userID, role, err := h.tokens.ParseAccess(rawToken)
	if err != nil || userID == uuid.Nil {
		response.Unauthorized(c, "невалидный access токен")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrader уже ответил клиенту.
		logger.Log.WithError(err).Warn("ws: не удалось установить соединение")
		return
	}

	client := ws.NewClient(conn, h.hub, userID, role)
	client.Run(c.Request.Context())
}

// History обрабатывает GET /realtime/history/:channel?from=<id>.
// Клиент после переподключения догружает пропущенные события.
func (h *WSHandler) History(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.history == nil || !h.history.HasHistory() {
		response.NotFound(c, "история событий недоступна")
		return
	}

	channel := c.Param("channel")
	var fromID int64
	if raw := c.Query("from"); raw != "" {
		if fromID, err = strconv.ParseInt(raw, 10, 64); err != nil || fromID < 0 {
			response.BadRequest(c, "параметр from должен быть неотрицательным числом")
			return
		}
	}

	if _, _, err := ws.ParseChannel(channel); err != nil {
		response.BadRequest(c, "некорректное имя канала")
		return
	}

	ok, err := h.gate.Authorize(c.Request.Context(), actor.ID, string(actor.Role), channel)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Forbidden(c, "нет доступа к каналу")
		return
	}

	events, err := h.history.Replay(c.Request.Context(), channel, fromID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, events)
}
