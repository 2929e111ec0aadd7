package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ChannelAuthorizer решает, может ли пользователь слушать канал задания или отклика.
type ChannelAuthorizer interface {
	CanSubscribe(ctx context.Context, userID uuid.UUID, role string, kind ChannelKind, id uuid.UUID) (bool, error)
}

// Hub учитывает WebSocket клиентов и связывает их с шиной событий.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	bus        *Bus
	authorizer ChannelAuthorizer
}

// NewHub создаёт новый хаб.
func NewHub(bus *Bus, authorizer ChannelAuthorizer) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		bus:        bus,
		authorizer: authorizer,
	}
}

// Run запускает главный цикл хаба до отмены ctx. При остановке закрывает всех клиентов.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register добавляет клиента. Возвращает false, если хаб уже остановлен.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister удаляет клиента. После остановки хаба ничего не делает.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Online сообщает, есть ли у пользователя открытые соединения.
func (h *Hub) Online(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// ConnectionCount возвращает общее число соединений.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, set := range h.clients {
		total += len(set)
	}
	return total
}

// Authorize проверяет право пользователя слушать канал. Личный канал доступен только владельцу.
func (h *Hub) Authorize(ctx context.Context, userID uuid.UUID, role, channel string) (bool, error) {
	kind, id, err := ParseChannel(channel)
	if err != nil {
		return false, err
	}
	if kind == ChannelUser {
		return id == userID, nil
	}
	if h.authorizer == nil {
		return false, nil
	}
	return h.authorizer.CanSubscribe(ctx, userID, role, kind, id)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	all := make([]*Client, 0)
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[uuid.UUID]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.shutdown()
	}
}
