package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskmarket-backend/internal/logger"
)

const (
	subscriberBuffer = 64
	redisPrefix      = "taskmarket:events:"
)

// Event событие в канале. ID заполняется только при включённой истории в Redis.
type Event struct {
	ID      int64  `json:"id,omitempty"`
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Data    any    `json:"data"`
}

type subscriber struct {
	ch   chan Event
	once sync.Once
}

// Bus канальная шина событий (user-, task-, bid-).
// Без Redis события доставляются подписчикам этого процесса.
// С Redis публикация идёт через Redis Pub/Sub, и каждый экземпляр сервиса
// раздаёт событие своим подписчикам; дополнительно ведётся история канала.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber

	rdb        *redis.Client
	historyTTL time.Duration
	historyMax int64

	log *logrus.Entry
}

// BusOption настраивает шину.
type BusOption func(*Bus)

// WithRedis включает межинстансовую доставку и историю каналов.
func WithRedis(rdb *redis.Client, historyTTL time.Duration, historyMax int64) BusOption {
	return func(b *Bus) {
		b.rdb = rdb
		b.historyTTL = historyTTL
		b.historyMax = historyMax
	}
}

// NewBus создаёт шину событий.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subscribers: make(map[string][]*subscriber),
		historyTTL:  24 * time.Hour,
		historyMax:  500,
		log:         logger.Component("event-bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HasHistory сообщает, доступна ли история каналов.
func (b *Bus) HasHistory() bool {
	return b.rdb != nil
}

// Subscribe подписывает на канал. Вызов unsubscribe закрывает канал событий; повторный вызов безопасен.
func (b *Bus) Subscribe(channel string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}

	b.mu.Lock()
	b.subscribers[channel] = append(b.subscribers[channel], sub)
	b.mu.Unlock()

	unsubscribe := func() {
		sub.once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subs := b.subscribers[channel]
			for i, s := range subs {
				if s == sub {
					b.subscribers[channel] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(b.subscribers[channel]) == 0 {
				delete(b.subscribers, channel)
			}
			close(sub.ch)
		})
	}
	return sub.ch, unsubscribe
}

// SubscriberCount возвращает число подписчиков канала в этом процессе.
func (b *Bus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[channel])
}

// Publish отправляет событие в канал.
func (b *Bus) Publish(ctx context.Context, channel, eventType string, data any) error {
	ev := Event{Channel: channel, Type: eventType, Data: data}

	if b.rdb == nil {
		b.dispatch(ev)
		return nil
	}

	if err := b.publishRedis(ctx, &ev); err != nil {
		// Redis недоступен: локальные подписчики всё равно получают событие.
		b.dispatch(ev)
		return fmt.Errorf("ws: публикация в redis: %w", err)
	}
	return nil
}

func (b *Bus) publishRedis(ctx context.Context, ev *Event) error {
	key := historyKey(ev.Channel)

	id, err := b.rdb.Incr(ctx, key+":seq").Result()
	if err != nil {
		return err
	}
	ev.ID = id

	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pipe := b.rdb.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -b.historyMax, -1)
	pipe.Expire(ctx, key, b.historyTTL)
	pipe.Expire(ctx, key+":seq", b.historyTTL)
	pipe.Publish(ctx, redisPrefix+ev.Channel, raw)
	_, err = pipe.Exec(ctx)
	return err
}

// Run слушает Redis Pub/Sub и раздаёт события локальным подписчикам до отмены ctx.
// Без Redis сразу возвращается.
func (b *Bus) Run(ctx context.Context) {
	if b.rdb == nil {
		return
	}

	pubsub := b.rdb.PSubscribe(ctx, redisPrefix+"*")
	defer pubsub.Close()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.WithError(err).Warn("ws: не удалось разобрать событие из redis")
				continue
			}
			if ev.Channel == "" {
				ev.Channel = strings.TrimPrefix(msg.Channel, redisPrefix)
			}
			b.dispatch(ev)
		}
	}
}

// Replay возвращает события канала с ID больше fromID из истории Redis.
func (b *Bus) Replay(ctx context.Context, channel string, fromID int64) ([]Event, error) {
	if b.rdb == nil {
		return nil, fmt.Errorf("ws: история событий недоступна без redis")
	}

	items, err := b.rdb.LRange(ctx, historyKey(channel), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ws: чтение истории: %w", err)
	}

	events := make([]Event, 0, len(items))
	for _, item := range items {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		if ev.ID > fromID {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (b *Bus) dispatch(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers[ev.Channel] {
		select {
		case sub.ch <- ev:
		default:
			b.log.WithFields(logrus.Fields{"channel": ev.Channel, "event": ev.Type}).
				Warn("ws: подписчик не успевает, событие отброшено")
		}
	}
}

func historyKey(channel string) string {
	return redisPrefix + "history:" + channel
}
