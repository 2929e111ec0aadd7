package ws

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Имена событий, которые получают клиенты.
const (
	EventNewMessage              = "new-message"
	EventNewBid                  = "new-bid"
	EventBidAccepted             = "bid-accepted"
	EventBidRejected             = "bid-rejected"
	EventTaskUpdated             = "task-updated"
	EventSubmissionStatusUpdated = "submission-status-updated"
	EventNewNotification         = "new-notification"
)

// ChannelKind тип канала по префиксу имени.
type ChannelKind string

const (
	ChannelUser ChannelKind = "user"
	ChannelTask ChannelKind = "task"
	ChannelBid  ChannelKind = "bid"
)

// UserChannel личный канал пользователя.
func UserChannel(id uuid.UUID) string { return string(ChannelUser) + "-" + id.String() }

// TaskChannel канал задания.
func TaskChannel(id uuid.UUID) string { return string(ChannelTask) + "-" + id.String() }

// BidChannel канал отклика.
func BidChannel(id uuid.UUID) string { return string(ChannelBid) + "-" + id.String() }

// ParseChannel разбирает имя канала на тип и идентификатор.
func ParseChannel(name string) (ChannelKind, uuid.UUID, error) {
	prefix, rawID, ok := strings.Cut(name, "-")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("ws: некорректное имя канала %q", name)
	}

	kind := ChannelKind(prefix)
	switch kind {
	case ChannelUser, ChannelTask, ChannelBid:
	default:
		return "", uuid.Nil, fmt.Errorf("ws: неизвестный тип канала %q", prefix)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("ws: некорректный идентификатор канала %q: %w", name, err)
	}
	return kind, id, nil
}
