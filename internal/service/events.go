package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
)

// EventPublisher шина событий реального времени.
type EventPublisher interface {
	Publish(ctx context.Context, channel, event string, data any) error
}

// Notifier создаёт уведомление пользователю и доставляет его в реальном времени.
type Notifier interface {
	Notify(ctx context.Context, in NotifyInput) (*models.Notification, error)
}

// NotifyInput данные уведомления.
type NotifyInput struct {
	UserID  uuid.UUID
	Title   string
	Message string
	Type    valueobject.NotificationType
	Link    string
}

// sideEffects побочные действия после фиксации основной операции.
// Ошибки логируются и не влияют на результат операции.
type sideEffects struct {
	publisher EventPublisher
	notifier  Notifier
	log       *logrus.Entry
}

func (s sideEffects) publish(ctx context.Context, channel, event string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, channel, event, data); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"channel": channel,
			"event":   event,
		}).Warn("не удалось опубликовать событие")
	}
}

func (s sideEffects) notify(ctx context.Context, in NotifyInput) {
	if s.notifier == nil || in.UserID == uuid.Nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, in); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id": in.UserID,
			"type":    in.Type,
		}).Warn("не удалось создать уведомление")
	}
}

func taskLink(id uuid.UUID) string {
	return fmt.Sprintf("/tasks/%s", id)
}

func disputeLink(id uuid.UUID) string {
	return fmt.Sprintf("/disputes/%s", id)
}
