package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskmarket-backend/internal/goroutine"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
	"github.com/ignatzorin/taskmarket-backend/internal/mail"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/ws"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// UserReader читает пользователей.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Mailer отправляет письма. Может отсутствовать.
type Mailer interface {
	Send(to, subject, body string) error
}

// NotificationService сохраняет уведомления, публикует их в канал пользователя и дублирует на почту.
type NotificationService struct {
	repo      NotificationRepository
	users     UserReader
	publisher EventPublisher
	mailer    Mailer
	baseURL   string
	log       *logrus.Entry
}

// NewNotificationService создаёт новый сервис уведомлений. mailer может быть nil.
func NewNotificationService(repo NotificationRepository, users UserReader, publisher EventPublisher, mailer Mailer, baseURL string) *NotificationService {
	return &NotificationService{
		repo:      repo,
		users:     users,
		publisher: publisher,
		mailer:    mailer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       logger.Component("notification-service"),
	}
}

// NotificationPage страница уведомлений.
type NotificationPage struct {
	Items  []models.Notification `json:"items"`
	Total  int                   `json:"total"`
	Unread int                   `json:"unread"`
}

// Notify сохраняет уведомление и публикует new-notification в канал user-{id}.
// Ошибка публикации и отправки письма только логируется: строка уже сохранена.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	n := &models.Notification{
		UserID:  in.UserID,
		Title:   in.Title,
		Message: in.Message,
		Type:    in.Type,
	}
	if in.Link != "" {
		link := in.Link
		n.Link = &link
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, ws.UserChannel(n.UserID), ws.EventNewNotification, n); err != nil {
			s.log.WithError(err).WithField("user_id", n.UserID).Warn("не удалось опубликовать уведомление")
		}
	}

	s.sendEmail(n)
	return n, nil
}

func (s *NotificationService) sendEmail(n *models.Notification) {
	if s.mailer == nil || s.users == nil {
		return
	}

	link := ""
	if n.Link != nil {
		link = s.baseURL + *n.Link
	}
	notification := *n

	// Письмо не должно задерживать запрос, поэтому уходит в отдельной горутине.
	goroutine.SafeGo(func() {
		ctx := context.Background()
		user, err := s.users.GetByID(ctx, notification.UserID)
		if err != nil || user.Email == "" {
			return
		}
		body := mail.NotificationBody(notification.Title, notification.Message, link)
		if err := s.mailer.Send(user.Email, notification.Title, body); err != nil {
			s.log.WithError(err).WithField("user_id", notification.UserID).Warn("не удалось отправить письмо")
		}
	})
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) (*NotificationPage, error) {
	items, total, err := s.repo.List(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Items: items, Total: total, Unread: unread}, nil
}

// MarkRead отмечает уведомление прочитанным. Чужое уведомление выглядит как отсутствующее.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead отмечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// UnreadCount возвращает количество непрочитанных уведомлений.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
