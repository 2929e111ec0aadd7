package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskmarket-backend/internal/repository/common"
	"github.com/ignatzorin/taskmarket-backend/internal/validation"
	"github.com/ignatzorin/taskmarket-backend/internal/ws"
)

var (
	ErrChatNotStarted = apperror.New(apperror.ErrCodeConflict, "переписка доступна после принятия отклика")
	ErrChatClosed     = apperror.New(apperror.ErrCodeConflict, "задание завершено, переписка закрыта")
	ErrWrongRecipient = apperror.Validation("получатель должен быть второй стороной задания", map[string]string{"receiver_id": "not a counterparty"})
	ErrEmptyMessage   = apperror.Validation("сообщение не может быть пустым", map[string]string{"content": "content or file required"})
)

// Фразы, которыми раньше помечались служебные записи в общей переписке.
// Такие строки до появления поля kind сохранялись как обычные сообщения.
var legacySystemPhrases = []string{
	"bid received",
	"new bid",
	"bid accepted",
	"bid not selected",
	"dispute raised",
	"dispute resolved",
	"submission approved",
	"submission rejected",
	"work submitted",
}

// MessageRepository хранилище переписки.
type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	ListBetween(ctx context.Context, assignmentID, userA, userB uuid.UUID, kind valueobject.MessageKind) ([]models.Message, error)
	ListByKind(ctx context.Context, assignmentID uuid.UUID, kind valueobject.MessageKind) ([]models.Message, error)
	MarkRead(ctx context.Context, assignmentID, receiverID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, receiverID uuid.UUID, assignmentID *uuid.UUID) (int, error)
}

// MessageService переписка сторон задания.
type MessageService struct {
	repo        MessageRepository
	assignments AssignmentReader
	disputes    DisputeChecker
	payments    PaymentReader
	effects     sideEffects
}

// NewMessageService создаёт сервис переписки.
func NewMessageService(repo MessageRepository, assignments AssignmentReader, disputes DisputeChecker, payments PaymentReader, publisher EventPublisher) *MessageService {
	return &MessageService{
		repo:        repo,
		assignments: assignments,
		disputes:    disputes,
		payments:    payments,
		effects: sideEffects{
			publisher: publisher,
			log:       logger.Component("message-service"),
		},
	}
}

// Send отправляет сообщение второй стороне задания.
// Переписка закрыта до принятия отклика, во время спора и после завершения задания или выплаты.
func (s *MessageService) Send(ctx context.Context, actor Actor, assignmentID, receiverID uuid.UUID, content string, attachments any) (*models.Message, error) {
	content = strings.TrimSpace(content)
	files := models.NormalizeAttachments(attachments)
	if content == "" && len(files) == 0 {
		return nil, ErrEmptyMessage
	}
	if err := validation.ValidateLength("сообщение", content, 0, validation.MaxMessageLength); err != nil {
		return nil, validation.Field("content", err)
	}

	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !a.IsParticipant(actor.ID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "писать могут только заказчик и исполнитель")
	}
	if a.DoerID == nil {
		return nil, ErrChatNotStarted
	}
	open, err := s.disputes.HasOpen(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, common.ErrAssignmentInDispute
	}
	if a.Status == valueobject.AssignmentStatusCompleted {
		return nil, ErrChatClosed
	}
	final, err := s.payments.HasFinal(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if final {
		return nil, common.ErrPaymentFinalized
	}
	if counterparty, _ := a.Counterparty(actor.ID); counterparty != receiverID {
		return nil, ErrWrongRecipient
	}

	m := &models.Message{
		AssignmentID: assignmentID,
		SenderID:     actor.ID,
		ReceiverID:   receiverID,
		Content:      content,
		Attachments:  files,
		Kind:         valueobject.MessageKindUser,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.effects.log.WithFields(logrus.Fields{
		"message_id":    m.ID,
		"assignment_id": assignmentID,
	}).Debug("сообщение отправлено")

	// Обе стороны слушают канал задания, поэтому событие отправляется один раз.
	s.effects.publish(ctx, ws.TaskChannel(assignmentID), ws.EventNewMessage, m)
	return m, nil
}

// GetMessages возвращает переписку заказчика и исполнителя по возрастанию времени
// и отмечает прочитанными сообщения, адресованные вызывающему. Повторный вызов ничего не меняет.
func (s *MessageService) GetMessages(ctx context.Context, actor Actor, assignmentID uuid.UUID) ([]models.Message, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !actor.canView(a) {
		return nil, apperror.ErrForbidden
	}
	if a.DoerID == nil {
		return []models.Message{}, nil
	}

	messages, err := s.repo.ListBetween(ctx, assignmentID, a.PosterID, *a.DoerID, valueobject.MessageKindUser)
	if err != nil {
		return nil, err
	}

	if a.IsParticipant(actor.ID) {
		if _, err := s.repo.MarkRead(ctx, assignmentID, actor.ID); err != nil {
			return nil, err
		}
	}

	return filterLegacySystem(messages), nil
}

func filterLegacySystem(messages []models.Message) []models.Message {
	out := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if isLegacySystemText(m.Content) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func isLegacySystemText(content string) bool {
	lower := strings.ToLower(content)
	for _, phrase := range legacySystemPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// GetActivity возвращает системные записи задания: принятие отклика, проверки работ, споры.
func (s *MessageService) GetActivity(ctx context.Context, actor Actor, assignmentID uuid.UUID) ([]models.Message, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !actor.canView(a) {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListByKind(ctx, assignmentID, valueobject.MessageKindSystem)
}

// UnreadCount количество непрочитанных сообщений пользователя.
func (s *MessageService) UnreadCount(ctx context.Context, actor Actor) (int, error) {
	return s.repo.CountUnread(ctx, actor.ID, nil)
}

// AssignmentUnreadCount количество непрочитанных сообщений пользователя по заданию.
func (s *MessageService) AssignmentUnreadCount(ctx context.Context, actor Actor, assignmentID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, actor.ID, &assignmentID)
}
