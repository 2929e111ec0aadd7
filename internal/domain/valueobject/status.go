package valueobject

import (
	"slices"

	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
)

// Role роль пользователя на площадке.
type Role string

const (
	RolePoster Role = "POSTER"
	RoleDoer   Role = "DOER"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePoster, RoleDoer, RoleAdmin:
		return true
	}
	return false
}

func NewRole(role string) (Role, error) {
	r := Role(role)
	if !r.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректная роль пользователя")
	}
	return r, nil
}

// AssignmentStatus статус задания.
type AssignmentStatus string

const (
	AssignmentStatusOpen        AssignmentStatus = "OPEN"
	AssignmentStatusAssigned    AssignmentStatus = "ASSIGNED"
	AssignmentStatusInProgress  AssignmentStatus = "IN_PROGRESS"
	AssignmentStatusUnderReview AssignmentStatus = "UNDER_REVIEW"
	AssignmentStatusCompleted   AssignmentStatus = "COMPLETED"
	AssignmentStatusInDispute   AssignmentStatus = "IN_DISPUTE"
	AssignmentStatusCancelled   AssignmentStatus = "CANCELLED"
)

// doerTransitions переходы, которые исполнитель выполняет сам.
// IN_DISPUTE и CANCELLED выставляются только спором.
var doerTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentStatusAssigned:    {AssignmentStatusInProgress},
	AssignmentStatusInProgress:  {AssignmentStatusUnderReview},
	AssignmentStatusUnderReview: {AssignmentStatusCompleted, AssignmentStatusInProgress},
}

func (s AssignmentStatus) IsValid() bool {
	switch s {
	case AssignmentStatusOpen, AssignmentStatusAssigned, AssignmentStatusInProgress,
		AssignmentStatusUnderReview, AssignmentStatusCompleted, AssignmentStatusInDispute,
		AssignmentStatusCancelled:
		return true
	}
	return false
}

// IsTerminal сообщает, что задание закрыто навсегда.
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentStatusCompleted || s == AssignmentStatusCancelled
}

// CanTransitionTo проверяет переход по таблице исполнителя.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	return slices.Contains(doerTransitions[s], next)
}

// TransitionError возвращает ошибку недопустимого перехода.
func (s AssignmentStatus) TransitionError(next AssignmentStatus) error {
	return apperror.Newf(apperror.ErrCodeConflict, "cannot transition from %s to %s", s, next)
}

func NewAssignmentStatus(status string) (AssignmentStatus, error) {
	s := AssignmentStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус задания")
	}
	return s, nil
}

// BidStatus статус отклика.
type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

func (s BidStatus) IsValid() bool {
	switch s {
	case BidStatusPending, BidStatusAccepted, BidStatusRejected:
		return true
	}
	return false
}

// SubmissionStatus статус сданной работы.
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// NewReviewDecision принимает только решения заказчика: approved или rejected.
// "accepted" считается синонимом approved.
func NewReviewDecision(status string) (SubmissionStatus, error) {
	switch SubmissionStatus(status) {
	case SubmissionStatusApproved, "accepted":
		return SubmissionStatusApproved, nil
	case SubmissionStatusRejected:
		return SubmissionStatusRejected, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "решение должно быть approved или rejected")
}

// PaymentStatus статус эскроу-платежа.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusDisputed  PaymentStatus = "DISPUTED"
	PaymentStatusReleased  PaymentStatus = "RELEASED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// IsFinal сообщает, что деньги уже ушли исполнителю или вернулись заказчику.
func (s PaymentStatus) IsFinal() bool {
	return s == PaymentStatusReleased || s == PaymentStatusRefunded
}

// DisputeStatus статус спора.
type DisputeStatus string

const (
	DisputeStatusOpen            DisputeStatus = "OPEN"
	DisputeStatusResolvedRelease DisputeStatus = "RESOLVED_RELEASE"
	DisputeStatusResolvedRefund  DisputeStatus = "RESOLVED_REFUND"
	DisputeStatusCancelled       DisputeStatus = "CANCELLED"
)

func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusResolvedRelease, DisputeStatusResolvedRefund, DisputeStatusCancelled:
		return true
	}
	return false
}

// NewResolutionStatus допускает только два исхода арбитража. Остальные значения отклоняются.
func NewResolutionStatus(status string) (DisputeStatus, error) {
	switch s := DisputeStatus(status); s {
	case DisputeStatusResolvedRelease, DisputeStatusResolvedRefund:
		return s, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "статус решения должен быть RESOLVED_RELEASE или RESOLVED_REFUND")
}

// Outcome возвращает итоговые статусы задания и платежа для решения по спору.
func (s DisputeStatus) Outcome() (AssignmentStatus, PaymentStatus) {
	if s == DisputeStatusResolvedRelease {
		return AssignmentStatusCompleted, PaymentStatusReleased
	}
	return AssignmentStatusCancelled, PaymentStatusRefunded
}

// MessageKind отличает переписку сторон от системных записей.
type MessageKind string

const (
	MessageKindUser   MessageKind = "USER"
	MessageKindSystem MessageKind = "SYSTEM"
)

// NotificationType категория уведомления.
type NotificationType string

const (
	NotificationTypeBid        NotificationType = "BID"
	NotificationTypeTask       NotificationType = "TASK"
	NotificationTypeSubmission NotificationType = "SUBMISSION"
	NotificationTypeDispute    NotificationType = "DISPUTE"
	NotificationTypeMessage    NotificationType = "MESSAGE"
	NotificationTypeSystem     NotificationType = "SYSTEM"
)
