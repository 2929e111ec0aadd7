package common

import "github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"

// Ошибки состояния, которые репозитории возвращают при срабатывании условных обновлений.
var (
	ErrAssignmentNotOpen      = apperror.New(apperror.ErrCodeConflict, "задание уже не принимает отклики")
	ErrAssignmentStateChanged = apperror.New(apperror.ErrCodeConflict, "статус задания изменился, обновите страницу")
	ErrAssignmentInDispute    = apperror.New(apperror.ErrCodeConflict, "по заданию открыт спор")
	ErrAssignmentClosed       = apperror.New(apperror.ErrCodeConflict, "задание уже завершено")
	ErrBidNotPending          = apperror.New(apperror.ErrCodeConflict, "отклик уже рассмотрен")
	ErrDuplicateBid           = apperror.New(apperror.ErrCodeConflict, "вы уже откликнулись на это задание")
	ErrSubmissionReviewed     = apperror.New(apperror.ErrCodeConflict, "работа уже проверена")
	ErrNotReviewable          = apperror.New(apperror.ErrCodeConflict, "задание сейчас не на проверке")
	ErrPaymentFinalized       = apperror.New(apperror.ErrCodeConflict, "платёж уже завершён")
	ErrDisputeAlreadyOpen     = apperror.New(apperror.ErrCodeConflict, "по заданию уже открыт спор")
	ErrDisputeNotOpen         = apperror.New(apperror.ErrCodeConflict, "спор уже закрыт")
	ErrEmailTaken             = apperror.New(apperror.ErrCodeConflict, "email уже зарегистрирован")
)
