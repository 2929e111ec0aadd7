package service

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
)

// Actor авторизованный пользователь, от имени которого выполняется операция.
// Роль берётся из access токена, права на сущности проверяются по сохранённым полям.
type Actor struct {
	ID   uuid.UUID
	Role valueobject.Role
}

// IsAdmin сообщает, является ли пользователь администратором.
func (a Actor) IsAdmin() bool {
	return a.Role == valueobject.RoleAdmin
}

// canView участник задания или администратор.
func (a Actor) canView(assignment *models.Assignment) bool {
	return a.IsAdmin() || assignment.IsParticipant(a.ID)
}
