package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
)

// Payment эскроу-платёж по заданию, создаётся при принятии отклика.
type Payment struct {
	ID           uuid.UUID                 `db:"id" json:"id"`
	AssignmentID uuid.UUID                 `db:"assignment_id" json:"assignment_id"`
	Amount       float64                   `db:"amount" json:"amount"`
	Status       valueobject.PaymentStatus `db:"status" json:"status"`
	CreatedAt    time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time                 `db:"updated_at" json:"updated_at"`
}
