package valueobject

import (
	"math"

	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
)

// MaxAmount верхняя граница бюджета и ставки.
const MaxAmount = 100000000.0

// NewAmount проверяет, что сумма положительна и не превышает лимит, и округляет до копеек.
func NewAmount(field string, amount float64) (float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, apperror.Validation("сумма должна быть больше нуля", map[string]string{field: "must be greater than 0"})
	}
	if amount > MaxAmount {
		return 0, apperror.Validation("сумма превышает допустимый лимит", map[string]string{field: "exceeds maximum"})
	}
	return math.Round(amount*100) / 100, nil
}
