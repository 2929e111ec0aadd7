package validation

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
)

func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			logger.Log.Fatalf("validation: не удалось зарегистрировать правило %q: %v", tag, err)
		}
	}

	mustRegister("password", validatePassword)
	mustRegister("user-role", validateSignupRole)
	mustRegister("task-status", validateTaskStatus)
	mustRegister("review-decision", validateReviewDecision)
	mustRegister("resolution-status", validateResolutionStatus)
	mustRegister("future", validateFuture)
}

func validatePassword(fl validator.FieldLevel) bool {
	return ValidatePassword(fl.Field().String()) == nil
}

// Администратора через регистрацию создать нельзя.
func validateSignupRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	role := valueobject.Role(value)
	return role == valueobject.RolePoster || role == valueobject.RoleDoer
}

func validateTaskStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return valueobject.AssignmentStatus(value).IsValid()
}

func validateReviewDecision(fl validator.FieldLevel) bool {
	_, err := valueobject.NewReviewDecision(fl.Field().String())
	return err == nil
}

func validateResolutionStatus(fl validator.FieldLevel) bool {
	_, err := valueobject.NewResolutionStatus(fl.Field().String())
	return err == nil
}

func validateFuture(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case time.Time:
		return v.IsZero() || v.After(time.Now())
	case *time.Time:
		return v == nil || v.After(time.Now())
	}
	return true
}
