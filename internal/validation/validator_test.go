package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
)

type sampleRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,password"`
	Role     string     `json:"role" validate:"omitempty,user-role"`
	Status   string     `form:"status" validate:"omitempty,task-status"`
	Deadline *time.Time `json:"deadline" validate:"omitempty,future"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
	return appErr.Fields
}

func TestValidator_CustomRules(t *testing.T) {
	v := New()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	assert.NoError(t, v.Validate(sampleRequest{
		Email:    "a@example.com",
		Password: "Password123",
		Role:     "POSTER",
		Status:   "OPEN",
		Deadline: &future,
	}))

	fields := fieldsOf(t, v.Validate(sampleRequest{
		Email:    "nope",
		Password: "password",
		Role:     "ADMIN",
		Status:   "DONE",
		Deadline: &past,
	}))
	assert.Equal(t, "некорректный email", fields["email"])
	assert.Contains(t, fields, "password")
	assert.Equal(t, "роль должна быть POSTER или DOER", fields["role"])
	// имя берётся из form тега, когда json тега нет
	assert.Contains(t, fields, "status")
	assert.Equal(t, "дата должна быть в будущем", fields["deadline"])
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Password123"))
	for _, bad := range []string{"Pa1", "password123", "PASSWORD123", "Passwordxyz"} {
		assert.Error(t, ValidatePassword(bad), bad)
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail(" User@Example.com "))
	for _, bad := range []string{"", "user", "user@", "@example.com", "a@b@c.com", "user@example"} {
		assert.Error(t, ValidateEmail(bad), bad)
	}
}

func TestField(t *testing.T) {
	assert.NoError(t, Field("x", nil))
	fields := fieldsOf(t, Field("title", errors.New("пусто")))
	assert.Equal(t, "пусто", fields["title"])
}
