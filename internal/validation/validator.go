package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
)

// Validator обёртка над go-playground/validator с именами полей из json тегов.
type Validator struct {
	validate *validator.Validate
}

// New создаёт валидатор и регистрирует правила домена.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	registerCustomRules(v)

	return &Validator{validate: v}
}

// Validate проверяет структуру. Ошибки правил возвращаются как VALIDATION_ERROR с картой полей.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperror.Wrap(err, apperror.ErrCodeBadRequest, "некорректный запрос")
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fe.Field()] = errorMessage(fe)
	}
	return apperror.Validation("ошибка валидации", fields)
}

// Field оборачивает ошибку проверки одного поля.
func Field(field string, err error) error {
	if err == nil {
		return nil
	}
	return apperror.Validation(err.Error(), map[string]string{field: err.Error()})
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "email":
		return "некорректный email"
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("минимальная длина %s", fe.Param())
		}
		return fmt.Sprintf("минимальное значение %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("максимальная длина %s", fe.Param())
		}
		return fmt.Sprintf("максимальное значение %s", fe.Param())
	case "gt":
		return fmt.Sprintf("значение должно быть больше %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("допустимые значения: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid":
		return "некорректный идентификатор"
	case "password":
		return "пароль: 8-72 символа, заглавная и строчная буквы, цифра"
	case "user-role":
		return "роль должна быть POSTER или DOER"
	case "task-status":
		return "некорректный статус задания"
	case "review-decision":
		return "решение должно быть approved или rejected"
	case "resolution-status":
		return "статус должен быть RESOLVED_RELEASE или RESOLVED_REFUND"
	case "future":
		return "дата должна быть в будущем"
	default:
		return fmt.Sprintf("некорректное значение (%s)", fe.Tag())
	}
}
