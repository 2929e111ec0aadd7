package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Константы валидации
const (
	MinNameLength            = 2
	MaxNameLength            = 100
	MinTaskTitleLength       = 3
	MaxTaskTitleLength       = 200
	MaxTaskDescriptionLength = 5000
	MaxCategoryLength        = 64
	MaxBidContentLength      = 2000
	MaxMessageLength         = 5000
	MaxReasonLength          = 2000
	MaxAttachmentsCount      = 20
)

var (
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return fmt.Errorf("некорректный формат email")
	}
	if len(local) == 0 || len(local) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domain) == 0 || len(domain) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}
	if !emailLocalRegex.MatchString(local) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}
	if !emailDomainRegex.MatchString(domain) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateText проверяет обязательный текст с ограничением длины.
func ValidateText(fieldName, value string, max int) error {
	if err := ValidateNonEmpty(fieldName, value); err != nil {
		return err
	}
	return ValidateLength(fieldName, strings.TrimSpace(value), 0, max)
}

// ValidateTaskTitle проверяет заголовок задания.
func ValidateTaskTitle(title string) error {
	if err := ValidateNonEmpty("заголовок", title); err != nil {
		return err
	}
	return ValidateLength("заголовок", strings.TrimSpace(title), MinTaskTitleLength, MaxTaskTitleLength)
}

// ValidateDeadline проверяет, что срок ещё не наступил.
func ValidateDeadline(deadline *time.Time, now time.Time) error {
	if deadline != nil && !deadline.After(now) {
		return fmt.Errorf("срок должен быть в будущем")
	}
	return nil
}
