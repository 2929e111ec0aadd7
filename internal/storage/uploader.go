package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
)

const keyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Store место, куда складываются файлы вложений.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Разрешённые MIME типы, определяемые по магическим байтам.
var allowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"application/zip": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
}

// Текстовые форматы магических байтов не имеют, для них смотрим на расширение.
var textExtensions = map[string]string{
	".txt": "text/plain",
	".md":  "text/markdown",
	".csv": "text/csv",
}

// Uploader проверяет тип и размер файла и сохраняет его в Store.
type Uploader struct {
	store          Store
	maxUploadBytes int64
}

// NewUploader создаёт загрузчик.
func NewUploader(store Store, maxUploadMB int64) *Uploader {
	return &Uploader{
		store:          store,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}
}

// MaxBytes возвращает лимит размера файла.
func (u *Uploader) MaxBytes() int64 {
	return u.maxUploadBytes
}

// Upload сохраняет файл пользователя и возвращает описание вложения {url, name, type}.
func (u *Uploader) Upload(ctx context.Context, userID uuid.UUID, originalName string, r io.Reader) (*models.Attachment, error) {
	limited := io.LimitedReader{R: r, N: u.maxUploadBytes + 1}
	data, err := io.ReadAll(&limited)
	if err != nil {
		return nil, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	if int64(len(data)) > u.maxUploadBytes {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "размер файла превышает лимит %d МБ", u.maxUploadBytes/1024/1024)
	}
	if len(data) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "файл не может быть пустым")
	}

	name := sanitizeFilename(originalName)
	contentType, ext, err := detectType(name, data)
	if err != nil {
		return nil, err
	}

	id, err := gonanoid.Generate(keyAlphabet, 21)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось сгенерировать ключ: %w", err)
	}
	key := fmt.Sprintf("%s/%s%s", userID.String(), id, ext)

	url, err := u.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return nil, err
	}

	return &models.Attachment{URL: url, Name: name, Type: contentType}, nil
}

func detectType(name string, data []byte) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(name))

	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown {
		if !allowedMimeTypes[kind.MIME.Value] {
			return "", "", apperror.Newf(apperror.ErrCodeValidation, "неподдерживаемый тип файла (%s)", kind.MIME.Value)
		}
		return kind.MIME.Value, "." + kind.Extension, nil
	}

	if mime, ok := textExtensions[ext]; ok {
		return mime, ext, nil
	}
	return "", "", apperror.New(apperror.ErrCodeValidation, "не удалось определить тип файла")
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		name = "file"
	}
	return name
}
