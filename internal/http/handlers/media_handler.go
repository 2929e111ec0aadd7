package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskmarket-backend/internal/http/response"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
)

// AttachmentUploader сохраняет файл и возвращает описание вложения.
type AttachmentUploader interface {
	Upload(ctx context.Context, userID uuid.UUID, originalName string, r io.Reader) (*models.Attachment, error)
	MaxBytes() int64
}

// MediaHandler управляет загрузкой вложений.
type MediaHandler struct {
	uploader AttachmentUploader
}

// NewMediaHandler создаёт новый хэндлер.
func NewMediaHandler(uploader AttachmentUploader) *MediaHandler {
	return &MediaHandler{uploader: uploader}
}

// Upload обрабатывает POST /uploads (multipart, поле file).
// Ответ {url, name, type} кладётся клиентом в attachments, evidence или file_urls.
func (h *MediaHandler) Upload(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Запас на заголовки multipart сверх лимита файла.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploader.MaxBytes()+1<<20)

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "поле file обязательно")
		return
	}
	if file.Size == 0 {
		response.BadRequest(c, "файл не может быть пустым")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.BadRequest(c, "не удалось прочитать файл")
		return
	}
	defer src.Close()

	attachment, err := h.uploader.Upload(c.Request.Context(), userID, file.Filename, src)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, attachment)
}
