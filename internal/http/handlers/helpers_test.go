package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/http/middleware"
	"github.com/ignatzorin/taskmarket-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope конверт ответа с сырым data для разбора в тестах.
type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields"`
}

// asUser подставляет пользователя так же, как AuthMiddleware.
func asUser(actor service.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, actor.ID)
		c.Set(middleware.ContextRoleKey, string(actor.Role))
		c.Next()
	}
}

func newActor(role valueobject.Role) service.Actor {
	return service.Actor{ID: uuid.New(), Role: role}
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}
