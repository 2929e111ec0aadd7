package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/service"
	"github.com/ignatzorin/taskmarket-backend/internal/validation"
)

type mockMessageService struct {
	mock.Mock
}

func (m *mockMessageService) Send(ctx context.Context, actor service.Actor, assignmentID, receiverID uuid.UUID, content string, attachments any) (*models.Message, error) {
	args := m.Called(ctx, actor, assignmentID, receiverID, content, attachments)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}

func (m *mockMessageService) GetMessages(ctx context.Context, actor service.Actor, assignmentID uuid.UUID) ([]models.Message, error) {
	args := m.Called(ctx, actor, assignmentID)
	list, _ := args.Get(0).([]models.Message)
	return list, args.Error(1)
}

func (m *mockMessageService) GetActivity(ctx context.Context, actor service.Actor, assignmentID uuid.UUID) ([]models.Message, error) {
	args := m.Called(ctx, actor, assignmentID)
	list, _ := args.Get(0).([]models.Message)
	return list, args.Error(1)
}

func (m *mockMessageService) UnreadCount(ctx context.Context, actor service.Actor) (int, error) {
	args := m.Called(ctx, actor)
	return args.Int(0), args.Error(1)
}

func (m *mockMessageService) AssignmentUnreadCount(ctx context.Context, actor service.Actor, assignmentID uuid.UUID) (int, error) {
	args := m.Called(ctx, actor, assignmentID)
	return args.Int(0), args.Error(1)
}

func messageRouter(svc MessageService, actor service.Actor) *gin.Engine {
	r := gin.New()
	h := NewMessageHandler(svc, validation.New())
	g := r.Group("/", asUser(actor))
	g.POST("/tasks/:id/messages", h.Send)
	g.GET("/tasks/:id/messages", h.List)
	g.GET("/messages/unread-count", h.UnreadCount)
	return r
}

func TestMessageHandler_Send_ForwardsFileURLs(t *testing.T) {
	poster := newActor(valueobject.RolePoster)
	taskID, doerID := uuid.New(), uuid.New()
	svc := &mockMessageService{}
	svc.On("Send", mock.Anything, poster, taskID, doerID, "see attached", mock.MatchedBy(func(files any) bool {
		return len(models.NormalizeAttachments(files)) == 1
	})).Return(&models.Message{ID: uuid.New(), Content: "see attached", Kind: valueobject.MessageKindUser}, nil)

	w := doJSON(messageRouter(svc, poster), http.MethodPost, "/tasks/"+taskID.String()+"/messages", map[string]any{
		"receiver_id": doerID,
		"content":     "see attached",
		"file_urls":   []map[string]string{{"url": "https://cdn.example.com/a.png", "name": "a.png"}},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestMessageHandler_Send_RequiresReceiver(t *testing.T) {
	poster := newActor(valueobject.RolePoster)

	w := doJSON(messageRouter(&mockMessageService{}, poster), http.MethodPost, "/tasks/"+uuid.NewString()+"/messages",
		map[string]any{"content": "hi"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Fields, "receiver_id")
}

func TestMessageHandler_Send_ClosedChat(t *testing.T) {
	poster := newActor(valueobject.RolePoster)
	taskID, doerID := uuid.New(), uuid.New()
	svc := &mockMessageService{}
	svc.On("Send", mock.Anything, poster, taskID, doerID, "hi", nil).Return(nil, service.ErrChatClosed)

	w := doJSON(messageRouter(svc, poster), http.MethodPost, "/tasks/"+taskID.String()+"/messages",
		map[string]any{"receiver_id": doerID, "content": "hi"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, service.ErrChatClosed.Message, decode(t, w).Error)
}

func TestMessageHandler_UnreadCount(t *testing.T) {
	doer := newActor(valueobject.RoleDoer)
	svc := &mockMessageService{}
	svc.On("UnreadCount", mock.Anything, doer).Return(3, nil)

	w := doJSON(messageRouter(svc, doer), http.MethodGet, "/messages/unread-count", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":3}`, string(decode(t, w).Data))
}
