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
	"github.com/ignatzorin/taskmarket-backend/internal/repository/common"
	"github.com/ignatzorin/taskmarket-backend/internal/service"
	"github.com/ignatzorin/taskmarket-backend/internal/validation"
)

type mockDisputeService struct {
	mock.Mock
}

func (m *mockDisputeService) Create(ctx context.Context, actor service.Actor, assignmentID uuid.UUID, reason string, evidence any) (*models.DisputeOpening, error) {
	args := m.Called(ctx, actor, assignmentID, reason, evidence)
	r, _ := args.Get(0).(*models.DisputeOpening)
	return r, args.Error(1)
}

func (m *mockDisputeService) Respond(ctx context.Context, actor service.Actor, disputeID uuid.UUID, response string, evidence any) (*models.Dispute, error) {
	args := m.Called(ctx, actor, disputeID, response, evidence)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputeService) AddFollowUp(ctx context.Context, actor service.Actor, disputeID uuid.UUID, message string, evidence any) (*models.DisputeFollowUp, error) {
	args := m.Called(ctx, actor, disputeID, message, evidence)
	f, _ := args.Get(0).(*models.DisputeFollowUp)
	return f, args.Error(1)
}

func (m *mockDisputeService) Resolve(ctx context.Context, actor service.Actor, disputeID uuid.UUID, resolution, status string) (*models.DisputeResolution, error) {
	args := m.Called(ctx, actor, disputeID, resolution, status)
	r, _ := args.Get(0).(*models.DisputeResolution)
	return r, args.Error(1)
}

func (m *mockDisputeService) Get(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, actor, id)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputeService) GetByAssignment(ctx context.Context, actor service.Actor, assignmentID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, actor, assignmentID)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputeService) List(ctx context.Context, actor service.Actor, f models.DisputeFilter) (*service.DisputePage, error) {
	args := m.Called(ctx, actor, f)
	p, _ := args.Get(0).(*service.DisputePage)
	return p, args.Error(1)
}

func disputeRouter(svc DisputeService, actor service.Actor) *gin.Engine {
	r := gin.New()
	h := NewDisputeHandler(svc, validation.New())
	g := r.Group("/", asUser(actor))
	g.POST("/tasks/:id/disputes", h.Create)
	g.GET("/disputes", h.List)
	g.POST("/disputes/:id/resolve", h.Resolve)
	return r
}

func TestDisputeHandler_Create_RequiresReason(t *testing.T) {
	doer := newActor(valueobject.RoleDoer)

	w := doJSON(disputeRouter(&mockDisputeService{}, doer), http.MethodPost, "/tasks/"+uuid.NewString()+"/disputes",
		map[string]any{"reason": ""})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Fields, "reason")
}

func TestDisputeHandler_Create_AlreadyOpen(t *testing.T) {
	doer := newActor(valueobject.RoleDoer)
	taskID := uuid.New()
	svc := &mockDisputeService{}
	svc.On("Create", mock.Anything, doer, taskID, "work ignored", nil).Return(nil, common.ErrDisputeAlreadyOpen)

	w := doJSON(disputeRouter(svc, doer), http.MethodPost, "/tasks/"+taskID.String()+"/disputes",
		map[string]any{"reason": "work ignored"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDisputeHandler_Resolve_UnknownStatus(t *testing.T) {
	admin := newActor(valueobject.RoleAdmin)
	svc := &mockDisputeService{}

	w := doJSON(disputeRouter(svc, admin), http.MethodPost, "/disputes/"+uuid.NewString()+"/resolve",
		map[string]any{"resolution": "split", "status": "RESOLVED_SPLIT"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Fields, "status")
	svc.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeHandler_Resolve(t *testing.T) {
	admin := newActor(valueobject.RoleAdmin)
	id := uuid.New()
	svc := &mockDisputeService{}
	svc.On("Resolve", mock.Anything, admin, id, "work delivered", "RESOLVED_RELEASE").Return(&models.DisputeResolution{
		Dispute:    &models.Dispute{ID: id, Status: valueobject.DisputeStatusResolvedRelease},
		Assignment: &models.Assignment{Status: valueobject.AssignmentStatusCompleted},
		Payment:    &models.Payment{Status: valueobject.PaymentStatusReleased},
	}, nil)

	w := doJSON(disputeRouter(svc, admin), http.MethodPost, "/disputes/"+id.String()+"/resolve",
		map[string]any{"resolution": "work delivered", "status": "RESOLVED_RELEASE"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestDisputeHandler_List_StatusFilter(t *testing.T) {
	admin := newActor(valueobject.RoleAdmin)
	svc := &mockDisputeService{}
	svc.On("List", mock.Anything, admin, mock.MatchedBy(func(f models.DisputeFilter) bool {
		return f.Status != nil && *f.Status == valueobject.DisputeStatusOpen
	})).Return(&service.DisputePage{Items: []models.Dispute{}}, nil)

	w := doJSON(disputeRouter(svc, admin), http.MethodGet, "/disputes?status=OPEN", nil)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
