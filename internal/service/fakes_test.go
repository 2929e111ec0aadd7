package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskmarket-backend/internal/repository/common"
)

// marketStore хранилище в памяти. Обёртки ниже повторяют поведение
// SQL репозиториев, включая условные обновления и транзакционные переходы.
type marketStore struct {
	mu          sync.Mutex
	clock       time.Time
	users       map[uuid.UUID]*models.User
	assignments map[uuid.UUID]*models.Assignment
	bids        map[uuid.UUID]*models.Bid
	payments    map[uuid.UUID]*models.Payment
	submissions map[uuid.UUID]*models.Submission
	disputes    map[uuid.UUID]*models.Dispute
	followUps   map[uuid.UUID][]models.DisputeFollowUp
	messages    []*models.Message
}

func newMarketStore() *marketStore {
	return &marketStore{
		clock:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		users:       make(map[uuid.UUID]*models.User),
		assignments: make(map[uuid.UUID]*models.Assignment),
		bids:        make(map[uuid.UUID]*models.Bid),
		payments:    make(map[uuid.UUID]*models.Payment),
		submissions: make(map[uuid.UUID]*models.Submission),
		disputes:    make(map[uuid.UUID]*models.Dispute),
		followUps:   make(map[uuid.UUID][]models.DisputeFollowUp),
	}
}

// tick возвращает монотонно растущее время, чтобы порядок записей был детерминированным.
func (s *marketStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *marketStore) addUser(role valueobject.Role) Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: uuid.New(), Email: fmt.Sprintf("%s-%d@example.com", role, len(s.users)), Name: string(role), Role: role}
	s.users[u.ID] = u
	return Actor{ID: u.ID, Role: role}
}

func (s *marketStore) assignment(id uuid.UUID) models.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.assignments[id]
}

func (s *marketStore) payment(assignmentID uuid.UUID) *models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[assignmentID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (s *marketStore) bid(id uuid.UUID) models.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.bids[id]
}

// forceStatus выставляет статус задания в обход сервисов.
func (s *marketStore) forceStatus(id uuid.UUID, status valueobject.AssignmentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAssignmentStatus(id, status)
}

func (s *marketStore) setAssignmentStatus(id uuid.UUID, status valueobject.AssignmentStatus) *models.Assignment {
	a := s.assignments[id]
	a.Status = status
	a.UpdatedAt = s.tick()
	cp := *a
	return &cp
}

func (s *marketStore) setPaymentStatus(assignmentID uuid.UUID, status valueobject.PaymentStatus) (*models.Payment, error) {
	p, ok := s.payments[assignmentID]
	if !ok || p.Status.IsFinal() {
		return nil, common.ErrPaymentFinalized
	}
	p.Status = status
	p.UpdatedAt = s.tick()
	cp := *p
	return &cp, nil
}

func (s *marketStore) systemMessage(assignmentID, sender, receiver uuid.UUID, content string) {
	s.messages = append(s.messages, &models.Message{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		SenderID:     sender,
		ReceiverID:   receiver,
		Content:      content,
		Attachments:  models.Attachments{},
		Kind:         valueobject.MessageKindSystem,
		IsRead:       true,
		CreatedAt:    s.tick(),
	})
}

func (s *marketStore) hasOpenDispute(assignmentID uuid.UUID) bool {
	for _, d := range s.disputes {
		if d.AssignmentID == assignmentID && d.Status == valueobject.DisputeStatusOpen {
			return true
		}
	}
	return false
}

// --- assignments ---

type fakeAssignmentRepo struct{ s *marketStore }

func (r fakeAssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = r.s.tick()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.s.assignments[a.ID] = &cp
	return nil
}

func (r fakeAssignmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, apperror.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r fakeAssignmentRepo) List(ctx context.Context, f models.AssignmentFilter) ([]models.Assignment, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []models.Assignment{}
	for _, a := range r.s.assignments {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.PosterID != nil && a.PosterID != *f.PosterID {
			continue
		}
		list = append(list, *a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	total := len(list)
	if f.Offset < len(list) {
		list = list[f.Offset:]
	} else {
		list = []models.Assignment{}
	}
	if f.Limit > 0 && len(list) > f.Limit {
		list = list[:f.Limit]
	}
	return list, total, nil
}

func (r fakeAssignmentRepo) UpdateOpen(ctx context.Context, a *models.Assignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.assignments[a.ID]
	if !ok || stored.PosterID != a.PosterID || stored.Status != valueobject.AssignmentStatusOpen {
		return common.ErrAssignmentNotOpen
	}
	stored.Title, stored.Description, stored.Category = a.Title, a.Description, a.Category
	stored.Budget, stored.Deadline, stored.Attachments = a.Budget, a.Deadline, a.Attachments
	stored.UpdatedAt = r.s.tick()
	*a = *stored
	return nil
}

func (r fakeAssignmentRepo) DeleteOpen(ctx context.Context, id, posterID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.assignments[id]
	if !ok || stored.PosterID != posterID || stored.Status != valueobject.AssignmentStatusOpen {
		return common.ErrAssignmentNotOpen
	}
	delete(r.s.assignments, id)
	return nil
}

func (r fakeAssignmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.AssignmentStatus) (*models.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.assignments[id]
	if !ok || stored.Status != from {
		return nil, common.ErrAssignmentStateChanged
	}
	return r.s.setAssignmentStatus(id, to), nil
}

// --- bids ---

type fakeBidRepo struct{ s *marketStore }

func (r fakeBidRepo) Create(ctx context.Context, bid *models.Bid) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bids {
		if b.AssignmentID == bid.AssignmentID && b.UserID == bid.UserID {
			return common.ErrDuplicateBid
		}
	}
	bid.ID = uuid.New()
	bid.CreatedAt = r.s.tick()
	bid.UpdatedAt = bid.CreatedAt
	cp := *bid
	r.s.bids[bid.ID] = &cp
	return nil
}

func (r fakeBidRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bids[id]
	if !ok {
		return nil, apperror.ErrBidNotFound
	}
	cp := *b
	return &cp, nil
}

func (r fakeBidRepo) FindByAssignmentAndUser(ctx context.Context, assignmentID, userID uuid.UUID) (*models.Bid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bids {
		if b.AssignmentID == assignmentID && b.UserID == userID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (r fakeBidRepo) list(match func(*models.Bid) bool) []models.Bid {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []models.Bid{}
	for _, b := range r.s.bids {
		if match(b) {
			list = append(list, *b)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

func (r fakeBidRepo) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.Bid, error) {
	return r.list(func(b *models.Bid) bool { return b.AssignmentID == assignmentID }), nil
}

func (r fakeBidRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Bid, error) {
	return r.list(func(b *models.Bid) bool { return b.UserID == userID }), nil
}

func (r fakeBidRepo) UpdatePending(ctx context.Context, bid *models.Bid) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.bids[bid.ID]
	if !ok || stored.UserID != bid.UserID || stored.Status != valueobject.BidStatusPending {
		return common.ErrBidNotPending
	}
	stored.Content, stored.BidAmount, stored.UpdatedAt = bid.Content, bid.BidAmount, r.s.tick()
	*bid = *stored
	return nil
}

func (r fakeBidRepo) DeletePending(ctx context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.bids[id]
	if !ok || stored.UserID != userID || stored.Status != valueobject.BidStatusPending {
		return common.ErrBidNotPending
	}
	delete(r.s.bids, id)
	return nil
}

func (r fakeBidRepo) Reject(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.bids[id]
	if !ok || stored.Status != valueobject.BidStatusPending ||
		r.s.assignments[stored.AssignmentID].Status != valueobject.AssignmentStatusOpen {
		return nil, common.ErrBidNotPending
	}
	stored.Status = valueobject.BidStatusRejected
	cp := *stored
	return &cp, nil
}

func (r fakeBidRepo) Accept(ctx context.Context, bidID uuid.UUID) (*models.AcceptBidResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	bid, ok := r.s.bids[bidID]
	if !ok {
		return nil, apperror.ErrBidNotFound
	}
	a := r.s.assignments[bid.AssignmentID]
	if a.Status != valueobject.AssignmentStatusOpen || a.DoerID != nil {
		return nil, common.ErrAssignmentNotOpen
	}
	if bid.Status != valueobject.BidStatusPending {
		return nil, common.ErrBidNotPending
	}

	doer := bid.UserID
	a.DoerID = &doer
	assignment := r.s.setAssignmentStatus(a.ID, valueobject.AssignmentStatusAssigned)

	bid.Status = valueobject.BidStatusAccepted
	accepted := *bid

	rejected := []models.Bid{}
	for _, b := range r.s.bids {
		if b.AssignmentID == a.ID && b.ID != bidID && b.Status != valueobject.BidStatusRejected {
			b.Status = valueobject.BidStatusRejected
			rejected = append(rejected, *b)
		}
	}

	p := &models.Payment{
		ID:           uuid.New(),
		AssignmentID: a.ID,
		Amount:       bid.BidAmount,
		Status:       valueobject.PaymentStatusPending,
		CreatedAt:    r.s.tick(),
	}
	r.s.payments[a.ID] = p
	payment := *p

	r.s.systemMessage(a.ID, a.PosterID, doer, fmt.Sprintf("Bid accepted: %.2f", bid.BidAmount))

	return &models.AcceptBidResult{Assignment: assignment, Accepted: &accepted, Rejected: rejected, Payment: &payment}, nil
}

// --- payments ---

type fakePaymentRepo struct{ s *marketStore }

func (r fakePaymentRepo) GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.Payment, error) {
	if p := r.s.payment(assignmentID); p != nil {
		return p, nil
	}
	return nil, apperror.ErrPaymentNotFound
}

func (r fakePaymentRepo) HasFinal(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	p := r.s.payment(assignmentID)
	return p != nil && p.Status.IsFinal(), nil
}

// --- submissions ---

type fakeSubmissionRepo struct{ s *marketStore }

func (r fakeSubmissionRepo) Create(ctx context.Context, sub *models.Submission) (*models.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[sub.AssignmentID]
	if !ok {
		return nil, apperror.ErrAssignmentNotFound
	}
	switch {
	case a.Status == valueobject.AssignmentStatusInDispute:
		return nil, common.ErrAssignmentInDispute
	case a.Status.IsTerminal():
		return nil, common.ErrAssignmentClosed
	}
	sub.ID = uuid.New()
	sub.CreatedAt = r.s.tick()
	cp := *sub
	r.s.submissions[sub.ID] = &cp

	if a.Status == valueobject.AssignmentStatusInProgress {
		return r.s.setAssignmentStatus(a.ID, valueobject.AssignmentStatusUnderReview), nil
	}
	out := *a
	return &out, nil
}

func (r fakeSubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.submissions[id]
	if !ok {
		return nil, apperror.ErrSubmissionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r fakeSubmissionRepo) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []models.Submission{}
	for _, sub := range r.s.submissions {
		if sub.AssignmentID == assignmentID {
			list = append(list, *sub)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r fakeSubmissionRepo) Review(ctx context.Context, submissionID uuid.UUID, decision valueobject.SubmissionStatus) (*models.SubmissionReview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.submissions[submissionID]
	if !ok {
		return nil, apperror.ErrSubmissionNotFound
	}
	a := r.s.assignments[sub.AssignmentID]
	if a.Status != valueobject.AssignmentStatusInProgress && a.Status != valueobject.AssignmentStatusUnderReview {
		return nil, common.ErrNotReviewable
	}
	if sub.Status != valueobject.SubmissionStatusPending {
		return nil, common.ErrSubmissionReviewed
	}

	result := &models.SubmissionReview{}
	next := valueobject.AssignmentStatusInProgress
	if decision == valueobject.SubmissionStatusApproved {
		next = valueobject.AssignmentStatusCompleted
		p, err := r.s.setPaymentStatus(a.ID, valueobject.PaymentStatusReleased)
		if err != nil {
			return nil, err
		}
		result.Payment = p
	}

	now := r.s.tick()
	sub.Status = decision
	sub.ReviewedAt = &now
	cp := *sub
	result.Submission = &cp
	result.Assignment = r.s.setAssignmentStatus(a.ID, next)
	r.s.systemMessage(a.ID, a.PosterID, sub.UserID, "Submission "+string(decision))
	return result, nil
}

// --- disputes ---

type fakeDisputeRepo struct{ s *marketStore }

func (r fakeDisputeRepo) Open(ctx context.Context, d *models.Dispute) (*models.DisputeOpening, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a := r.s.assignments[d.AssignmentID]
	switch {
	case a.Status == valueobject.AssignmentStatusInDispute || r.s.hasOpenDispute(a.ID):
		return nil, common.ErrDisputeAlreadyOpen
	case a.Status.IsTerminal():
		return nil, common.ErrAssignmentClosed
	}
	p, ok := r.s.payments[a.ID]
	if !ok {
		return nil, apperror.ErrPaymentNotFound
	}

	d.ID = uuid.New()
	d.PaymentID = p.ID
	d.Status = valueobject.DisputeStatusOpen
	d.CreatedAt = r.s.tick()
	cp := *d
	r.s.disputes[d.ID] = &cp

	payment, err := r.s.setPaymentStatus(a.ID, valueobject.PaymentStatusDisputed)
	if err != nil {
		return nil, err
	}
	assignment := r.s.setAssignmentStatus(a.ID, valueobject.AssignmentStatusInDispute)
	r.s.systemMessage(a.ID, d.InitiatorID, a.PosterID, "Dispute raised: "+d.Reason)

	return &models.DisputeOpening{Dispute: d, Assignment: assignment, Payment: payment}, nil
}

func (r fakeDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.disputes[id]
	if !ok {
		return nil, apperror.ErrDisputeNotFound
	}
	cp := *d
	return &cp, nil
}

func (r fakeDisputeRepo) GetLatestByAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *models.Dispute
	for _, d := range r.s.disputes {
		if d.AssignmentID == assignmentID && (latest == nil || d.CreatedAt.After(latest.CreatedAt)) {
			latest = d
		}
	}
	if latest == nil {
		return nil, apperror.ErrDisputeNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r fakeDisputeRepo) HasOpen(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.hasOpenDispute(assignmentID), nil
}

func (r fakeDisputeRepo) List(ctx context.Context, f models.DisputeFilter) ([]models.Dispute, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []models.Dispute{}
	for _, d := range r.s.disputes {
		if f.Status != nil && d.Status != *f.Status {
			continue
		}
		if f.ParticipantID != nil {
			a := r.s.assignments[d.AssignmentID]
			if d.InitiatorID != *f.ParticipantID && !a.IsParticipant(*f.ParticipantID) {
				continue
			}
		}
		list = append(list, *d)
	}
	return list, len(list), nil
}

func (r fakeDisputeRepo) Respond(ctx context.Context, id uuid.UUID, response string, evidence models.Attachments) (*models.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.disputes[id]
	if !ok || d.Status != valueobject.DisputeStatusOpen {
		return nil, common.ErrDisputeNotOpen
	}
	d.Response = &response
	d.ResponseEvidence = evidence
	d.HasResponse = true
	cp := *d
	return &cp, nil
}

func (r fakeDisputeRepo) AddFollowUp(ctx context.Context, f *models.DisputeFollowUp) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f.ID = uuid.New()
	f.CreatedAt = r.s.tick()
	r.s.followUps[f.DisputeID] = append(r.s.followUps[f.DisputeID], *f)
	return nil
}

func (r fakeDisputeRepo) ListFollowUps(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeFollowUp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]models.DisputeFollowUp{}, r.s.followUps[disputeID]...), nil
}

func (r fakeDisputeRepo) Resolve(ctx context.Context, id, adminID uuid.UUID, resolution string, status valueobject.DisputeStatus) (*models.DisputeResolution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.disputes[id]
	if !ok {
		return nil, apperror.ErrDisputeNotFound
	}
	if d.Status != valueobject.DisputeStatusOpen {
		return nil, common.ErrDisputeNotOpen
	}

	now := r.s.tick()
	d.Status = status
	d.Resolution = &resolution
	d.ResolvedByID = &adminID
	d.ResolvedAt = &now

	assignmentStatus, paymentStatus := status.Outcome()
	payment, err := r.s.setPaymentStatus(d.AssignmentID, paymentStatus)
	if err != nil {
		return nil, err
	}
	assignment := r.s.setAssignmentStatus(d.AssignmentID, assignmentStatus)
	r.s.systemMessage(d.AssignmentID, adminID, assignment.PosterID, "Dispute resolved: "+resolution)

	cp := *d
	return &models.DisputeResolution{Dispute: &cp, Assignment: assignment, Payment: payment}, nil
}

// --- messages ---

type fakeMessageRepo struct{ s *marketStore }

func (r fakeMessageRepo) Create(ctx context.Context, m *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = r.s.tick()
	cp := *m
	r.s.messages = append(r.s.messages, &cp)
	return nil
}

func (r fakeMessageRepo) ListBetween(ctx context.Context, assignmentID, userA, userB uuid.UUID, kind valueobject.MessageKind) ([]models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []models.Message{}
	for _, m := range r.s.messages {
		if m.AssignmentID != assignmentID || m.Kind != kind {
			continue
		}
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			list = append(list, *m)
		}
	}
	return list, nil
}

func (r fakeMessageRepo) ListByKind(ctx context.Context, assignmentID uuid.UUID, kind valueobject.MessageKind) ([]models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []models.Message{}
	for _, m := range r.s.messages {
		if m.AssignmentID == assignmentID && m.Kind == kind {
			list = append(list, *m)
		}
	}
	return list, nil
}

func (r fakeMessageRepo) MarkRead(ctx context.Context, assignmentID, receiverID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, m := range r.s.messages {
		if m.AssignmentID == assignmentID && m.ReceiverID == receiverID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (r fakeMessageRepo) CountUnread(ctx context.Context, receiverID uuid.UUID, assignmentID *uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.messages {
		if m.ReceiverID != receiverID || m.IsRead || m.Kind != valueobject.MessageKindUser {
			continue
		}
		if assignmentID != nil && m.AssignmentID != *assignmentID {
			continue
		}
		n++
	}
	return n, nil
}

// --- users ---

type fakeUserDirectory struct{ s *marketStore }

func (r fakeUserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r fakeUserDirectory) ListByRole(ctx context.Context, role valueobject.Role) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []models.User{}
	for _, u := range r.s.users {
		if u.Role == role {
			list = append(list, *u)
		}
	}
	return list, nil
}

// --- side effects ---

type publishedEvent struct {
	Channel string
	Event   string
	Data    any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, channel, event string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Channel: channel, Event: event, Data: data})
	return p.err
}

func (p *recordingPublisher) channels(event string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if e.Event == event {
			out = append(out, e.Channel)
		}
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []NotifyInput
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, in)
	if n.err != nil {
		return nil, n.err
	}
	return &models.Notification{ID: uuid.New(), UserID: in.UserID, Title: in.Title, Message: in.Message, Type: in.Type}, nil
}

func (n *recordingNotifier) titlesFor(userID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, in := range n.sent {
		if in.UserID == userID {
			out = append(out, in.Title)
		}
	}
	return out
}

// --- fixture ---

// market собирает все сервисы поверх одного хранилища.
type market struct {
	store       *marketStore
	publisher   *recordingPublisher
	notifier    *recordingNotifier
	assignments *AssignmentService
	bids        *BidService
	submissions *SubmissionService
	disputes    *DisputeService
	messages    *MessageService
}

func newMarket() *market {
	store := newMarketStore()
	publisher := &recordingPublisher{}
	notifier := &recordingNotifier{}

	assignmentRepo := fakeAssignmentRepo{store}
	payments := fakePaymentRepo{store}
	disputeRepo := fakeDisputeRepo{store}

	m := &market{
		store:       store,
		publisher:   publisher,
		notifier:    notifier,
		assignments: NewAssignmentService(assignmentRepo, payments, publisher, notifier),
		bids:        NewBidService(fakeBidRepo{store}, assignmentRepo, publisher, notifier),
		submissions: NewSubmissionService(fakeSubmissionRepo{store}, assignmentRepo, disputeRepo, payments, publisher, notifier),
		disputes:    NewDisputeService(disputeRepo, assignmentRepo, payments, fakeUserDirectory{store}, publisher, notifier),
		messages:    NewMessageService(fakeMessageRepo{store}, assignmentRepo, disputeRepo, payments, publisher),
	}
	m.assignments.now = func() time.Time { return store.clock }
	return m
}

func (m *market) postTask(poster Actor, budget float64) *models.Assignment {
	a, err := m.assignments.Create(context.Background(), poster, AssignmentInput{
		Title:       "Landing page",
		Description: "Build a landing page",
		Category:    "web",
		Budget:      budget,
	})
	if err != nil {
		panic(err)
	}
	return a
}

func (m *market) bid(doer Actor, assignmentID uuid.UUID, amount float64) *models.Bid {
	b, err := m.bids.Submit(context.Background(), doer, assignmentID, "I can do it", amount)
	if err != nil {
		panic(err)
	}
	return b
}

// assigned создаёт задание с принятым откликом и возвращает стороны.
func (m *market) assigned() (Actor, Actor, *models.Assignment) {
	poster := m.store.addUser(valueobject.RolePoster)
	doer := m.store.addUser(valueobject.RoleDoer)
	a := m.postTask(poster, 500)
	b := m.bid(doer, a.ID, 450)
	if _, err := m.bids.Accept(context.Background(), poster, b.ID); err != nil {
		panic(err)
	}
	current := m.store.assignment(a.ID)
	return poster, doer, &current
}

func (m *market) moveTo(doer Actor, assignmentID uuid.UUID, statuses ...valueobject.AssignmentStatus) {
	for _, status := range statuses {
		if _, err := m.assignments.UpdateStatus(context.Background(), doer, assignmentID, string(status)); err != nil {
			panic(err)
		}
	}
}
