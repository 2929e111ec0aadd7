package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
)

type Dispute struct {
	ID               uuid.UUID                 `db:"id" json:"id"`
	AssignmentID     uuid.UUID                 `db:"assignment_id" json:"assignment_id"`
	PaymentID        uuid.UUID                 `db:"payment_id" json:"payment_id"`
	InitiatorID      uuid.UUID                 `db:"initiator_id" json:"initiator_id"`
	Reason           string                    `db:"reason" json:"reason"`
	Evidence         Attachments               `db:"evidence" json:"evidence"`
	Status           valueobject.DisputeStatus `db:"status" json:"status"`
	Response         *string                   `db:"response" json:"response,omitempty"`
	ResponseEvidence Attachments               `db:"response_evidence" json:"response_evidence"`
	HasResponse      bool                      `db:"has_response" json:"has_response"`
	Resolution       *string                   `db:"resolution" json:"resolution,omitempty"`
	ResolvedByID     *uuid.UUID                `db:"resolved_by_id" json:"resolved_by_id,omitempty"`
	CreatedAt        time.Time                 `db:"created_at" json:"created_at"`
	ResolvedAt       *time.Time                `db:"resolved_at" json:"resolved_at,omitempty"`

	FollowUps []DisputeFollowUp `db:"-" json:"follow_ups,omitempty"`
}

type DisputeFollowUp struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	DisputeID uuid.UUID   `db:"dispute_id" json:"dispute_id"`
	SenderID  uuid.UUID   `db:"sender_id" json:"sender_id"`
	Message   string      `db:"message" json:"message"`
	Evidence  Attachments `db:"evidence" json:"evidence"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// DisputeFilter параметры выборки споров.
type DisputeFilter struct {
	Status        *valueobject.DisputeStatus
	ParticipantID *uuid.UUID
	Limit         int
	Offset        int
}

// DisputeResolution итог арбитража вместе с изменёнными сущностями.
type DisputeResolution struct {
	Dispute    *Dispute    `json:"dispute"`
	Assignment *Assignment `json:"assignment"`
	Payment    *Payment    `json:"payment"`
}

// DisputeOpening изменения, сделанные при открытии спора.
type DisputeOpening struct {
	Dispute    *Dispute    `json:"dispute"`
	Assignment *Assignment `json:"assignment"`
	Payment    *Payment    `json:"payment"`
}
