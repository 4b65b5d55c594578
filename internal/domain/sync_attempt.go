package domain

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncAttemptStatus is the outcome of one marketplace push.
type SyncAttemptStatus string

const (
	SyncAttemptSuccess SyncAttemptStatus = "success"
	SyncAttemptFailed  SyncAttemptStatus = "failed"
)

// SyncAttempt is an append-only audit row for one push to one marketplace
// warehouse. It is observability data, never a source of truth for
// quantities, and is never mutated after insertion.
type SyncAttempt struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AttemptID    string             `bson:"attemptId" json:"attemptId"`
	LinkID       string             `bson:"linkId" json:"linkId"`
	WarehouseID  string             `bson:"warehouseId" json:"warehouseId"`
	Marketplace  Marketplace        `bson:"marketplace" json:"marketplace"`
	Article      string             `bson:"article" json:"article"`
	QuantitySent int                `bson:"quantitySent" json:"quantitySent"`
	Status       SyncAttemptStatus  `bson:"status" json:"status"`
	ErrorMessage string             `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	Retryable    bool               `bson:"retryable" json:"retryable"`
	AttemptNo    int                `bson:"attemptNo" json:"attemptNo"`
	AttemptedAt  time.Time          `bson:"attemptedAt" json:"attemptedAt"`
}

// NewSyncAttempt records one push outcome.
func NewSyncAttempt(link *WarehouseLink, article string, quantity int, attemptNo int, pushErr error, retryable bool) *SyncAttempt {
	attempt := &SyncAttempt{
		AttemptID:    uuid.New().String(),
		LinkID:       link.LinkID,
		WarehouseID:  link.WarehouseID,
		Marketplace:  link.Marketplace,
		Article:      article,
		QuantitySent: quantity,
		Status:       SyncAttemptSuccess,
		AttemptNo:    attemptNo,
		AttemptedAt:  time.Now().UTC(),
	}
	if pushErr != nil {
		attempt.Status = SyncAttemptFailed
		attempt.ErrorMessage = pushErr.Error()
		attempt.Retryable = retryable
	}
	return attempt
}

// SyncHistoryFilter narrows audit queries for the history views.
type SyncHistoryFilter struct {
	Marketplace Marketplace
	WarehouseID string
	Article     string
	Status      SyncAttemptStatus
	From        time.Time
	To          time.Time
	Limit       int
	Offset      int
}
