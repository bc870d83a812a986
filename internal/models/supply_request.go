package models

import "time"

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCompleted RequestStatus = "completed"
)

// requestTransitions is the full transition table of the replenishment
// workflow. rejected and completed are terminal.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:  {RequestStatusApproved, RequestStatusRejected},
	RequestStatusApproved: {RequestStatusCompleted},
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusCompleted:
		return true
	}
	return false
}

func (s RequestStatus) Terminal() bool {
	return s == RequestStatusRejected || s == RequestStatusCompleted
}

func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	for _, t := range requestTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// SupplyRequest: a replenishment request for a supply. Never deleted;
// history is kept for audit.
type SupplyRequest struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	SupplyID    uint          `gorm:"index;not null" json:"supply_id"`
	Quantity    int           `gorm:"not null" json:"quantity"`
	RequestedBy string        `gorm:"size:100;not null" json:"requested_by"`
	Department  string        `gorm:"size:100;not null" json:"department"`
	Status      RequestStatus `gorm:"size:20;not null;index;default:pending" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
