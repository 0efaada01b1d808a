package models

import "time"

// History event types.
const (
	EventBatchCreated    = "BatchCreated"
	EventProcessingStep  = "ProcessingStep"
	EventFormulation     = "Formulation"
	EventRecall          = "Recall"
	EventCustodyTransfer = "CustodyTransfer"
)

// BatchHistory is an immutable audit record. Rows are created, never
// updated or deleted. BatchID references the internal batch row ID.
type BatchHistory struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	BatchID   string    `gorm:"size:36;not null;index"`
	EventType string    `gorm:"size:32;not null"`
	ActorID   string    `gorm:"size:64"`
	Details   string    `gorm:"type:json"`
	Timestamp time.Time `gorm:"index"`
}
