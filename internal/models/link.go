package models

import "time"

// Link types, one per engine operation that creates edges.
const (
	LinkConsolidation = "consolidation"
	LinkProcessing    = "processing"
	LinkFormulation   = "formulation"
)

// BatchLink is a directed derivation edge between two batches. The parent
// is always the derived (downstream) batch and the child its source
// (upstream) batch, for every link type. Links are append-only.
type BatchLink struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	ParentID string `gorm:"size:36;not null;index"`
	ChildID  string `gorm:"size:36;not null;index"`
	LinkType string `gorm:"size:16;not null"`

	CreatedAt time.Time

	Parent Batch `gorm:"foreignKey:ParentID"`
	Child  Batch `gorm:"foreignKey:ChildID"`
}
