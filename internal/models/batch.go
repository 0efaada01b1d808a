package models

import "time"

// Batch types, one per supply-chain stage.
const (
	TypeRawMaterial  = "raw_material"
	TypeLot          = "lot"
	TypeProcessed    = "processed"
	TypeFinalProduct = "final_product"
)

// Batch statuses.
const (
	StatusCreated      = "created"
	StatusInTransit    = "in_transit"
	StatusReceived     = "received"
	StatusProcessing   = "processing"
	StatusProcessed    = "processed"
	StatusConsolidated = "consolidated"
	StatusFinalized    = "finalized"
	StatusDispatched   = "dispatched"
	StatusRecalled     = "recalled"
)

// Batch is a tracked unit of material at one stage of the supply chain.
// ID is the internal row identifier; BatchID is the caller-supplied
// business key used in the API, links use internal IDs.
type Batch struct {
	ID       string `gorm:"primaryKey;size:36"`
	BatchID  string `gorm:"size:64;not null;uniqueIndex"`
	Type     string `gorm:"size:16;not null;index"`
	Status   string `gorm:"size:16;not null;index"`
	OwnerID  string `gorm:"size:64;index"`

	ProductName string  `gorm:"size:128"`
	Quantity    float64
	Unit        string `gorm:"size:16"`

	SourceLocation      string `gorm:"size:128"`
	DestinationLocation string `gorm:"size:128"`

	// Farmer provenance, set only on raw_material batches.
	FarmerID       string `gorm:"size:64"`
	FarmerName     string `gorm:"size:128"`
	FarmerPhone    string `gorm:"size:32"`
	FarmerLocation string `gorm:"size:128"`

	// QRPayload is written once at final-product creation and never updated.
	QRPayload string `gorm:"type:json"`
	Metadata  string `gorm:"type:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
