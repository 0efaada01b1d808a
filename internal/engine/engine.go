// Package engine implements the batch lineage and lifecycle engine: the
// four cascade operations (createLot, processLot, formulateProduct,
// recall) that mutate the batch store, link store, history log and
// notification sink as one atomic unit each.
package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusetu/setu/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Action names accepted by Execute, matching the wire protocol.
const (
	ActionCreateLot        = "createLot"
	ActionProcessLot       = "processLot"
	ActionFormulateProduct = "formulateProduct"
	ActionRecall           = "recall"
)

// Fixed source locations stamped on engine-created batches.
const (
	locAggregation   = "Aggregation Center"
	locProcessing    = "Processing Unit"
	locManufacturing = "Manufacturing Unit"
)

// Alerter receives best-effort recall alerts after a recall commits.
// Implementations must not block for long and must swallow their own
// delivery errors.
type Alerter interface {
	RecallAlert(batchID, reason string, affected []string)
}

// Options configures an Engine.
type Options struct {
	// Alerter, if set, is invoked after every committed recall.
	Alerter Alerter
	// SingleHop restricts the recall cascade to direct link neighbors,
	// matching the legacy behavior. The default cascades over the full
	// connected lineage component.
	SingleHop bool
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Engine executes lifecycle operations against a batch store.
type Engine struct {
	db        *gorm.DB
	log       *zap.Logger
	alerts    Alerter
	singleHop bool
}

// New returns an Engine bound to db.
func New(db *gorm.DB, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		db:        db,
		log:       log,
		alerts:    opts.Alerter,
		singleHop: opts.SingleHop,
	}
}

// CreateLotDetails is the payload for the createLot action.
type CreateLotDetails struct {
	ConstituentBatchIDs []string `json:"constituentBatchIds"`
	NewOwnerID          string   `json:"newOwnerId"`
	ProductName         string   `json:"productName"`
	Quantity            float64  `json:"quantity"`
	Unit                string   `json:"unit"`
}

// ProcessLotDetails is the payload for the processLot action.
type ProcessLotDetails struct {
	ParentLotID    string  `json:"parentLotId"`
	NewOwnerID     string  `json:"newOwnerId"`
	ProcessType    string  `json:"processType"`
	OutputQuantity float64 `json:"outputQuantity"`
	OutputUnit     string  `json:"outputUnit"`
}

// FormulateProductDetails is the payload for the formulateProduct action.
type FormulateProductDetails struct {
	InputBatchIDs []string `json:"inputBatchIds"`
	NewOwnerID    string   `json:"newOwnerId"`
	ProductName   string   `json:"productName"`
	FinalQuantity float64  `json:"finalQuantity"`
	FinalUnit     string   `json:"finalUnit"`
}

// RecallDetails is the payload for the recall action.
type RecallDetails struct {
	Reason  string `json:"reason"`
	ActorID string `json:"actorId"`
}

// Execute dispatches a raw action request to the matching operation.
func (e *Engine) Execute(action, batchID string, details json.RawMessage) error {
	switch action {
	case ActionCreateLot:
		var d CreateLotDetails
		if err := json.Unmarshal(details, &d); err != nil {
			return &ValidationError{Field: "details", Reason: err.Error()}
		}
		return e.CreateLot(batchID, d)
	case ActionProcessLot:
		var d ProcessLotDetails
		if err := json.Unmarshal(details, &d); err != nil {
			return &ValidationError{Field: "details", Reason: err.Error()}
		}
		return e.ProcessLot(batchID, d)
	case ActionFormulateProduct:
		var d FormulateProductDetails
		if err := json.Unmarshal(details, &d); err != nil {
			return &ValidationError{Field: "details", Reason: err.Error()}
		}
		return e.FormulateProduct(batchID, d)
	case ActionRecall:
		var d RecallDetails
		if err := json.Unmarshal(details, &d); err != nil {
			return &ValidationError{Field: "details", Reason: err.Error()}
		}
		return e.Recall(batchID, d)
	default:
		return &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", action)}
	}
}

// lockForUpdate applies a row lock on dialects that support it. SQLite
// (tests) rejects FOR UPDATE but serializes writing transactions anyway.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// appendHistory inserts an immutable audit entry for a batch row.
func appendHistory(tx *gorm.DB, internalID, eventType, actorID string, details map[string]interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("engine: marshal history details: %w", err)
	}
	entry := models.BatchHistory{
		BatchID:   internalID,
		EventType: eventType,
		ActorID:   actorID,
		Details:   string(payload),
		Timestamp: time.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("engine: append %s history: %w", eventType, err)
	}
	return nil
}

// ensureNewBatchID fails with ErrDuplicate if the business key is taken.
// Runs inside the operation's transaction, before the insert, so the
// caller gets a deterministic duplicate error rather than a bare
// constraint violation.
func ensureNewBatchID(tx *gorm.DB, batchID string) error {
	var count int64
	if err := tx.Model(&models.Batch{}).Where("batch_id = ?", batchID).Count(&count).Error; err != nil {
		return fmt.Errorf("engine: check batch %s: %w", batchID, err)
	}
	if count > 0 {
		return fmt.Errorf("engine: batch %s: %w", batchID, ErrDuplicate)
	}
	return nil
}
