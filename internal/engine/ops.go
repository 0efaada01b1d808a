package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusetu/setu/internal/metrics"
	"github.com/ayusetu/setu/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordOp updates the operation counter after an operation completes.
func recordOp(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.OperationsTotal.WithLabelValues(action, outcome).Inc()
}

// CreateLot consolidates constituent batches into a new lot. The lot
// insert, constituent status updates, link creation and history entry
// commit or roll back together.
func (e *Engine) CreateLot(lotID string, d CreateLotDetails) (err error) {
	defer func() { recordOp(ActionCreateLot, err) }()

	if lotID == "" {
		return &ValidationError{Field: "batchId", Reason: "is required"}
	}
	if len(d.ConstituentBatchIDs) == 0 {
		return &ValidationError{Field: "constituentBatchIds", Reason: "must be non-empty"}
	}
	if d.ProductName == "" {
		return &ValidationError{Field: "productName", Reason: "is required"}
	}
	if d.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureNewBatchID(tx, lotID); err != nil {
			return err
		}

		constituents, err := lockBatches(tx, d.ConstituentBatchIDs)
		if err != nil {
			return err
		}
		for _, c := range constituents {
			if !CanTransition(c.Status, models.StatusConsolidated) {
				return &TransitionError{BatchID: c.BatchID, From: c.Status, To: models.StatusConsolidated}
			}
		}

		lot := models.Batch{
			ID:             uuid.New().String(),
			BatchID:        lotID,
			Type:           models.TypeLot,
			Status:         models.StatusCreated,
			OwnerID:        d.NewOwnerID,
			ProductName:    d.ProductName,
			Quantity:       d.Quantity,
			Unit:           d.Unit,
			SourceLocation: locAggregation,
		}
		if err := tx.Create(&lot).Error; err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("engine: batch %s: %w", lotID, ErrDuplicate)
			}
			return fmt.Errorf("engine: create lot %s: %w", lotID, err)
		}

		if err := markStatus(tx, internalIDs(constituents), models.StatusConsolidated); err != nil {
			return err
		}

		for _, c := range constituents {
			link := models.BatchLink{ParentID: lot.ID, ChildID: c.ID, LinkType: models.LinkConsolidation}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("engine: link %s -> %s: %w", lotID, c.BatchID, err)
			}
		}

		return appendHistory(tx, lot.ID, models.EventBatchCreated, d.NewOwnerID, map[string]interface{}{
			"action":              "lot_created",
			"constituent_batches": d.ConstituentBatchIDs,
			"total_quantity":      d.Quantity,
		})
	})
	if err != nil {
		return err
	}

	e.log.Info("created lot",
		zap.String("lot_id", lotID),
		zap.Int("constituents", len(d.ConstituentBatchIDs)))
	return nil
}

// ProcessLot records the transformation of a lot into a processed batch.
func (e *Engine) ProcessLot(processedID string, d ProcessLotDetails) (err error) {
	defer func() { recordOp(ActionProcessLot, err) }()

	if processedID == "" {
		return &ValidationError{Field: "batchId", Reason: "is required"}
	}
	if d.ParentLotID == "" {
		return &ValidationError{Field: "parentLotId", Reason: "is required"}
	}
	if d.OutputQuantity <= 0 {
		return &ValidationError{Field: "outputQuantity", Reason: "must be positive"}
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureNewBatchID(tx, processedID); err != nil {
			return err
		}

		var parent models.Batch
		if err := lockForUpdate(tx).Where("batch_id = ?", d.ParentLotID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("engine: parent lot %s: %w", d.ParentLotID, ErrNotFound)
			}
			return fmt.Errorf("engine: load parent lot %s: %w", d.ParentLotID, err)
		}
		if !CanTransition(parent.Status, models.StatusProcessing) {
			return &TransitionError{BatchID: parent.BatchID, From: parent.Status, To: models.StatusProcessing}
		}

		processed := models.Batch{
			ID:             uuid.New().String(),
			BatchID:        processedID,
			Type:           models.TypeProcessed,
			Status:         models.StatusProcessed,
			OwnerID:        d.NewOwnerID,
			ProductName:    "Processed " + parent.ProductName,
			Quantity:       d.OutputQuantity,
			Unit:           d.OutputUnit,
			SourceLocation: locProcessing,
		}
		if err := tx.Create(&processed).Error; err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("engine: batch %s: %w", processedID, ErrDuplicate)
			}
			return fmt.Errorf("engine: create processed batch %s: %w", processedID, err)
		}

		if err := markStatus(tx, []string{parent.ID}, models.StatusProcessing); err != nil {
			return err
		}

		link := models.BatchLink{ParentID: processed.ID, ChildID: parent.ID, LinkType: models.LinkProcessing}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("engine: link %s -> %s: %w", processedID, d.ParentLotID, err)
		}

		return appendHistory(tx, processed.ID, models.EventProcessingStep, d.NewOwnerID, map[string]interface{}{
			"action":          "batch_processed",
			"parent_lot_id":   d.ParentLotID,
			"process_type":    d.ProcessType,
			"output_quantity": d.OutputQuantity,
		})
	})
	if err != nil {
		return err
	}

	e.log.Info("processed lot",
		zap.String("parent_lot_id", d.ParentLotID),
		zap.String("processed_id", processedID),
		zap.String("process_type", d.ProcessType))
	return nil
}

// FormulateProduct combines input batches into a final product carrying
// an immutable QR payload for downstream scanning.
func (e *Engine) FormulateProduct(productID string, d FormulateProductDetails) (err error) {
	defer func() { recordOp(ActionFormulateProduct, err) }()

	if productID == "" {
		return &ValidationError{Field: "batchId", Reason: "is required"}
	}
	if len(d.InputBatchIDs) == 0 {
		return &ValidationError{Field: "inputBatchIds", Reason: "must be non-empty"}
	}
	if d.ProductName == "" {
		return &ValidationError{Field: "productName", Reason: "is required"}
	}
	if d.FinalQuantity <= 0 {
		return &ValidationError{Field: "finalQuantity", Reason: "must be positive"}
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureNewBatchID(tx, productID); err != nil {
			return err
		}

		inputs, err := lockBatches(tx, d.InputBatchIDs)
		if err != nil {
			return err
		}
		for _, in := range inputs {
			if !CanTransition(in.Status, models.StatusFinalized) {
				return &TransitionError{BatchID: in.BatchID, From: in.Status, To: models.StatusFinalized}
			}
		}

		qr, err := json.Marshal(map[string]interface{}{
			"batch_id":          productID,
			"product_name":      d.ProductName,
			"manufactured_date": time.Now().UTC().Format(time.RFC3339),
			"manufacturer_id":   d.NewOwnerID,
		})
		if err != nil {
			return fmt.Errorf("engine: marshal qr payload: %w", err)
		}

		product := models.Batch{
			ID:             uuid.New().String(),
			BatchID:        productID,
			Type:           models.TypeFinalProduct,
			Status:         models.StatusFinalized,
			OwnerID:        d.NewOwnerID,
			ProductName:    d.ProductName,
			Quantity:       d.FinalQuantity,
			Unit:           d.FinalUnit,
			SourceLocation: locManufacturing,
			QRPayload:      string(qr),
		}
		if err := tx.Create(&product).Error; err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("engine: batch %s: %w", productID, ErrDuplicate)
			}
			return fmt.Errorf("engine: create final product %s: %w", productID, err)
		}

		if err := markStatus(tx, internalIDs(inputs), models.StatusFinalized); err != nil {
			return err
		}

		for _, in := range inputs {
			link := models.BatchLink{ParentID: product.ID, ChildID: in.ID, LinkType: models.LinkFormulation}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("engine: link %s -> %s: %w", productID, in.BatchID, err)
			}
		}

		return appendHistory(tx, product.ID, models.EventFormulation, d.NewOwnerID, map[string]interface{}{
			"action":         "final_product_created",
			"input_batches":  d.InputBatchIDs,
			"final_quantity": d.FinalQuantity,
		})
	})
	if err != nil {
		return err
	}

	e.log.Info("formulated product",
		zap.String("product_id", productID),
		zap.Int("inputs", len(d.InputBatchIDs)))
	return nil
}

// lockBatches loads and row-locks every batch named in batchIDs, failing
// with ErrNotFound if any is missing.
func lockBatches(tx *gorm.DB, batchIDs []string) ([]models.Batch, error) {
	var batches []models.Batch
	if err := lockForUpdate(tx).Where("batch_id IN ?", batchIDs).Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("engine: load batches: %w", err)
	}
	if len(batches) != len(uniqueStrings(batchIDs)) {
		found := make(map[string]bool, len(batches))
		for _, b := range batches {
			found[b.BatchID] = true
		}
		for _, id := range batchIDs {
			if !found[id] {
				return nil, fmt.Errorf("engine: batch %s: %w", id, ErrNotFound)
			}
		}
	}
	return batches, nil
}

// markStatus updates status and updated_at on a set of internal row IDs.
func markStatus(tx *gorm.DB, internalIDs []string, status string) error {
	if len(internalIDs) == 0 {
		return nil
	}
	err := tx.Model(&models.Batch{}).Where("id IN ?", internalIDs).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}).Error
	if err != nil {
		return fmt.Errorf("engine: mark %s: %w", status, err)
	}
	return nil
}

func internalIDs(batches []models.Batch) []string {
	ids := make([]string, len(batches))
	for i, b := range batches {
		ids[i] = b.ID
	}
	return ids
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
