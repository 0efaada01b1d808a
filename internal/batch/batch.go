// Package batch provides batch store operations that live outside the
// cascade engine: raw-material registration, custody transfer, direct
// status updates, role-filtered listing and history retrieval.
package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusetu/setu/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound means the business key does not reference a batch.
var ErrNotFound = errors.New("batch not found")

// ErrDuplicate means the business key is already in use.
var ErrDuplicate = errors.New("batch id already exists")

// RegisterOpts holds parameters for registering a raw-material batch.
type RegisterOpts struct {
	BatchID        string
	OwnerID        string
	ProductName    string
	Quantity       float64
	Unit           string
	SourceLocation string
	FarmerID       string
	FarmerName     string
	FarmerPhone    string
	FarmerLocation string
	Metadata       map[string]interface{}
}

// RegisterRawMaterial creates a raw_material batch with farmer provenance
// and a BatchCreated history entry.
func RegisterRawMaterial(db *gorm.DB, opts RegisterOpts) (*models.Batch, error) {
	if opts.BatchID == "" {
		return nil, fmt.Errorf("batch: batch ID is required")
	}
	if opts.ProductName == "" {
		return nil, fmt.Errorf("batch: product name is required")
	}

	var created models.Batch
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Batch{}).Where("batch_id = ?", opts.BatchID).Count(&count).Error; err != nil {
			return fmt.Errorf("batch: check %s: %w", opts.BatchID, err)
		}
		if count > 0 {
			return fmt.Errorf("batch: %s: %w", opts.BatchID, ErrDuplicate)
		}

		metadata := ""
		if opts.Metadata != nil {
			raw, err := json.Marshal(opts.Metadata)
			if err != nil {
				return fmt.Errorf("batch: marshal metadata: %w", err)
			}
			metadata = string(raw)
		}

		created = models.Batch{
			ID:             uuid.New().String(),
			BatchID:        opts.BatchID,
			Type:           models.TypeRawMaterial,
			Status:         models.StatusCreated,
			OwnerID:        opts.OwnerID,
			ProductName:    opts.ProductName,
			Quantity:       opts.Quantity,
			Unit:           opts.Unit,
			SourceLocation: opts.SourceLocation,
			FarmerID:       opts.FarmerID,
			FarmerName:     opts.FarmerName,
			FarmerPhone:    opts.FarmerPhone,
			FarmerLocation: opts.FarmerLocation,
			Metadata:       metadata,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("batch: create %s: %w", opts.BatchID, err)
		}

		details, err := json.Marshal(map[string]interface{}{
			"action":    "raw_material_registered",
			"farmer_id": opts.FarmerID,
			"quantity":  opts.Quantity,
		})
		if err != nil {
			return fmt.Errorf("batch: marshal history details: %w", err)
		}
		entry := models.BatchHistory{
			BatchID:   created.ID,
			EventType: models.EventBatchCreated,
			ActorID:   opts.OwnerID,
			Details:   string(details),
			Timestamp: time.Now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("batch: history for %s: %w", opts.BatchID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Get returns the batch with the given business key.
func Get(db *gorm.DB, batchID string) (*models.Batch, error) {
	var b models.Batch
	if err := db.Where("batch_id = ?", batchID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("batch: %s: %w", batchID, ErrNotFound)
		}
		return nil, fmt.Errorf("batch: get %s: %w", batchID, err)
	}
	return &b, nil
}

// ListFilters holds optional filters for listing batches. Role applies
// the per-stakeholder visibility rules; UserID scopes ownership checks.
type ListFilters struct {
	Role   string
	UserID string
	Type   string
	Status string
}

// List returns batches newest first, filtered by role visibility.
func List(db *gorm.DB, f ListFilters) ([]models.Batch, error) {
	q := db.Model(&models.Batch{})

	switch f.Role {
	case "aggregator":
		q = q.Where("type IN ?", []string{models.TypeRawMaterial, models.TypeLot})
	case "processor":
		q = q.Where("status IN ? OR owner_id = ?",
			[]string{models.StatusInTransit, models.StatusReceived}, f.UserID)
	case "manufacturer":
		q = q.Where("type IN ? OR owner_id = ?",
			[]string{models.TypeProcessed, models.TypeFinalProduct}, f.UserID)
	case "distributor":
		q = q.Where("status = ? OR owner_id = ?", models.StatusFinalized, f.UserID)
	}

	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var batches []models.Batch
	if err := q.Order("created_at DESC").Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("batch: list: %w", err)
	}
	return batches, nil
}

// Transfer moves custody of a batch: new owner, status in_transit and an
// optional destination. When details are supplied a CustodyTransfer
// history entry is appended. Transfer deliberately bypasses the cascade
// engine and its transition gating.
func Transfer(db *gorm.DB, batchID, newOwnerID, destination, actorID string, details map[string]interface{}) error {
	if newOwnerID == "" {
		return fmt.Errorf("batch: new owner is required")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var b models.Batch
		if err := tx.Where("batch_id = ?", batchID).First(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("batch: %s: %w", batchID, ErrNotFound)
			}
			return fmt.Errorf("batch: load %s: %w", batchID, err)
		}

		updates := map[string]interface{}{
			"owner_id":   newOwnerID,
			"status":     models.StatusInTransit,
			"updated_at": time.Now(),
		}
		if destination != "" {
			updates["destination_location"] = destination
		}
		if err := tx.Model(&models.Batch{}).Where("id = ?", b.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("batch: transfer %s: %w", batchID, err)
		}

		if details == nil {
			return nil
		}
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("batch: marshal transfer details: %w", err)
		}
		entry := models.BatchHistory{
			BatchID:   b.ID,
			EventType: models.EventCustodyTransfer,
			ActorID:   actorID,
			Details:   string(raw),
			Timestamp: time.Now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("batch: transfer history for %s: %w", batchID, err)
		}
		return nil
	})
}

// UpdateStatus writes a status directly, with an optional CustodyTransfer
// history entry when details are supplied. This is the out-of-band path
// role UIs use for receive/dispatch; engine operations may race with it.
func UpdateStatus(db *gorm.DB, batchID, status, actorID string, details map[string]interface{}) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var b models.Batch
		if err := tx.Where("batch_id = ?", batchID).First(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("batch: %s: %w", batchID, ErrNotFound)
			}
			return fmt.Errorf("batch: load %s: %w", batchID, err)
		}

		err := tx.Model(&models.Batch{}).Where("id = ?", b.ID).Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
		if err != nil {
			return fmt.Errorf("batch: update %s: %w", batchID, err)
		}

		if details == nil {
			return nil
		}
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("batch: marshal status details: %w", err)
		}
		entry := models.BatchHistory{
			BatchID:   b.ID,
			EventType: models.EventCustodyTransfer,
			ActorID:   actorID,
			Details:   string(raw),
			Timestamp: time.Now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("batch: status history for %s: %w", batchID, err)
		}
		return nil
	})
}

// History returns a batch's audit entries in creation order.
func History(db *gorm.DB, batchID string) ([]models.BatchHistory, error) {
	b, err := Get(db, batchID)
	if err != nil {
		return nil, err
	}
	var entries []models.BatchHistory
	if err := db.Where("batch_id = ?", b.ID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("batch: history %s: %w", batchID, err)
	}
	return entries, nil
}
