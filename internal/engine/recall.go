package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusetu/setu/internal/lineage"
	"github.com/ayusetu/setu/internal/metrics"
	"github.com/ayusetu/setu/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Recall marks a batch and its lineage as recalled, writes one
// notification per known stakeholder, and appends a Recall history entry
// on the origin batch. By default the cascade covers the full connected
// lineage component; with Options.SingleHop it stops at direct link
// neighbors. Recalling an already-recalled batch succeeds and re-notifies.
func (e *Engine) Recall(batchID string, d RecallDetails) (err error) {
	defer func() { recordOp(ActionRecall, err) }()

	if batchID == "" {
		return &ValidationError{Field: "batchId", Reason: "is required"}
	}
	if d.Reason == "" {
		return &ValidationError{Field: "reason", Reason: "is required"}
	}

	var (
		affected []string // business keys of every batch marked recalled
		notified int
	)
	err = e.db.Transaction(func(tx *gorm.DB) error {
		var origin models.Batch
		if err := lockForUpdate(tx).Where("batch_id = ?", batchID).First(&origin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("engine: batch %s: %w", batchID, ErrNotFound)
			}
			return fmt.Errorf("engine: load batch %s: %w", batchID, err)
		}

		memberIDs, err := e.cascadeSet(tx, origin.ID)
		if err != nil {
			return err
		}

		var members []models.Batch
		if err := tx.Where("id IN ?", memberIDs).Find(&members).Error; err != nil {
			return fmt.Errorf("engine: load cascade members: %w", err)
		}
		for _, m := range members {
			affected = append(affected, m.BatchID)
		}

		if err := markStatus(tx, memberIDs, models.StatusRecalled); err != nil {
			return err
		}

		n, err := fanOutNotifications(tx, batchID, d.Reason)
		if err != nil {
			return err
		}
		notified = n

		return appendHistory(tx, origin.ID, models.EventRecall, d.ActorID, map[string]interface{}{
			"action":      "batch_recalled",
			"reason":      d.Reason,
			"recall_date": time.Now().UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		return err
	}

	metrics.RecallCascadeSize.Observe(float64(len(affected)))
	metrics.NotificationsCreated.Add(float64(notified))
	e.log.Info("recalled batch",
		zap.String("batch_id", batchID),
		zap.String("reason", d.Reason),
		zap.Int("cascade_size", len(affected)))

	if e.alerts != nil {
		e.alerts.RecallAlert(batchID, d.Reason, affected)
	}
	return nil
}

// cascadeSet returns the internal IDs of every batch the recall touches,
// origin included.
func (e *Engine) cascadeSet(tx *gorm.DB, originID string) ([]string, error) {
	if !e.singleHop {
		return lineage.Component(tx, originID)
	}

	links, err := lineage.Neighbors(tx, originID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{originID: true}
	ids := []string{originID}
	for _, l := range links {
		for _, id := range []string{l.ParentID, l.ChildID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// fanOutNotifications writes one notification per user in the role
// directory, referencing the recalled batch and the reason. Returns the
// number of notifications written.
func fanOutNotifications(tx *gorm.DB, batchID, reason string) (int, error) {
	var users []models.UserRole
	if err := tx.Find(&users).Error; err != nil {
		return 0, fmt.Errorf("engine: list stakeholders: %w", err)
	}
	for _, u := range users {
		n := models.Notification{
			UserID:  u.UserID,
			Title:   "Batch Recall Alert",
			Message: fmt.Sprintf("Batch %s has been recalled. Reason: %s", batchID, reason),
			Type:    "warning",
			BatchID: batchID,
		}
		if err := tx.Create(&n).Error; err != nil {
			return 0, fmt.Errorf("engine: notify %s: %w", u.UserID, err)
		}
	}
	return len(users), nil
}
