package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusetu/setu/internal/batch"
	"github.com/ayusetu/setu/internal/engine"
	"github.com/ayusetu/setu/internal/lineage"
	"github.com/ayusetu/setu/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, eng *engine.Engine, log *zap.Logger) {
	api := router.Group("/api")

	api.POST("/cascade", handleCascade(eng, log))

	api.POST("/batches", handleRegisterBatch(db))
	api.GET("/batches", handleListBatches(db))
	api.GET("/batches/:id", handleGetBatch(db))
	api.GET("/batches/:id/history", handleBatchHistory(db))
	api.GET("/batches/:id/lineage", handleBatchLineage(db))
	api.POST("/batches/:id/transfer", handleTransfer(db))

	api.GET("/notifications", handleListNotifications(db))
	api.POST("/notifications/:id/read", handleMarkNotificationRead(db))

	api.GET("/events", handleSSE(db))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// cascadeRequest is the action-dispatch RPC envelope.
type cascadeRequest struct {
	Action  string          `json:"action"`
	BatchID string          `json:"batchId"`
	Details json.RawMessage `json:"details"`
}

// statusFor maps an engine error to an HTTP status.
func statusFor(err error) int {
	var vErr *engine.ValidationError
	var tErr *engine.TransitionError
	switch {
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, batch.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrDuplicate), errors.Is(err, batch.ErrDuplicate):
		return http.StatusConflict
	case errors.As(err, &tErr):
		return http.StatusConflict
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func handleCascade(eng *engine.Engine, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cascadeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := eng.Execute(req.Action, req.BatchID, req.Details); err != nil {
			log.Warn("cascade failed",
				zap.String("action", req.Action),
				zap.String("batch_id", req.BatchID),
				zap.Error(err))
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// registerBatchRequest is the raw-material registration payload.
type registerBatchRequest struct {
	BatchID        string                 `json:"batchId"`
	OwnerID        string                 `json:"ownerId"`
	ProductName    string                 `json:"productName"`
	Quantity       float64                `json:"quantity"`
	Unit           string                 `json:"unit"`
	SourceLocation string                 `json:"sourceLocation"`
	FarmerID       string                 `json:"farmerId"`
	FarmerName     string                 `json:"farmerName"`
	FarmerPhone    string                 `json:"farmerPhone"`
	FarmerLocation string                 `json:"farmerLocation"`
	Metadata       map[string]interface{} `json:"metadata"`
}

func handleRegisterBatch(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		created, err := batch.RegisterRawMaterial(db, batch.RegisterOpts{
			BatchID:        req.BatchID,
			OwnerID:        req.OwnerID,
			ProductName:    req.ProductName,
			Quantity:       req.Quantity,
			Unit:           req.Unit,
			SourceLocation: req.SourceLocation,
			FarmerID:       req.FarmerID,
			FarmerName:     req.FarmerName,
			FarmerPhone:    req.FarmerPhone,
			FarmerLocation: req.FarmerLocation,
			Metadata:       req.Metadata,
		})
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func handleListBatches(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		batches, err := batch.List(db, batch.ListFilters{
			Role:   c.Query("role"),
			UserID: c.Query("userId"),
			Type:   c.Query("type"),
			Status: c.Query("status"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, batches)
	}
}

func handleGetBatch(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := batch.Get(db, c.Param("id"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

func handleBatchHistory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := batch.History(db, c.Param("id"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func handleBatchLineage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := batch.Get(db, c.Param("id"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		links, err := lineage.Neighbors(db, b.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		upstream, err := lineage.Upstream(db, b.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		downstream, err := lineage.Downstream(db, b.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"batch":      b,
			"links":      links,
			"upstream":   upstream,
			"downstream": downstream,
		})
	}
}

// transferRequest is the custody transfer payload.
type transferRequest struct {
	NewOwnerID  string                 `json:"newOwnerId"`
	Destination string                 `json:"destination"`
	ActorID     string                 `json:"actorId"`
	Details     map[string]interface{} `json:"details"`
}

func handleTransfer(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		err := batch.Transfer(db, c.Param("id"), req.NewOwnerID, req.Destination, req.ActorID, req.Details)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func handleListNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user query parameter is required"})
			return
		}
		var notifications []models.Notification
		err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&notifications).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, notifications)
	}
}

func handleMarkNotificationRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
			return
		}
		result := db.Model(&models.Notification{}).Where("id = ?", id).Update("read", true)
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
