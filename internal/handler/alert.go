package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/engine"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
)

// AlertHandler exposes the trust engine over HTTP.
type AlertHandler interface {
	SubmitAlert(c *gin.Context)
	Feedback(c *gin.Context)
	GetDecision(c *gin.Context)
}

type alertHandler struct {
	engine   *engine.Engine
	logger   *zap.Logger
	validate *validator.Validate
}

// NewAlertHandler creates the alert handler.
func NewAlertHandler(eng *engine.Engine, logger *zap.Logger) AlertHandler {
	return &alertHandler{
		engine:   eng,
		logger:   logger,
		validate: validator.New(),
	}
}

// SubmitAlertRequest is the inbound alert payload.
type SubmitAlertRequest struct {
	AlertID            string   `json:"alert_id" validate:"omitempty,uuid"`
	SubmitterID        string   `json:"submitter_id" validate:"required"`
	CrisisType         string   `json:"crisis_type" validate:"required"`
	Severity           string   `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Location           string   `json:"location"`
	Latitude           *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude          *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Message            string   `json:"message" validate:"required"`
	HasAttachment      bool     `json:"has_attachment"`
	HasPreciseLocation bool     `json:"has_precise_location"`
}

// SubmitAlert handles POST /api/alerts.
func (h *alertHandler) SubmitAlert(c *gin.Context) {
	var req SubmitAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert := &models.Alert{
		SubmitterID:        req.SubmitterID,
		CrisisType:         req.CrisisType,
		Severity:           req.Severity,
		Location:           req.Location,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		Message:            req.Message,
		HasAttachment:      req.HasAttachment,
		HasPreciseLocation: req.HasPreciseLocation,
	}
	if req.AlertID != "" {
		id, err := uuid.Parse(req.AlertID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert_id"})
			return
		}
		alert.ID = id
	}

	record, err := h.engine.ProcessAlert(c.Request.Context(), alert)
	if err != nil {
		if errors.Is(err, engine.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to process alert",
			zap.String("submitter_id", req.SubmitterID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process alert"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// FeedbackRequest is the later-arriving accuracy verdict.
type FeedbackRequest struct {
	SubmitterID string `json:"submitter_id" validate:"required"`
	WasAccurate *bool  `json:"was_accurate" validate:"required"`
}

// Feedback handles POST /api/feedback.
func (h *alertHandler) Feedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reputation, err := h.engine.Feedback(c.Request.Context(), req.SubmitterID, *req.WasAccurate)
	if err != nil {
		if errors.Is(err, engine.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to apply feedback",
			zap.String("submitter_id", req.SubmitterID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reputation": reputation})
}

// GetDecision handles GET /api/decisions/:alert_id.
func (h *alertHandler) GetDecision(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("alert_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert_id"})
		return
	}

	entry, err := h.engine.GetDecision(c.Request.Context(), alertID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Decision not found"})
			return
		}
		h.logger.Error("Failed to get decision",
			zap.String("alert_id", alertID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve decision"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"decision": entry})
}
