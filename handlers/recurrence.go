package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finloop/finloop-api/middleware"
	"github.com/finloop/finloop-api/models"
	"github.com/finloop/finloop-api/storage"
)

type RecurrenceHandler struct {
	Store storage.BillStore
}

func NewRecurrenceHandler(store storage.BillStore) *RecurrenceHandler {
	return &RecurrenceHandler{Store: store}
}

func (h *RecurrenceHandler) GetRecurrences(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	recurrences, err := h.Store.ListRecurrences(c.Request.Context(), userID)
	if err != nil {
		respondStoreError(c, err, "Failed to fetch recurrences")
		return
	}

	c.JSON(http.StatusOK, recurrences)
}

func (h *RecurrenceHandler) GetRecurrence(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rec, err := h.Store.FindRecurrence(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondStoreError(c, err, "Failed to fetch recurrence")
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *RecurrenceHandler) CreateRecurrence(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateRecurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	frequency, err := models.ParseFrequency(req.Frequency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := parseDate(req.StartDate)
	now := time.Now()
	rec := &models.BillRecurrence{
		ID:          uuid.New().String(),
		OwnerID:     userID,
		Kind:        models.BillKind(req.Kind),
		Amount:      parseMoney(req.Amount),
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		Notes:       req.Notes,
		Frequency:   frequency,
		Interval:    req.Interval,
		StartDate:   start,
		NextDueDate: start, // first occurrence falls on the start date
		Status:      models.RecurrenceStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.EndDate != "" {
		end := parseDate(req.EndDate)
		if end.Before(start) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must not be before start_date"})
			return
		}
		rec.EndDate = &end
	}

	if err := h.Store.CreateRecurrence(c.Request.Context(), rec); err != nil {
		respondStoreError(c, err, "Failed to create recurrence")
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// UpdateRecurrence edits template fields and pauses or resumes the
// schedule. A completed recurrence is terminal and cannot be reactivated.
func (h *RecurrenceHandler) UpdateRecurrence(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.UpdateRecurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.Store.FindRecurrence(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondStoreError(c, err, "Failed to fetch recurrence")
		return
	}

	if req.Status != nil {
		if rec.Status == models.RecurrenceStatusCompleted {
			c.JSON(http.StatusConflict, gin.H{"error": "Recurrence is completed and cannot change status"})
			return
		}
		rec.Status = models.RecurrenceStatus(*req.Status)
	}
	if req.Amount != nil {
		rec.Amount = parseMoney(*req.Amount)
	}
	if req.Category != nil {
		rec.Category = *req.Category
	}
	if req.Description != nil {
		rec.Description = *req.Description
	}
	if req.Notes != nil {
		rec.Notes = *req.Notes
	}
	rec.UpdatedAt = time.Now()

	if err := h.Store.UpdateRecurrence(c.Request.Context(), rec); err != nil {
		respondStoreError(c, err, "Failed to update recurrence")
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *RecurrenceHandler) DeleteRecurrence(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.Store.DeleteRecurrence(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondStoreError(c, err, "Failed to delete recurrence")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recurrence deleted"})
}
