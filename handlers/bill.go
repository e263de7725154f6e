package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finloop/finloop-api/middleware"
	"github.com/finloop/finloop-api/models"
	"github.com/finloop/finloop-api/services"
	"github.com/finloop/finloop-api/storage"
)

type BillHandler struct {
	Service *services.BillService
	WS      *WSHandler
}

func NewBillHandler(service *services.BillService, ws *WSHandler) *BillHandler {
	return &BillHandler{Service: service, WS: ws}
}

// GetBills lists the caller's bills, optionally filtered by status and a
// due-date range.
func (h *BillHandler) GetBills(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var filter storage.BillFilter
	if s := c.Query("status"); s != "" {
		status, err := models.ParseBillStatus(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Status = status
	}
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return
		}
		filter.From = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return
		}
		filter.To = &t
	}

	bills, err := h.Service.List(c.Request.Context(), userID, filter)
	if err != nil {
		respondStoreError(c, err, "Failed to fetch bills")
		return
	}

	c.JSON(http.StatusOK, bills)
}

func (h *BillHandler) GetBill(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bill, err := h.Service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "Failed to fetch bill")
		return
	}

	c.JSON(http.StatusOK, bill)
}

func (h *BillHandler) CreateBill(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bill := &models.Bill{
		Kind:        models.BillKind(req.Kind),
		Amount:      parseMoney(req.Amount),
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		Status:      models.BillStatusOpen,
		DueDate:     parseDate(req.DueDate),
		Notes:       req.Notes,
	}
	if req.RecurrenceID != "" {
		id := req.RecurrenceID
		bill.RecurrenceID = &id
	}

	created, err := h.Service.Create(c.Request.Context(), userID, bill)
	if err != nil {
		respondStoreError(c, err, "Failed to create bill")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateBill applies a partial update. Flipping a recurrence-linked bill to
// paid rolls its schedule over; the response then carries the materialized
// next occurrence and the updated recurrence alongside the bill.
func (h *BillHandler) UpdateBill(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.UpdateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upd := services.BillUpdate{
		Category:    req.Category,
		Description: req.Description,
		Notes:       req.Notes,
	}
	if req.Status != nil {
		status := models.BillStatus(*req.Status)
		upd.Status = &status
	}
	if req.Amount != nil {
		amount := parseMoney(*req.Amount)
		upd.Amount = &amount
	}
	if req.DueDate != nil {
		due := parseDate(*req.DueDate)
		upd.DueDate = &due
	}

	bill, rollover, err := h.Service.Update(c.Request.Context(), userID, c.Param("id"), upd)
	if err != nil {
		respondStoreError(c, err, "Failed to update bill")
		return
	}

	resp := gin.H{"bill": bill}
	if rollover != nil {
		resp["rollover"] = rollover
		h.WS.NotifyUser(userID, "bill_rolled_over")
	}
	h.WS.NotifyUser(userID, "bill_updated")

	c.JSON(http.StatusOK, resp)
}

func (h *BillHandler) DeleteBill(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.Service.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondStoreError(c, err, "Failed to delete bill")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted"})
}
