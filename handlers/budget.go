package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finloop/finloop-api/middleware"
	"github.com/finloop/finloop-api/models"
)

type BudgetHandler struct {
	DB *sql.DB
}

// GetBudgets lists the caller's category budgets for a month (defaults to
// the current month).
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	month := c.Query("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, owner_id, category, month, limit_amount, currency, created_at, updated_at
		FROM budgets
		WHERE owner_id = $1 AND month = $2
		ORDER BY category ASC
	`, userID, month)
	if err != nil {
		slog.Error("failed to fetch budgets", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch budgets"})
		return
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Category, &b.Month, &b.Limit,
			&b.Currency, &b.CreatedAt, &b.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch budgets"})
			return
		}
		budgets = append(budgets, b)
	}

	c.JSON(http.StatusOK, budgets)
}

func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var exists bool
	err := h.DB.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM budgets WHERE owner_id = $1 AND category = $2 AND month = $3)
	`, userID, req.Category, req.Month).Scan(&exists)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "Budget already exists for this category and month"})
		return
	}

	now := time.Now()
	b := models.Budget{
		ID:        uuid.New().String(),
		OwnerID:   userID,
		Category:  req.Category,
		Month:     req.Month,
		Limit:     parseMoney(req.Limit),
		Currency:  req.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = h.DB.Exec(`
		INSERT INTO budgets (id, owner_id, category, month, limit_amount, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, b.OwnerID, b.Category, b.Month, b.Limit, b.Currency, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		slog.Error("failed to create budget", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create budget"})
		return
	}

	c.JSON(http.StatusCreated, b)
}

func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.DB.Exec(`
		UPDATE budgets SET limit_amount = $1, updated_at = NOW()
		WHERE id = $2 AND owner_id = $3
	`, parseMoney(req.Limit), c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update budget"})
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget updated"})
}

func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	res, err := h.DB.Exec(`DELETE FROM budgets WHERE id = $1 AND owner_id = $2`, c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete budget"})
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted"})
}

// GetBudgetSummary reports limit vs spent per budgeted category for one
// month. Spending is the sum of expense transactions in that month; the
// arithmetic stays in fixed-point decimals the whole way.
func (h *BudgetHandler) GetBudgetSummary(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	month := c.Query("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	start, err := time.Parse("2006-01", month)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT b.category, b.limit_amount, b.currency,
		       COALESCE(SUM(t.amount), 0) AS spent
		FROM budgets b
		LEFT JOIN transactions t
		       ON t.owner_id = b.owner_id
		      AND t.category = b.category
		      AND t.kind = 'expense'
		      AND t.occurred_at >= $3
		      AND t.occurred_at < $4
		WHERE b.owner_id = $1 AND b.month = $2
		GROUP BY b.category, b.limit_amount, b.currency
		ORDER BY b.category ASC
	`, userID, month, start, start.AddDate(0, 1, 0))
	if err != nil {
		slog.Error("failed to fetch budget summary", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch summary"})
		return
	}
	defer rows.Close()

	summaries := []models.BudgetSummary{}
	for rows.Next() {
		var s models.BudgetSummary
		var limit, spent decimal.Decimal
		if err := rows.Scan(&s.Category, &limit, &s.Currency, &spent); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch summary"})
			return
		}
		s.Limit = limit
		s.Spent = spent
		s.Remaining = limit.Sub(spent)
		summaries = append(summaries, s)
	}

	c.JSON(http.StatusOK, summaries)
}
