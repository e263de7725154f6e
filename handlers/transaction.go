package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finloop/finloop-api/middleware"
	"github.com/finloop/finloop-api/models"
)

type TransactionHandler struct {
	DB *sql.DB
	WS *WSHandler
}

// GetTransactions lists the caller's transactions, optionally filtered by
// month (YYYY-MM) and category.
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	query := `
		SELECT id, owner_id, kind, amount, currency, category, description, occurred_at, created_at, updated_at
		FROM transactions
		WHERE owner_id = $1`
	args := []any{userID}

	if month := c.Query("month"); month != "" {
		start, err := time.Parse("2006-01", month)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
			return
		}
		args = append(args, start)
		query += fmt.Sprintf(` AND occurred_at >= $%d`, len(args))
		args = append(args, start.AddDate(0, 1, 0))
		query += fmt.Sprintf(` AND occurred_at < $%d`, len(args))
	}
	if category := c.Query("category"); category != "" {
		args = append(args, category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	query += ` ORDER BY occurred_at DESC, created_at DESC`

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		slog.Error("failed to fetch transactions", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Kind, &t.Amount, &t.Currency,
			&t.Category, &t.Description, &t.OccurredAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			slog.Error("failed to scan transaction", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		transactions = append(transactions, t)
	}

	c.JSON(http.StatusOK, transactions)
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	t := models.Transaction{
		ID:          uuid.New().String(),
		OwnerID:     userID,
		Kind:        models.TransactionKind(req.Kind),
		Amount:      parseMoney(req.Amount),
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		OccurredAt:  parseDate(req.OccurredAt),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := h.DB.Exec(`
		INSERT INTO transactions (id, owner_id, kind, amount, currency, category, description, occurred_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.OwnerID, t.Kind, t.Amount, t.Currency, t.Category, t.Description, t.OccurredAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		slog.Error("failed to create transaction", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
		return
	}

	h.WS.NotifyUser(userID, "transaction_created")
	c.JSON(http.StatusCreated, t)
}

func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var t models.Transaction
	err := h.DB.QueryRow(`
		SELECT id, owner_id, kind, amount, currency, category, description, occurred_at, created_at, updated_at
		FROM transactions
		WHERE id = $1 AND owner_id = $2
	`, c.Param("id"), userID).Scan(&t.ID, &t.OwnerID, &t.Kind, &t.Amount, &t.Currency,
		&t.Category, &t.Description, &t.OccurredAt, &t.CreatedAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transaction"})
		return
	}

	if req.Kind != nil {
		t.Kind = models.TransactionKind(*req.Kind)
	}
	if req.Amount != nil {
		t.Amount = parseMoney(*req.Amount)
	}
	if req.Category != nil {
		t.Category = *req.Category
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.OccurredAt != nil {
		t.OccurredAt = parseDate(*req.OccurredAt)
	}
	t.UpdatedAt = time.Now()

	_, err = h.DB.Exec(`
		UPDATE transactions
		SET kind = $1, amount = $2, category = $3, description = $4, occurred_at = $5, updated_at = $6
		WHERE id = $7 AND owner_id = $8
	`, t.Kind, t.Amount, t.Category, t.Description, t.OccurredAt, t.UpdatedAt, t.ID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transaction"})
		return
	}

	h.WS.NotifyUser(userID, "transaction_updated")
	c.JSON(http.StatusOK, t)
}

func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	res, err := h.DB.Exec(`DELETE FROM transactions WHERE id = $1 AND owner_id = $2`, c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete transaction"})
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	h.WS.NotifyUser(userID, "transaction_deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}
