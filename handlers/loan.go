package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finloop/finloop-api/middleware"
	"github.com/finloop/finloop-api/models"
	"github.com/finloop/finloop-api/utils"
)

type LoanHandler struct {
	DB *sql.DB
}

var (
	errLoanClosed  = errors.New("loan closed")
	errOverpayment = errors.New("overpayment")
)

func (h *LoanHandler) GetLoans(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, owner_id, lender, principal, balance, interest_rate, currency, status, created_at, updated_at
		FROM loans
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		slog.Error("failed to fetch loans", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch loans"})
		return
	}
	defer rows.Close()

	loans := []models.Loan{}
	for rows.Next() {
		var l models.Loan
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Lender, &l.Principal, &l.Balance,
			&l.InterestRate, &l.Currency, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch loans"})
			return
		}
		loans = append(loans, l)
	}

	c.JSON(http.StatusOK, loans)
}

func (h *LoanHandler) CreateLoan(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	principal := parseMoney(req.Principal)
	rate := decimal.Zero
	if req.InterestRate != "" {
		rate = parseMoney(req.InterestRate)
	}

	now := time.Now()
	l := models.Loan{
		ID:           uuid.New().String(),
		OwnerID:      userID,
		Lender:       req.Lender,
		Principal:    principal,
		Balance:      principal,
		InterestRate: rate,
		Currency:     req.Currency,
		Status:       models.LoanStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := h.DB.Exec(`
		INSERT INTO loans (id, owner_id, lender, principal, balance, interest_rate, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, l.ID, l.OwnerID, l.Lender, l.Principal, l.Balance, l.InterestRate, l.Currency, l.Status, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		slog.Error("failed to create loan", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create loan"})
		return
	}

	c.JSON(http.StatusCreated, l)
}

// RecordPayment reduces the loan balance. The read-modify-write runs in a
// transaction; paying the balance down to zero closes the loan.
func (h *LoanHandler) RecordPayment(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.LoanPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment := parseMoney(req.Amount)

	var loan models.Loan
	err := utils.WithTransaction(h.DB, func(tx *sql.Tx) error {
		err := tx.QueryRow(`
			SELECT id, owner_id, lender, principal, balance, interest_rate, currency, status, created_at, updated_at
			FROM loans
			WHERE id = $1 AND owner_id = $2
			FOR UPDATE
		`, c.Param("id"), userID).Scan(&loan.ID, &loan.OwnerID, &loan.Lender, &loan.Principal,
			&loan.Balance, &loan.InterestRate, &loan.Currency, &loan.Status, &loan.CreatedAt, &loan.UpdatedAt)
		if err != nil {
			return err
		}

		if loan.Status != models.LoanStatusActive {
			return errLoanClosed
		}
		if payment.GreaterThan(loan.Balance) {
			return errOverpayment
		}

		loan.Balance = loan.Balance.Sub(payment)
		if loan.Balance.IsZero() {
			loan.Status = models.LoanStatusClosed
		}
		loan.UpdatedAt = time.Now()

		_, err = tx.Exec(`
			UPDATE loans SET balance = $1, status = $2, updated_at = $3
			WHERE id = $4 AND owner_id = $5
		`, loan.Balance, loan.Status, loan.UpdatedAt, loan.ID, userID)
		return err
	})

	switch {
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, errLoanClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "Loan is already closed"})
	case errors.Is(err, errOverpayment):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment exceeds remaining balance"})
	case err != nil:
		slog.Error("failed to record loan payment", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment"})
	default:
		c.JSON(http.StatusOK, loan)
	}
}

func (h *LoanHandler) DeleteLoan(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	res, err := h.DB.Exec(`DELETE FROM loans WHERE id = $1 AND owner_id = $2`, c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete loan"})
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Loan deleted"})
}
