package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/finloop/finloop-api/storage"
)

// respondStoreError maps storage sentinels onto HTTP statuses. Missing and
// foreign-owned rows are both 404 so ids never leak across owners.
func respondStoreError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Record was modified concurrently, retry"})
	default:
		slog.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// parseDate parses a validated "2006-01-02" request field.
func parseDate(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

// parseMoney parses a validated non-negative decimal request field.
func parseMoney(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}
