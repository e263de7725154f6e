package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finloop/finloop-api/middleware"
	"github.com/finloop/finloop-api/models"
	"github.com/finloop/finloop-api/utils"
)

type GoalHandler struct {
	DB *sql.DB
}

var errGoalCompleted = errors.New("goal completed")

func (h *GoalHandler) GetGoals(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, owner_id, name, target, saved, currency, target_date, status, created_at, updated_at
		FROM goals
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		slog.Error("failed to fetch goals", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch goals"})
		return
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		var g models.Goal
		var targetDate sql.NullTime
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Target, &g.Saved,
			&g.Currency, &targetDate, &g.Status, &g.CreatedAt, &g.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch goals"})
			return
		}
		if targetDate.Valid {
			t := targetDate.Time
			g.TargetDate = &t
		}
		goals = append(goals, g)
	}

	c.JSON(http.StatusOK, goals)
}

func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	g := models.Goal{
		ID:        uuid.New().String(),
		OwnerID:   userID,
		Name:      req.Name,
		Target:    parseMoney(req.Target),
		Currency:  req.Currency,
		Status:    models.GoalStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.TargetDate != "" {
		t := parseDate(req.TargetDate)
		g.TargetDate = &t
	}

	var targetDate any
	if g.TargetDate != nil {
		targetDate = *g.TargetDate
	}
	_, err := h.DB.Exec(`
		INSERT INTO goals (id, owner_id, name, target, saved, currency, target_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8, $9)
	`, g.ID, g.OwnerID, g.Name, g.Target, g.Currency, targetDate, g.Status, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		slog.Error("failed to create goal", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create goal"})
		return
	}

	c.JSON(http.StatusCreated, g)
}

// Contribute adds to the saved amount; reaching the target completes the
// goal.
func (h *GoalHandler) Contribute(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.GoalContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contribution := parseMoney(req.Amount)

	var goal models.Goal
	err := utils.WithTransaction(h.DB, func(tx *sql.Tx) error {
		var targetDate sql.NullTime
		err := tx.QueryRow(`
			SELECT id, owner_id, name, target, saved, currency, target_date, status, created_at, updated_at
			FROM goals
			WHERE id = $1 AND owner_id = $2
			FOR UPDATE
		`, c.Param("id"), userID).Scan(&goal.ID, &goal.OwnerID, &goal.Name, &goal.Target,
			&goal.Saved, &goal.Currency, &targetDate, &goal.Status, &goal.CreatedAt, &goal.UpdatedAt)
		if err != nil {
			return err
		}
		if targetDate.Valid {
			t := targetDate.Time
			goal.TargetDate = &t
		}

		if goal.Status != models.GoalStatusActive {
			return errGoalCompleted
		}

		goal.Saved = goal.Saved.Add(contribution)
		if goal.Saved.GreaterThanOrEqual(goal.Target) {
			goal.Status = models.GoalStatusCompleted
		}
		goal.UpdatedAt = time.Now()

		_, err = tx.Exec(`
			UPDATE goals SET saved = $1, status = $2, updated_at = $3
			WHERE id = $4 AND owner_id = $5
		`, goal.Saved, goal.Status, goal.UpdatedAt, goal.ID, userID)
		return err
	})

	switch {
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, errGoalCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "Goal is already completed"})
	case err != nil:
		slog.Error("failed to record contribution", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record contribution"})
	default:
		c.JSON(http.StatusOK, goal)
	}
}

func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	res, err := h.DB.Exec(`DELETE FROM goals WHERE id = $1 AND owner_id = $2`, c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete goal"})
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted"})
}
