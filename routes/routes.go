package routes

import (
	"database/sql"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/finloop/finloop-api/handlers"
	"github.com/finloop/finloop-api/services"
	"github.com/finloop/finloop-api/storage/postgres"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}

	rg.POST("/auth/signup", authHandler.Signup)
	rg.POST("/auth/login", authHandler.Login)
	rg.POST("/auth/refresh", authHandler.Refresh)
	rg.POST("/auth/logout", authHandler.Logout)
}

// SetupUserRoutes sets up protected user routes.
func SetupUserRoutes(rg *gin.RouterGroup, db *sql.DB) {
	userHandler := &handlers.UserHandler{DB: db}

	rg.GET("/user/profile", userHandler.GetProfile)
	rg.PUT("/user/profile", userHandler.UpdateProfile)
	rg.POST("/user/password", userHandler.ChangePassword)
	rg.POST("/user/2fa/setup", userHandler.SetupTOTP)
	rg.POST("/user/2fa/verify", userHandler.VerifyTOTP)
	rg.POST("/user/2fa/disable", userHandler.DisableTOTP)
	rg.DELETE("/user/account", userHandler.DeleteAccount)
}

// SetupBillRoutes sets up bill and recurrence routes, including the paid
// transition that rolls recurring bills over.
func SetupBillRoutes(rg *gin.RouterGroup, db *sql.DB, ws *handlers.WSHandler, log *slog.Logger) {
	store := postgres.NewStore(db)
	billService := services.NewBillService(store, log)

	billHandler := handlers.NewBillHandler(billService, ws)
	rg.GET("/bills", billHandler.GetBills)
	rg.POST("/bills", billHandler.CreateBill)
	rg.GET("/bills/:id", billHandler.GetBill)
	rg.PUT("/bills/:id", billHandler.UpdateBill)
	rg.DELETE("/bills/:id", billHandler.DeleteBill)

	recurrenceHandler := handlers.NewRecurrenceHandler(store)
	rg.GET("/recurrences", recurrenceHandler.GetRecurrences)
	rg.POST("/recurrences", recurrenceHandler.CreateRecurrence)
	rg.GET("/recurrences/:id", recurrenceHandler.GetRecurrence)
	rg.PUT("/recurrences/:id", recurrenceHandler.UpdateRecurrence)
	rg.DELETE("/recurrences/:id", recurrenceHandler.DeleteRecurrence)
}

// SetupTransactionRoutes sets up protected transaction routes.
func SetupTransactionRoutes(rg *gin.RouterGroup, db *sql.DB, ws *handlers.WSHandler) {
	transactionHandler := &handlers.TransactionHandler{DB: db, WS: ws}

	rg.GET("/transactions", transactionHandler.GetTransactions)
	rg.POST("/transactions", transactionHandler.CreateTransaction)
	rg.PUT("/transactions/:id", transactionHandler.UpdateTransaction)
	rg.DELETE("/transactions/:id", transactionHandler.DeleteTransaction)
}

// SetupBudgetRoutes sets up protected budget routes.
func SetupBudgetRoutes(rg *gin.RouterGroup, db *sql.DB) {
	budgetHandler := &handlers.BudgetHandler{DB: db}

	rg.GET("/budgets", budgetHandler.GetBudgets)
	rg.POST("/budgets", budgetHandler.CreateBudget)
	rg.PUT("/budgets/:id", budgetHandler.UpdateBudget)
	rg.DELETE("/budgets/:id", budgetHandler.DeleteBudget)
	rg.GET("/budgets/summary", budgetHandler.GetBudgetSummary)
}

// SetupLoanRoutes sets up protected loan routes.
func SetupLoanRoutes(rg *gin.RouterGroup, db *sql.DB) {
	loanHandler := &handlers.LoanHandler{DB: db}

	rg.GET("/loans", loanHandler.GetLoans)
	rg.POST("/loans", loanHandler.CreateLoan)
	rg.POST("/loans/:id/payments", loanHandler.RecordPayment)
	rg.DELETE("/loans/:id", loanHandler.DeleteLoan)
}

// SetupGoalRoutes sets up protected goal routes.
func SetupGoalRoutes(rg *gin.RouterGroup, db *sql.DB) {
	goalHandler := &handlers.GoalHandler{DB: db}

	rg.GET("/goals", goalHandler.GetGoals)
	rg.POST("/goals", goalHandler.CreateGoal)
	rg.POST("/goals/:id/contributions", goalHandler.Contribute)
	rg.DELETE("/goals/:id", goalHandler.DeleteGoal)
}
