package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookexchange/internal/auth"
	"github.com/mrlokans/bookexchange/internal/services"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// RouterConfig holds all dependencies needed to create the HTTP router.
type RouterConfig struct {
	// Connected storage backend
	Store storage.Manager

	// Authentication
	SessionManager *auth.SessionManager
	CSRFSecret     []byte // empty disables CSRF protection
	SecureCookies  bool

	// Background tasks; both may be nil when the queue is disabled
	Snapshots SnapshotEnqueuer
	Tasks     TaskStatusReader

	// Application info
	Version string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	router.Use(cfg.SessionManager.SessionLoadSave())

	accounts := services.NewAccountService(cfg.Store)
	authMiddleware := auth.NewMiddleware(cfg.Store, cfg.SessionManager)

	health := NewHealthController(cfg.Store, cfg.Version)
	accountsController := NewAccountsController(accounts, cfg.SessionManager)
	booksController := NewBooksController(services.NewBookService(cfg.Store))
	exchangesController := NewExchangesController(services.NewExchangeService(cfg.Store, cfg.Store))
	reportsController := NewReportsController(services.NewReportService(cfg.Store), cfg.Snapshots)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Public account endpoints
	router.POST("/api/register", accountsController.Register)
	router.POST("/api/login", accountsController.Login)

	api := router.Group("/api", authMiddleware.RequireUser())

	api.POST("/logout", accountsController.Logout)
	api.GET("/me", accountsController.Me)
	api.PUT("/me", accountsController.UpdateMe)

	// Books
	api.GET("/books", booksController.GetAvailableBooks)
	api.GET("/my/books", booksController.GetMyBooks)
	api.POST("/books", booksController.AddBook)
	api.PUT("/books/:id", booksController.UpdateBook)
	api.DELETE("/books/:id", booksController.DeleteBook)

	// Exchanges
	api.GET("/exchanges", exchangesController.GetExchanges)
	api.POST("/exchanges", exchangesController.CreateExchange)
	api.PUT("/exchanges/:id/status", exchangesController.UpdateStatus)

	// Reports
	api.GET("/reports", reportsController.GetReport)
	api.POST("/reports/snapshot", reportsController.EnqueueSnapshot)

	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}
