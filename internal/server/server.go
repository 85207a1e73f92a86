package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"inbox-scorer-go/internal/scheduler"
	"inbox-scorer-go/internal/store"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Details   map[string]string `json:"details,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Handlers contains all HTTP handlers
type Handlers struct {
	db        *gorm.DB
	store     store.RecordStore
	scheduler *scheduler.Scheduler
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, recordStore store.RecordStore, sched *scheduler.Scheduler) *Handlers {
	return &Handlers{
		db:        db,
		store:     recordStore,
		scheduler: sched,
	}
}

// NewRouter sets up the HTTP router with middleware and routes
func NewRouter(handlers *Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware())

	router.GET("/healthz", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/emails", handlers.GetEmails)

		api.POST("/scan/run-once", handlers.RunOnce)
		api.GET("/scan/status", handlers.GetScanStatus)
		api.POST("/scheduler/start", handlers.StartScheduler)
		api.POST("/scheduler/stop", handlers.StopScheduler)
	}

	return router
}

// loggerMiddleware adds logging middleware
func loggerMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	})
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Details:   make(map[string]string),
	}

	if err := h.db.Raw("SELECT 1").Error; err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	if h.scheduler.IsRunning() {
		response.Details["scheduler"] = "running"
		response.Details["next_run"] = h.scheduler.GetNextRun().Format(time.RFC3339)
	} else {
		response.Details["scheduler"] = "stopped"
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// GetEmails returns the most recently updated email records
func (h *Handlers) GetEmails(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
				Code:    http.StatusBadRequest,
			})
			return
		}
		limit = parsed
	}

	emails, err := h.store.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch emails",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"emails": emails, "count": len(emails)})
}

// RunOnce triggers a single ingestion run
func (h *Handlers) RunOnce(c *gin.Context) {
	report, err := h.scheduler.RunOnce()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "run_failed",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetScanStatus returns scheduler state and the last run report
func (h *Handlers) GetScanStatus(c *gin.Context) {
	status := gin.H{
		"running": h.scheduler.IsRunning(),
	}
	if h.scheduler.IsRunning() {
		status["next_run"] = h.scheduler.GetNextRun().Format(time.RFC3339)
		if last := h.scheduler.GetLastRun(); !last.IsZero() {
			status["last_run"] = last.Format(time.RFC3339)
		}
	}
	if report := h.scheduler.LastReport(); report != nil {
		status["last_report"] = report
	}

	c.JSON(http.StatusOK, status)
}

// StartScheduler starts the periodic scanner
func (h *Handlers) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "scheduler_error",
			Message: err.Error(),
			Code:    http.StatusConflict,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// StopScheduler stops the periodic scanner
func (h *Handlers) StopScheduler(c *gin.Context) {
	if err := h.scheduler.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "scheduler_error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}
