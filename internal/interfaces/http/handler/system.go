package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appsync "github.com/shopsync/backend/internal/application/sync"
	"github.com/shopsync/backend/internal/infrastructure/persistence"
)

// SystemHandler exposes health and sync status surfaces
type SystemHandler struct {
	BaseHandler
	db     *persistence.Database
	health *appsync.Health
	poller *appsync.Poller
	dlq    *appsync.DeadLetterWorker
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *persistence.Database, health *appsync.Health, poller *appsync.Poller, dlq *appsync.DeadLetterWorker) *SystemHandler {
	return &SystemHandler{
		db:     db,
		health: health,
		poller: poller,
		dlq:    dlq,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string                    `json:"status"`
	Database   string                    `json:"database"`
	Sync       appsync.HealthSnapshot    `json:"sync"`
	DeadLetter appsync.DeadLetterMetrics `json:"dead_letter"`
	Timestamp  time.Time                 `json:"timestamp"`
}

// MerchantSyncStatus is one merchant's entry in GET /sync/status.
type MerchantSyncStatus struct {
	MerchantID        string    `json:"merchant_id"`
	LastPollAt        time.Time `json:"last_poll_at"`
	Outcome           string    `json:"outcome"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
}

// SyncStatusResponse is the body of GET /sync/status.
type SyncStatusResponse struct {
	Sync      appsync.HealthSnapshot `json:"sync"`
	Merchants []MerchantSyncStatus   `json:"merchants"`
}

// GetHealth reports process health. The database being unreachable degrades
// the status and flips the response to 503 so load balancers rotate us out.
func (h *SystemHandler) GetHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:     "ok",
		Database:   "ok",
		Sync:       h.health.Snapshot(),
		DeadLetter: h.dlq.Metrics(c.Request.Context()),
		Timestamp:  time.Now().UTC(),
	}

	statusCode := http.StatusOK
	if err := h.db.Ping(); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		statusCode = http.StatusServiceUnavailable
	}
	if !resp.DeadLetter.Healthy {
		resp.Status = "degraded"
	}

	c.JSON(statusCode, resp)
}

// GetSyncStatus reports per-merchant polling telemetry
func (h *SystemHandler) GetSyncStatus(c *gin.Context) {
	statuses := h.poller.Statuses()

	merchants := make([]MerchantSyncStatus, 0, len(statuses))
	for id, s := range statuses {
		merchants = append(merchants, MerchantSyncStatus{
			MerchantID:        id.String(),
			LastPollAt:        s.LastPollAt,
			Outcome:           s.Outcome.String(),
			ConsecutiveErrors: s.ConsecutiveErrors,
		})
	}

	h.Success(c, SyncStatusResponse{
		Sync:      h.health.Snapshot(),
		Merchants: merchants,
	})
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.GetHealth)
	rg.GET("/sync/status", h.GetSyncStatus)
}
