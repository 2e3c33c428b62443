package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appsync "github.com/shopsync/backend/internal/application/sync"
)

// PollHandler exposes the manual polling trigger for operators
type PollHandler struct {
	BaseHandler
	poller *appsync.Poller
}

// NewPollHandler creates a new PollHandler
func NewPollHandler(poller *appsync.Poller) *PollHandler {
	return &PollHandler{poller: poller}
}

// PollReportResponse is the body of a manual poll trigger.
type PollReportResponse struct {
	MerchantID        string `json:"merchant_id"`
	Outcome           string `json:"outcome"`
	OrdersPolled      int    `json:"orders_polled"`
	OrdersCreated     int    `json:"orders_created"`
	OrdersUpdated     int    `json:"orders_updated"`
	OrdersSkipped     int    `json:"orders_skipped"`
	NotificationsSent int    `json:"notifications_sent"`
	OrderErrors       int    `json:"order_errors"`
	Error             string `json:"error,omitempty"`
}

// TriggerPoll runs one synchronous sweep for a merchant. Skip and error
// outcomes are reported in the body, not as HTTP errors; the sweep itself
// always completes.
func (h *PollHandler) TriggerPoll(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("merchantId"))
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID")
		return
	}

	report := h.poller.PollRecentOrders(c.Request.Context(), merchantID)

	h.Success(c, PollReportResponse{
		MerchantID:        report.MerchantID.String(),
		Outcome:           report.Outcome.String(),
		OrdersPolled:      report.OrdersPolled,
		OrdersCreated:     report.OrdersCreated,
		OrdersUpdated:     report.OrdersUpdated,
		OrdersSkipped:     report.OrdersSkipped,
		NotificationsSent: report.NotificationsSent,
		OrderErrors:       report.OrderErrors,
		Error:             report.Err,
	})
}

// RegisterRoutes registers polling routes
func (h *PollHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/poll/:merchantId", h.TriggerPoll)
	}
}
