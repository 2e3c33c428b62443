package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shopsync/backend/internal/domain/order"
)

// OrderHandler exposes read-only order listings for operators
type OrderHandler struct {
	BaseHandler
	orders order.OrderLister
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders order.OrderLister) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// OrderSummary is one order in a listing.
type OrderSummary struct {
	ID                     string `json:"id"`
	UpstreamOrderID        string `json:"upstream_order_id"`
	OrderNumber            string `json:"order_number"`
	CustomerCorrelationKey string `json:"customer_correlation_key,omitempty"`
	FinancialStatus        string `json:"financial_status"`
	FulfillmentStatus      string `json:"fulfillment_status,omitempty"`
	CanonicalStatus        string `json:"canonical_status"`
	Total                  string `json:"total"`
	Currency               string `json:"currency"`
	TrackingNumber         string `json:"tracking_number,omitempty"`
	UpstreamUpdatedAt      string `json:"upstream_updated_at"`
}

// OrderListResponse is the body of a merchant order listing.
type OrderListResponse struct {
	Orders []OrderSummary `json:"orders"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ListByMerchant returns a sorted page of the merchant's synced orders
func (h *OrderHandler) ListByMerchant(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("merchantId"))
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	q := order.ListQuery{
		SortField: c.Query("sort_field"),
		SortOrder: c.Query("sort_order"),
		Limit:     limit,
		Offset:    offset,
	}

	orders, total, err := h.orders.ListByMerchant(c.Request.Context(), merchantID, q)
	if err != nil {
		h.InternalError(c, "Failed to list orders")
		return
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		summaries = append(summaries, OrderSummary{
			ID:                     o.ID.String(),
			UpstreamOrderID:        o.UpstreamOrderID,
			OrderNumber:            o.OrderNumber,
			CustomerCorrelationKey: o.CustomerCorrelationKey,
			FinancialStatus:        o.FinancialStatus,
			FulfillmentStatus:      o.FulfillmentStatus,
			CanonicalStatus:        o.CanonicalStatus.String(),
			Total:                  o.Total.String(),
			Currency:               o.Currency,
			TrackingNumber:         o.TrackingNumber,
			UpstreamUpdatedAt:      o.UpstreamUpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	h.Success(c, OrderListResponse{
		Orders: summaries,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// RegisterRoutes registers order listing routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	merchants := rg.Group("/merchants")
	{
		merchants.GET("/:merchantId/orders", h.ListByMerchant)
	}
}
