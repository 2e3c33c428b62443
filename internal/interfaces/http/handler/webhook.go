package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsync "github.com/shopsync/backend/internal/application/sync"
	"github.com/shopsync/backend/internal/domain/upstream"
)

// Shopify webhook headers
const (
	headerHmacSignature = "X-Shopify-Hmac-Sha256"
	headerShopDomain    = "X-Shopify-Shop-Domain"
	headerWebhookID     = "X-Shopify-Webhook-Id"
)

// WebhookHandler handles order webhook deliveries from the platform.
// These endpoints are called by the platform and authenticate via HMAC
// signature, not user credentials
type WebhookHandler struct {
	BaseHandler
	ingest       *appsync.WebhookIngest
	integrations upstream.MerchantIntegrationRepository
	secret       string
	maxBodySize  int64
	logger       *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	ingest *appsync.WebhookIngest,
	integrations upstream.MerchantIntegrationRepository,
	secret string,
	maxBodySize int64,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		ingest:       ingest,
		integrations: integrations,
		secret:       secret,
		maxBodySize:  maxBodySize,
		logger:       logger,
	}
}

// WebhookResponse is the response body for webhook deliveries.
type WebhookResponse struct {
	Received bool   `json:"received"`
	EventID  string `json:"event_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// HandleOrderEvent receives an order create/update webhook. Processing
// failures still return 200 once the event is parked for retry; only a
// failure to durably capture the event returns 500 so the platform redelivers.
func (h *WebhookHandler) HandleOrderEvent(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBodySize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{
			Received: false,
			Message:  "Failed to read request body",
		})
		return
	}
	if int64(len(payload)) > h.maxBodySize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{
			Received: false,
			Message:  "Payload too large",
		})
		return
	}

	signature := c.GetHeader(headerHmacSignature)
	if signature == "" || !h.verifySignature(payload, signature) {
		c.JSON(http.StatusUnauthorized, WebhookResponse{
			Received: false,
			Message:  "Webhook signature verification failed",
		})
		return
	}

	shopDomain := c.GetHeader(headerShopDomain)
	if shopDomain == "" {
		c.JSON(http.StatusBadRequest, WebhookResponse{
			Received: false,
			Message:  "Missing shop domain header",
		})
		return
	}
	eventID := c.GetHeader(headerWebhookID)
	if eventID == "" {
		c.JSON(http.StatusBadRequest, WebhookResponse{
			Received: false,
			Message:  "Missing webhook id header",
		})
		return
	}

	integration, err := h.integrations.FindByShopDomain(c.Request.Context(), shopDomain)
	if err != nil {
		if errors.Is(err, upstream.ErrIntegrationNotFound) {
			h.NotFound(c, "Unknown shop domain")
			return
		}
		h.logger.Error("Failed to resolve shop domain",
			zap.String("shop_domain", shopDomain),
			zap.Error(err),
		)
		h.InternalError(c, "Failed to resolve shop domain")
		return
	}

	if _, err := h.ingest.ProcessOrderEvent(c.Request.Context(), integration.MerchantID, eventID, payload); err != nil {
		// Event is neither processed nor parked; a 500 makes the platform retry.
		c.JSON(http.StatusInternalServerError, WebhookResponse{
			Received: false,
			EventID:  eventID,
			Message:  "Failed to capture event",
		})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{
		Received: true,
		EventID:  eventID,
	})
}

// verifySignature checks the base64 HMAC-SHA256 of the raw payload
func (h *WebhookHandler) verifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/shopify/orders", h.HandleOrderEvent)
	}
}
