// Package payments lists payment events reported by the billing provider.
package payments

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxEvents = 500

// Handler handles payment event requests
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler creates a new payments handler
func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// EventResponse represents a payment event in API responses
type EventResponse struct {
	ID          uint   `json:"id"`
	CustomerID  *uint  `json:"customer_id"`
	Type        string `json:"type"`
	AmountCents int    `json:"amount_cents"`
	Currency    string `json:"currency"`
	OccurredAt  string `json:"occurred_at"`
	ExternalRef string `json:"external_ref"`
}

// List returns the most recent payment events, newest first
// @Summary List payment events
// @Tags payments
// @Produce json
// @Param customer_id query int false "Filter by customer"
// @Param type query string false "Filter by event type"
// @Success 200 {array} EventResponse
// @Security BearerAuth
// @Router /payment-events [get]
func (h *Handler) List(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	query := h.db.Scopes(tenant.Scope(tc.OrgID())).Order("occurred_at DESC, id DESC").Limit(maxEvents)
	if v := c.Query("customer_id"); v != "" {
		customerID, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
			return
		}
		query = query.Where("customer_id = ?", customerID)
	}
	if v := c.Query("type"); v != "" {
		query = query.Where("type = ?", v)
	}

	var events []models.PaymentEvent
	if err := query.Find(&events).Error; err != nil {
		h.logger.Error("listing payment events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment events"})
		return
	}

	responses := make([]EventResponse, len(events))
	for i, e := range events {
		responses[i] = EventResponse{
			ID:          e.ID,
			CustomerID:  e.CustomerID,
			Type:        e.Type,
			AmountCents: e.AmountCents,
			Currency:    e.Currency,
			OccurredAt:  e.OccurredAt.UTC().Format(time.RFC3339),
			ExternalRef: e.ExternalRef,
		}
	}
	c.JSON(http.StatusOK, responses)
}

// RegisterRoutes registers payment event routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/payment-events", h.List)
}
