// Package plans manages membership plans and the locations they are sold at.
package plans

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles membership plan requests
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler creates a new plans handler
func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// PlanRequest represents the request to create or replace a membership plan
type PlanRequest struct {
	Name            string `json:"name" binding:"required,min=1,max=200"`
	Description     string `json:"description"`
	PlanType        string `json:"plan_type" binding:"required,oneof=recurring fixed_term punch_card"`
	PriceCents      int    `json:"price_cents" binding:"min=0"`
	BillingInterval string `json:"billing_interval" binding:"omitempty,oneof=monthly yearly"`
	TermMonths      *int   `json:"term_months"`
	VisitLimit      *int   `json:"visit_limit"`
	Active          *bool  `json:"active"`
	LocationIDs     []uint `json:"location_ids"`
}

// PlanResponse represents a membership plan in API responses
type PlanResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	PlanType        string `json:"plan_type"`
	PriceCents      int    `json:"price_cents"`
	BillingInterval string `json:"billing_interval,omitempty"`
	TermMonths      *int   `json:"term_months,omitempty"`
	VisitLimit      *int   `json:"visit_limit,omitempty"`
	Active          bool   `json:"active"`
	LocationIDs     []uint `json:"location_ids"`
	CreatedAt       string `json:"created_at"`
}

func planToResponse(p models.MembershipPlan) PlanResponse {
	ids := make([]uint, len(p.Locations))
	for i, l := range p.Locations {
		ids[i] = l.ID
	}
	return PlanResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		PlanType:        string(p.PlanType),
		PriceCents:      p.PriceCents,
		BillingInterval: p.BillingInterval,
		TermMonths:      p.TermMonths,
		VisitLimit:      p.VisitLimit,
		Active:          p.Active,
		LocationIDs:     ids,
		CreatedAt:       p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// apply validates the plan-type specific fields and copies the request onto plan
func (req *PlanRequest) apply(plan *models.MembershipPlan) error {
	plan.Name = req.Name
	plan.Description = req.Description
	plan.PlanType = models.PlanType(req.PlanType)
	plan.PriceCents = req.PriceCents
	plan.BillingInterval = ""
	plan.TermMonths = nil
	plan.VisitLimit = nil
	plan.Active = req.Active == nil || *req.Active

	switch plan.PlanType {
	case models.PlanTypeRecurring:
		plan.BillingInterval = req.BillingInterval
		if plan.BillingInterval == "" {
			plan.BillingInterval = "monthly"
		}
	case models.PlanTypeFixedTerm:
		if req.TermMonths == nil || *req.TermMonths <= 0 {
			return apperr.Validation("term_months must be greater than zero for fixed_term plans")
		}
		plan.TermMonths = req.TermMonths
	case models.PlanTypePunchCard:
		if req.VisitLimit == nil || *req.VisitLimit <= 0 {
			return apperr.Validation("visit_limit must be greater than zero for punch_card plans")
		}
		plan.VisitLimit = req.VisitLimit
	}
	return nil
}

// loadLocations returns the organization's locations with the given ids,
// failing if any id is unknown
func loadLocations(ctx context.Context, tx *gorm.DB, orgID uint, ids []uint) ([]models.Location, error) {
	if len(ids) == 0 {
		return []models.Location{}, nil
	}
	unique := make(map[uint]bool, len(ids))
	for _, id := range ids {
		unique[id] = true
	}

	var locations []models.Location
	if err := tx.WithContext(ctx).Scopes(tenant.Scope(orgID)).Where("id IN ?", ids).Find(&locations).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "loading plan locations")
	}
	if len(locations) != len(unique) {
		return nil, apperr.Validation("location_ids contains an unknown location")
	}
	return locations, nil
}

// List returns the organization's membership plans
// @Summary List membership plans
// @Tags plans
// @Produce json
// @Param active query bool false "Filter by active flag"
// @Success 200 {array} PlanResponse
// @Security BearerAuth
// @Router /membership-plans [get]
func (h *Handler) List(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	query := h.db.Preload("Locations").Scopes(tenant.Scope(tc.OrgID())).Order("name ASC")
	if active := c.Query("active"); active != "" {
		query = query.Where("active = ?", active == "true")
	}

	var plans []models.MembershipPlan
	if err := query.Find(&plans).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch membership plans"})
		return
	}

	responses := make([]PlanResponse, len(plans))
	for i, p := range plans {
		responses[i] = planToResponse(p)
	}
	c.JSON(http.StatusOK, responses)
}

// Create creates a membership plan with its locations in one transaction
// @Summary Create a membership plan
// @Description fixed_term plans require term_months; punch_card plans require visit_limit
// @Tags plans
// @Accept json
// @Produce json
// @Param request body PlanRequest true "Plan details"
// @Success 201 {object} PlanResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /membership-plans [post]
func (h *Handler) Create(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	ctx := c.Request.Context()

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	plan := models.MembershipPlan{OrganizationID: tc.OrgID()}
	if err := req.apply(&plan); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locations, err := loadLocations(ctx, tx, tc.OrgID(), req.LocationIDs)
		if err != nil {
			return err
		}
		if err := tx.Omit("Locations").Create(&plan).Error; err != nil {
			return pkgerrors.Wrap(err, "creating membership plan")
		}
		if len(locations) > 0 {
			if err := tx.Model(&plan).Association("Locations").Append(locations); err != nil {
				return pkgerrors.Wrap(err, "linking plan locations")
			}
		}
		plan.Locations = locations
		return nil
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, planToResponse(plan))
}

// Get returns a membership plan
// @Summary Get a membership plan
// @Tags plans
// @Produce json
// @Param id path int true "Plan ID"
// @Success 200 {object} PlanResponse
// @Failure 404 {object} map[string]string "Membership plan not found"
// @Security BearerAuth
// @Router /membership-plans/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "plan")
	if !ok {
		return
	}

	var plan models.MembershipPlan
	if err := tenant.Find(c.Request.Context(), h.db.Preload("Locations"), tc.OrgID(), id, &plan, "Membership plan"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, planToResponse(plan))
}

// Update replaces a membership plan and its locations
// @Summary Update a membership plan
// @Tags plans
// @Accept json
// @Produce json
// @Param id path int true "Plan ID"
// @Param request body PlanRequest true "Plan details"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Membership plan not found"
// @Security BearerAuth
// @Router /membership-plans/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	ctx := c.Request.Context()
	id, ok := apperr.ParamID(c, "id", "plan")
	if !ok {
		return
	}

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	var plan models.MembershipPlan
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tenant.Find(ctx, tx, tc.OrgID(), id, &plan, "Membership plan"); err != nil {
			return err
		}
		if err := req.apply(&plan); err != nil {
			return err
		}
		locations, err := loadLocations(ctx, tx, tc.OrgID(), req.LocationIDs)
		if err != nil {
			return err
		}
		if err := tx.Omit("Locations").Save(&plan).Error; err != nil {
			return pkgerrors.Wrap(err, "saving membership plan")
		}
		if err := tx.Model(&plan).Association("Locations").Replace(locations); err != nil {
			return pkgerrors.Wrap(err, "replacing plan locations")
		}
		plan.Locations = locations
		return nil
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, planToResponse(plan))
}

// Delete deletes a membership plan
// @Summary Delete a membership plan
// @Tags plans
// @Produce json
// @Param id path int true "Plan ID"
// @Success 200 {object} map[string]string "Membership plan deleted"
// @Failure 404 {object} map[string]string "Membership plan not found"
// @Security BearerAuth
// @Router /membership-plans/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "plan")
	if !ok {
		return
	}

	var plan models.MembershipPlan
	if err := tenant.Find(c.Request.Context(), h.db, tc.OrgID(), id, &plan, "Membership plan"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&plan).Association("Locations").Clear(); err != nil {
			return pkgerrors.Wrap(err, "clearing plan locations")
		}
		return pkgerrors.Wrap(tx.Delete(&plan).Error, "deleting membership plan")
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Membership plan deleted"})
}

// RegisterRoutes registers membership plan routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	plans := rg.Group("/membership-plans")
	{
		plans.GET("", h.List)
		plans.POST("", h.Create)
		plans.GET("/:id", h.Get)
		plans.PUT("/:id", h.Update)
		plans.DELETE("/:id", h.Delete)
	}
}
