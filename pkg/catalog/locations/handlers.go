// Package locations manages an organization's physical sites.
package locations

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles location requests
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler creates a new locations handler
func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// LocationRequest represents the request to create or update a location
type LocationRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=100"`
	Address string `json:"address" binding:"max=500"`
}

// LocationResponse represents a location in API responses
type LocationResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	CreatedAt string `json:"created_at"`
}

func locationToResponse(l models.Location) LocationResponse {
	return LocationResponse{
		ID:        l.ID,
		Name:      l.Name,
		Address:   l.Address,
		CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// List returns the organization's locations
// @Summary List locations
// @Tags locations
// @Produce json
// @Success 200 {array} LocationResponse
// @Security BearerAuth
// @Router /locations [get]
func (h *Handler) List(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	var locations []models.Location
	if err := h.db.Scopes(tenant.Scope(tc.OrgID())).Order("name ASC").Find(&locations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch locations"})
		return
	}

	responses := make([]LocationResponse, len(locations))
	for i, l := range locations {
		responses[i] = locationToResponse(l)
	}
	c.JSON(http.StatusOK, responses)
}

// Create creates a location
// @Summary Create a location
// @Tags locations
// @Accept json
// @Produce json
// @Param request body LocationRequest true "Location details"
// @Success 201 {object} LocationResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /locations [post]
func (h *Handler) Create(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	location := models.Location{OrganizationID: tc.OrgID(), Name: req.Name, Address: req.Address}
	if err := h.db.Create(&location).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create location"})
		return
	}

	c.JSON(http.StatusCreated, locationToResponse(location))
}

// Get returns a location
// @Summary Get a location
// @Tags locations
// @Produce json
// @Param id path int true "Location ID"
// @Success 200 {object} LocationResponse
// @Failure 404 {object} map[string]string "Location not found"
// @Security BearerAuth
// @Router /locations/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "location")
	if !ok {
		return
	}

	var location models.Location
	if err := tenant.Find(c.Request.Context(), h.db, tc.OrgID(), id, &location, "Location"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, locationToResponse(location))
}

// Update updates a location
// @Summary Update a location
// @Tags locations
// @Accept json
// @Produce json
// @Param id path int true "Location ID"
// @Param request body LocationRequest true "Location details"
// @Success 200 {object} LocationResponse
// @Failure 404 {object} map[string]string "Location not found"
// @Security BearerAuth
// @Router /locations/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "location")
	if !ok {
		return
	}

	var location models.Location
	if err := tenant.Find(c.Request.Context(), h.db, tc.OrgID(), id, &location, "Location"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	location.Name = req.Name
	location.Address = req.Address
	if err := h.db.Save(&location).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update location"})
		return
	}

	c.JSON(http.StatusOK, locationToResponse(location))
}

// Delete deletes a location
// @Summary Delete a location
// @Tags locations
// @Produce json
// @Param id path int true "Location ID"
// @Success 200 {object} map[string]string "Location deleted"
// @Failure 404 {object} map[string]string "Location not found"
// @Security BearerAuth
// @Router /locations/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "location")
	if !ok {
		return
	}

	var location models.Location
	if err := tenant.Find(c.Request.Context(), h.db, tc.OrgID(), id, &location, "Location"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	if err := h.db.Delete(&location).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete location"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Location deleted"})
}

// RegisterRoutes registers location routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	locations := rg.Group("/locations")
	{
		locations.GET("", h.List)
		locations.POST("", h.Create)
		locations.GET("/:id", h.Get)
		locations.PUT("/:id", h.Update)
		locations.DELETE("/:id", h.Delete)
	}
}
