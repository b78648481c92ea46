package tags

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/customers"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrTagExists is returned when a rename collides with another tag
var ErrTagExists = apperr.Conflict("A tag with that name already exists")

// Handler handles tag-related requests
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	CustomerCount int    `json:"customer_count"`
}

// RenameTagRequest represents the request to rename a tag
type RenameTagRequest struct {
	Name string `json:"name" binding:"required,min=1,max=50"`
}

// List returns the organization's tags with the number of customers carrying each
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} TagResponse
// @Security BearerAuth
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	var results []TagResponse
	err := h.db.WithContext(c.Request.Context()).Table("tags").
		Select("tags.id, tags.name, COUNT(DISTINCT customers.id) AS customer_count").
		Joins("LEFT JOIN customer_tags ON tags.id = customer_tags.tag_id").
		Joins("LEFT JOIN customers ON customer_tags.customer_id = customers.id AND customers.deleted_at IS NULL").
		Scopes(tenant.ScopeTable("tags", tc.OrgID())).
		Where("tags.deleted_at IS NULL").
		Group("tags.id, tags.name").
		Order("customer_count DESC, tags.name ASC").
		Scan(&results).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	if results == nil {
		results = []TagResponse{}
	}
	c.JSON(http.StatusOK, results)
}

// Rename renames a tag everywhere it is used
// @Summary Rename a tag
// @Tags tags
// @Accept json
// @Produce json
// @Param id path int true "Tag ID"
// @Param request body RenameTagRequest true "New name"
// @Success 200 {object} TagResponse
// @Failure 404 {object} map[string]string "Tag not found"
// @Failure 409 {object} map[string]string "A tag with that name already exists"
// @Security BearerAuth
// @Router /tags/{id} [put]
func (h *Handler) Rename(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "tag")
	if !ok {
		return
	}

	var req RenameTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	names := customers.NormalizeTags([]string{req.Name})
	if len(names) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be blank"})
		return
	}

	var tag models.Tag
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tenant.Find(c.Request.Context(), tx, tc.OrgID(), id, &tag, "Tag"); err != nil {
			return err
		}

		var clash int64
		if err := tx.Model(&models.Tag{}).Scopes(tenant.Scope(tc.OrgID())).
			Where("name = ? AND id <> ?", names[0], tag.ID).Count(&clash).Error; err != nil {
			return pkgerrors.Wrap(err, "checking tag name")
		}
		if clash > 0 {
			return ErrTagExists
		}

		tag.Name = names[0]
		return pkgerrors.Wrap(tx.Model(&tag).Update("name", tag.Name).Error, "renaming tag")
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, TagResponse{ID: tag.ID, Name: tag.Name})
}

// Delete removes a tag from every customer and deletes it
// @Summary Delete a tag
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} map[string]string "Tag deleted"
// @Failure 404 {object} map[string]string "Tag not found"
// @Security BearerAuth
// @Router /tags/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "tag")
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var tag models.Tag
		if err := tenant.Find(c.Request.Context(), tx, tc.OrgID(), id, &tag, "Tag"); err != nil {
			return err
		}
		if err := tx.Model(&tag).Association("Customers").Clear(); err != nil {
			return pkgerrors.Wrap(err, "detaching tag")
		}
		// Hard delete so the name can be reused under the (organization, name) unique index
		return pkgerrors.Wrap(tx.Unscoped().Delete(&tag).Error, "deleting tag")
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted"})
}

// AddCustomerTag adds a single tag to a customer, creating the tag if needed
// @Summary Add a tag to a customer
// @Tags tags
// @Produce json
// @Param id path int true "Customer ID"
// @Param tag path string true "Tag name"
// @Success 200 {object} TagResponse
// @Failure 404 {object} map[string]string "Customer not found"
// @Security BearerAuth
// @Router /customers/{id}/tags/{tag} [post]
func (h *Handler) AddCustomerTag(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "customer")
	if !ok {
		return
	}

	var tag models.Tag
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tenant.Find(c.Request.Context(), tx, tc.OrgID(), id, &customer, "Customer"); err != nil {
			return err
		}

		resolved, err := customers.ResolveTags(tx, tc.OrgID(), []string{c.Param("tag")})
		if err != nil {
			return err
		}
		if len(resolved) == 0 {
			return apperr.Validation("Tag name cannot be blank")
		}
		tag = resolved[0]

		return pkgerrors.Wrap(tx.Model(&customer).Association("Tags").Append(&tag), "adding tag")
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, TagResponse{ID: tag.ID, Name: tag.Name})
}

// RemoveCustomerTag removes a tag from a customer
// @Summary Remove a tag from a customer
// @Tags tags
// @Produce json
// @Param id path int true "Customer ID"
// @Param tag path string true "Tag name"
// @Success 200 {object} map[string]string "Tag removed"
// @Failure 404 {object} map[string]string "Customer or tag not found"
// @Security BearerAuth
// @Router /customers/{id}/tags/{tag} [delete]
func (h *Handler) RemoveCustomerTag(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)
	id, ok := apperr.ParamID(c, "id", "customer")
	if !ok {
		return
	}

	var customer models.Customer
	if err := tenant.Find(ctx, db, tc.OrgID(), id, &customer, "Customer"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	var tag models.Tag
	name := strings.ToLower(strings.TrimSpace(c.Param("tag")))
	if err := db.Scopes(tenant.Scope(tc.OrgID())).Where("name = ?", name).First(&tag).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			err = apperr.NotFound("Tag")
		}
		apperr.Respond(c, h.logger, err)
		return
	}

	if err := db.Model(&customer).Association("Tags").Delete(&tag); err != nil {
		apperr.Respond(c, h.logger, pkgerrors.Wrap(err, "removing tag"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tag removed"})
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.List)
	rg.PUT("/tags/:id", h.Rename)
	rg.DELETE("/tags/:id", h.Delete)

	rg.POST("/customers/:id/tags/:tag", h.AddCustomerTag)
	rg.DELETE("/customers/:id/tags/:tag", h.RemoveCustomerTag)
}
