package customers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrHouseholdHeadTaken is returned when a household already has a different head
var ErrHouseholdHeadTaken = apperr.Conflict("Household already has a head")

// CreateHouseholdRequest represents the request to create a household
type CreateHouseholdRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// HouseholdResponse represents a household in API responses
type HouseholdResponse struct {
	ID      uint               `json:"id"`
	Name    string             `json:"name"`
	HeadID  *uint              `json:"head_id"`
	Members []CustomerResponse `json:"members"`
}

func householdToResponse(hh models.Household) HouseholdResponse {
	resp := HouseholdResponse{
		ID:      hh.ID,
		Name:    hh.Name,
		Members: make([]CustomerResponse, len(hh.Members)),
	}
	for i, m := range hh.Members {
		resp.Members[i] = customerToResponse(m)
		if m.IsHouseholdHead {
			id := m.ID
			resp.HeadID = &id
		}
	}
	return resp
}

func preloadMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("is_household_head DESC, id ASC")
	})
}

// ListHouseholds returns the organization's households with their members
// @Summary List households
// @Tags households
// @Produce json
// @Success 200 {array} HouseholdResponse
// @Security BearerAuth
// @Router /households [get]
func (h *Handler) ListHouseholds(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	var households []models.Household
	err := preloadMembers(h.db).Scopes(tenant.Scope(tc.OrgID())).Order("name ASC").Find(&households).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch households"})
		return
	}

	responses := make([]HouseholdResponse, len(households))
	for i, hh := range households {
		responses[i] = householdToResponse(hh)
	}
	c.JSON(http.StatusOK, responses)
}

// CreateHousehold creates an empty household
// @Summary Create a household
// @Tags households
// @Accept json
// @Produce json
// @Param request body CreateHouseholdRequest true "Household details"
// @Success 201 {object} HouseholdResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /households [post]
func (h *Handler) CreateHousehold(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	var req CreateHouseholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	household := models.Household{OrganizationID: tc.OrgID(), Name: req.Name}
	if err := h.db.Create(&household).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create household"})
		return
	}

	c.JSON(http.StatusCreated, householdToResponse(household))
}

// GetHousehold returns a household with its members
// @Summary Get a household
// @Tags households
// @Produce json
// @Param id path int true "Household ID"
// @Success 200 {object} HouseholdResponse
// @Failure 404 {object} map[string]string "Household not found"
// @Security BearerAuth
// @Router /households/{id} [get]
func (h *Handler) GetHousehold(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "household")
	if !ok {
		return
	}

	var household models.Household
	if err := tenant.Find(c.Request.Context(), preloadMembers(h.db), tc.OrgID(), id, &household, "Household"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, householdToResponse(household))
}

// DeleteHousehold deletes a household, detaching its members
// @Summary Delete a household
// @Tags households
// @Produce json
// @Param id path int true "Household ID"
// @Success 200 {object} map[string]string "Household deleted"
// @Failure 404 {object} map[string]string "Household not found"
// @Security BearerAuth
// @Router /households/{id} [delete]
func (h *Handler) DeleteHousehold(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "household")
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var household models.Household
		if err := tenant.Find(c.Request.Context(), tx, tc.OrgID(), id, &household, "Household"); err != nil {
			return err
		}
		err := tx.Model(&models.Customer{}).
			Scopes(tenant.Scope(tc.OrgID())).
			Where("household_id = ?", household.ID).
			Updates(map[string]interface{}{"household_id": nil, "is_household_head": false}).Error
		if err != nil {
			return pkgerrors.Wrap(err, "detaching household members")
		}
		return pkgerrors.Wrap(tx.Delete(&household).Error, "deleting household")
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Household deleted"})
}

// AddHouseholdMember moves a customer into a household
// @Summary Add a customer to a household
// @Description With head=true the customer becomes the household head; a household has at most one head
// @Tags households
// @Produce json
// @Param id path int true "Household ID"
// @Param customerId path int true "Customer ID"
// @Param head query bool false "Make the customer the head"
// @Success 200 {object} HouseholdResponse
// @Failure 404 {object} map[string]string "Household or customer not found"
// @Failure 409 {object} map[string]string "Household already has a head"
// @Security BearerAuth
// @Router /households/{id}/members/{customerId} [post]
func (h *Handler) AddHouseholdMember(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	ctx := c.Request.Context()
	id, ok := apperr.ParamID(c, "id", "household")
	if !ok {
		return
	}
	customerID, ok := apperr.ParamID(c, "customerId", "customer")
	if !ok {
		return
	}
	head := c.Query("head") == "true"

	var household models.Household
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tenant.Find(ctx, tx, tc.OrgID(), id, &household, "Household"); err != nil {
			return err
		}
		var customer models.Customer
		if err := tenant.Find(ctx, tx, tc.OrgID(), customerID, &customer, "Customer"); err != nil {
			return err
		}

		if head {
			var heads int64
			err := tx.Model(&models.Customer{}).
				Scopes(tenant.Scope(tc.OrgID())).
				Where("household_id = ? AND is_household_head = ? AND id != ?", household.ID, true, customer.ID).
				Count(&heads).Error
			if err != nil {
				return pkgerrors.Wrap(err, "counting household heads")
			}
			if heads > 0 {
				return ErrHouseholdHeadTaken
			}
		}

		err := tx.Model(&customer).
			Updates(map[string]interface{}{"household_id": household.ID, "is_household_head": head}).Error
		if err != nil {
			return pkgerrors.Wrap(err, "updating customer household")
		}
		return preloadMembers(tx).First(&household, household.ID).Error
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, householdToResponse(household))
}

// RemoveHouseholdMember detaches a customer from a household
// @Summary Remove a customer from a household
// @Tags households
// @Produce json
// @Param id path int true "Household ID"
// @Param customerId path int true "Customer ID"
// @Success 200 {object} map[string]string "Member removed"
// @Failure 404 {object} map[string]string "Household member not found"
// @Security BearerAuth
// @Router /households/{id}/members/{customerId} [delete]
func (h *Handler) RemoveHouseholdMember(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "household")
	if !ok {
		return
	}
	customerID, ok := apperr.ParamID(c, "customerId", "customer")
	if !ok {
		return
	}

	res := h.db.Model(&models.Customer{}).
		Scopes(tenant.Scope(tc.OrgID())).
		Where("id = ? AND household_id = ?", customerID, id).
		Updates(map[string]interface{}{"household_id": nil, "is_household_head": false})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Household member not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
