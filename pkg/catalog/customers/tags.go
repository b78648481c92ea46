package customers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

const maxTagLength = 50

// SetTagsRequest represents the request to set tags on a customer
type SetTagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

// NormalizeTags trims, lowercases and de-duplicates tag names, dropping blanks
func NormalizeTags(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ResolveTags returns the organization's tags with the given names, creating missing ones
func ResolveTags(tx *gorm.DB, orgID uint, names []string) ([]models.Tag, error) {
	names = NormalizeTags(names)
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		if len(name) > maxTagLength {
			return nil, apperr.Validation("tag %q is longer than %d characters", name, maxTagLength)
		}

		var tag models.Tag
		err := tx.Scopes(tenant.Scope(orgID)).Where("name = ?", name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = models.Tag{OrganizationID: orgID, Name: name}
			err = tx.Create(&tag).Error
		}
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "resolving tag %q", name)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// SetTags replaces a customer's tags
// @Summary Set customer tags
// @Description Replace all tags on a customer; unknown tags are created
// @Tags customers
// @Accept json
// @Produce json
// @Param id path int true "Customer ID"
// @Param request body SetTagsRequest true "Tag names"
// @Success 200 {object} CustomerResponse
// @Failure 404 {object} map[string]string "Customer not found"
// @Security BearerAuth
// @Router /customers/{id}/tags [put]
func (h *Handler) SetTags(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "customer")
	if !ok {
		return
	}

	var req SetTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	var customer models.Customer
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tenant.Find(c.Request.Context(), tx, tc.OrgID(), id, &customer, "Customer"); err != nil {
			return err
		}
		tags, err := ResolveTags(tx, tc.OrgID(), req.Tags)
		if err != nil {
			return err
		}
		if err := tx.Model(&customer).Association("Tags").Replace(tags); err != nil {
			return pkgerrors.Wrap(err, "replacing customer tags")
		}
		customer.Tags = tags
		return nil
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, customerToResponse(customer))
}
