package importexport

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/customers"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxImportRows bounds a single import request
const MaxImportRows = 1000

// Handler handles customer import/export requests
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler creates a new import/export handler
func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// CustomerRecord is one customer in the interchange format.
// Tags are space separated, as most spreadsheet exports flatten them.
type CustomerRecord struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	Tags      string `json:"tags"`
	Household string `json:"household,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ImportRequest represents an import request
type ImportRequest struct {
	Customers []CustomerRecord `json:"customers" binding:"required"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

func validStatus(s string) bool {
	switch models.CustomerStatus(s) {
	case models.CustomerStatusActive, models.CustomerStatusInactive, models.CustomerStatusProspect:
		return true
	}
	return false
}

// importRecord creates one customer with its tags. Customers whose email is
// already on file in the organization are left untouched.
func importRecord(tx *gorm.DB, orgID uint, rec CustomerRecord) error {
	first := strings.TrimSpace(rec.FirstName)
	last := strings.TrimSpace(rec.LastName)
	if first == "" || last == "" {
		return apperr.Validation("first_name and last_name are required")
	}

	status := strings.ToLower(strings.TrimSpace(rec.Status))
	if status == "" {
		status = string(models.CustomerStatusActive)
	}
	if !validStatus(status) {
		return apperr.Validation("unknown status %q", rec.Status)
	}

	email := strings.ToLower(strings.TrimSpace(rec.Email))
	if email != "" {
		var existing int64
		if err := tx.Model(&models.Customer{}).Scopes(tenant.Scope(orgID)).
			Where("email = ?", email).Count(&existing).Error; err != nil {
			return pkgerrors.Wrap(err, "checking email")
		}
		if existing > 0 {
			return apperr.Conflict("customer with email " + email + " already exists")
		}
	}

	tags, err := customers.ResolveTags(tx, orgID, strings.Fields(rec.Tags))
	if err != nil {
		return err
	}

	customer := models.Customer{
		OrganizationID: orgID,
		FirstName:      first,
		LastName:       last,
		Email:          email,
		Phone:          strings.TrimSpace(rec.Phone),
		Status:         models.CustomerStatus(status),
		Tags:           tags,
	}
	if rec.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339, rec.CreatedAt)
		if err != nil {
			return apperr.Validation("invalid created_at %q", rec.CreatedAt)
		}
		customer.CreatedAt = created.UTC()
	}
	return pkgerrors.Wrap(tx.Create(&customer).Error, "creating customer")
}

// Import creates customers from the interchange format
// @Summary Import customers
// @Description Import customers row by row. Invalid rows and rows whose email is already on file are skipped and reported.
// @Tags customers
// @Accept json
// @Produce json
// @Param request body ImportRequest true "Customers to import"
// @Success 200 {object} ImportResult
// @Failure 400 {object} map[string]string "Invalid request"
// @Security BearerAuth
// @Router /customers/import [post]
func (h *Handler) Import(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Customers) > MaxImportRows {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At most " + strconv.Itoa(MaxImportRows) + " customers per import"})
		return
	}

	result := ImportResult{
		Errors: []string{},
	}

	db := h.db.WithContext(c.Request.Context())
	for i, rec := range req.Customers {
		err := db.Transaction(func(tx *gorm.DB) error {
			return importRecord(tx, tc.OrgID(), rec)
		})
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				h.logger.Error("customer import row failed",
					zap.Uint("organization_id", tc.OrgID()),
					zap.Int("row", i),
					zap.Error(err),
				)
				result.Errors = append(result.Errors, "customer "+strconv.Itoa(i)+": internal error")
			} else {
				result.Errors = append(result.Errors, "customer "+strconv.Itoa(i)+": "+err.Error())
			}
			result.Skipped++
			continue
		}
		result.Imported++
	}

	h.logger.Info("customers imported",
		zap.Uint("organization_id", tc.OrgID()),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
	)
	c.JSON(http.StatusOK, result)
}

// Export returns the organization's customers in the interchange format
// @Summary Export customers
// @Tags customers
// @Produce json
// @Param status query string false "Only customers with this status"
// @Param download query bool false "Send as an attachment"
// @Success 200 {array} CustomerRecord
// @Security BearerAuth
// @Router /customers/export [get]
func (h *Handler) Export(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	query := h.db.WithContext(c.Request.Context()).
		Scopes(tenant.Scope(tc.OrgID())).
		Preload("Tags").Preload("Household")
	if status := c.Query("status"); status != "" {
		if !validStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		query = query.Where("status = ?", status)
	}

	var list []models.Customer
	if err := query.Order("last_name ASC, first_name ASC, id ASC").Find(&list).Error; err != nil {
		apperr.Respond(c, h.logger, pkgerrors.Wrap(err, "exporting customers"))
		return
	}

	records := make([]CustomerRecord, len(list))
	for i, cu := range list {
		tagNames := make([]string, len(cu.Tags))
		for j, tag := range cu.Tags {
			tagNames[j] = tag.Name
		}
		sort.Strings(tagNames)

		records[i] = CustomerRecord{
			FirstName: cu.FirstName,
			LastName:  cu.LastName,
			Email:     cu.Email,
			Phone:     cu.Phone,
			Status:    string(cu.Status),
			Tags:      strings.Join(tagNames, " "),
			CreatedAt: cu.CreatedAt.UTC().Format(time.RFC3339),
		}
		if cu.Household != nil {
			records[i].Household = cu.Household.Name
		}
	}

	// Set content disposition for download
	if c.Query("download") == "true" {
		c.Header("Content-Disposition", "attachment; filename="+tc.Organization.Slug+"-customers.json")
	}

	c.JSON(http.StatusOK, records)
}

// RegisterRoutes registers import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/customers/import", h.Import)
	rg.GET("/customers/export", h.Export)
}
