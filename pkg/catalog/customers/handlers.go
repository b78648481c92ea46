// Package customers manages an organization's customers, their tags and
// the households they belong to.
package customers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Handler handles customer, tag and household requests
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler creates a new customers handler
func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// CreateCustomerRequest represents the request to create a customer
type CreateCustomerRequest struct {
	FirstName string   `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string   `json:"last_name" binding:"required,min=1,max=100"`
	Email     string   `json:"email" binding:"omitempty,email"`
	Phone     string   `json:"phone" binding:"omitempty,max=40"`
	Status    string   `json:"status" binding:"omitempty,oneof=active inactive prospect"`
	Tags      []string `json:"tags"`
}

// UpdateCustomerRequest represents the request to update a customer
type UpdateCustomerRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,min=1,max=100"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Phone     *string `json:"phone" binding:"omitempty,max=40"`
	Status    *string `json:"status" binding:"omitempty,oneof=active inactive prospect"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID              uint     `json:"id"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	Status          string   `json:"status"`
	HouseholdID     *uint    `json:"household_id"`
	IsHouseholdHead bool     `json:"is_household_head"`
	Tags            []string `json:"tags"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

func customerToResponse(cu models.Customer) CustomerResponse {
	tags := make([]string, len(cu.Tags))
	for i, t := range cu.Tags {
		tags[i] = t.Name
	}
	return CustomerResponse{
		ID:              cu.ID,
		FirstName:       cu.FirstName,
		LastName:        cu.LastName,
		Email:           cu.Email,
		Phone:           cu.Phone,
		Status:          string(cu.Status),
		HouseholdID:     cu.HouseholdID,
		IsHouseholdHead: cu.IsHouseholdHead,
		Tags:            tags,
		CreatedAt:       cu.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       cu.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// pageParams reads limit and offset query parameters
func pageParams(c *gin.Context) (limit, offset int, ok bool) {
	limit = defaultPageSize
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return 0, 0, false
		}
		limit = n
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

// List returns customers matching the filters
// @Summary List customers
// @Description Search customers by name, email or phone. tags matches customers carrying any of the given tags.
// @Tags customers
// @Produce json
// @Param q query string false "Search text"
// @Param status query string false "active, inactive or prospect"
// @Param tags query string false "Comma-separated tag names"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Rows to skip"
// @Success 200 {array} CustomerResponse
// @Header 200 {integer} X-Total-Count "Matching customers before paging"
// @Security BearerAuth
// @Router /customers [get]
func (h *Handler) List(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}

	query := h.db.Model(&models.Customer{}).Scopes(tenant.ScopeTable("customers", tc.OrgID()))

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(customers.first_name) LIKE ? OR LOWER(customers.last_name) LIKE ? OR LOWER(customers.email) LIKE ? OR customers.phone LIKE ?",
			like, like, like, like)
	}
	if status := c.Query("status"); status != "" {
		switch models.CustomerStatus(status) {
		case models.CustomerStatusActive, models.CustomerStatusInactive, models.CustomerStatusProspect:
			query = query.Where("customers.status = ?", status)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
	}
	if names := NormalizeTags(strings.Split(c.Query("tags"), ",")); len(names) > 0 {
		query = query.Where(
			"customers.id IN (SELECT customer_tags.customer_id FROM customer_tags "+
				"JOIN tags ON tags.id = customer_tags.tag_id "+
				"WHERE tags.organization_id = ? AND tags.name IN ? AND tags.deleted_at IS NULL)",
			tc.OrgID(), names)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count customers"})
		return
	}

	var customers []models.Customer
	err := query.Preload("Tags").
		Order("customers.last_name ASC, customers.first_name ASC, customers.id ASC").
		Limit(limit).Offset(offset).
		Find(&customers).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch customers"})
		return
	}

	responses := make([]CustomerResponse, len(customers))
	for i, cu := range customers {
		responses[i] = customerToResponse(cu)
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, responses)
}

// Create creates a customer
// @Summary Create a customer
// @Tags customers
// @Accept json
// @Produce json
// @Param request body CreateCustomerRequest true "Customer details"
// @Success 201 {object} CustomerResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /customers [post]
func (h *Handler) Create(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	customer := models.Customer{
		OrganizationID: tc.OrgID(),
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:          req.Phone,
		Status:         models.CustomerStatusActive,
	}
	if req.Status != "" {
		customer.Status = models.CustomerStatus(req.Status)
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		tags, err := ResolveTags(tx, tc.OrgID(), req.Tags)
		if err != nil {
			return err
		}
		customer.Tags = tags
		return pkgerrors.Wrap(tx.Create(&customer).Error, "creating customer")
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, customerToResponse(customer))
}

// Get returns a customer
// @Summary Get a customer
// @Tags customers
// @Produce json
// @Param id path int true "Customer ID"
// @Success 200 {object} CustomerResponse
// @Failure 404 {object} map[string]string "Customer not found"
// @Security BearerAuth
// @Router /customers/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "customer")
	if !ok {
		return
	}

	var customer models.Customer
	if err := tenant.Find(c.Request.Context(), h.db.Preload("Tags"), tc.OrgID(), id, &customer, "Customer"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customerToResponse(customer))
}

// Update updates a customer
// @Summary Update a customer
// @Tags customers
// @Accept json
// @Produce json
// @Param id path int true "Customer ID"
// @Param request body UpdateCustomerRequest true "Changed fields"
// @Success 200 {object} CustomerResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Customer not found"
// @Security BearerAuth
// @Router /customers/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "customer")
	if !ok {
		return
	}

	var customer models.Customer
	if err := tenant.Find(c.Request.Context(), h.db.Preload("Tags"), tc.OrgID(), id, &customer, "Customer"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	if req.FirstName != nil {
		customer.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		customer.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		customer.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.Status != nil {
		customer.Status = models.CustomerStatus(*req.Status)
	}

	err := h.db.Model(&customer).
		Select("first_name", "last_name", "email", "phone", "status").
		Updates(&customer).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update customer"})
		return
	}

	c.JSON(http.StatusOK, customerToResponse(customer))
}

// Delete deletes a customer
// @Summary Delete a customer
// @Tags customers
// @Produce json
// @Param id path int true "Customer ID"
// @Success 200 {object} map[string]string "Customer deleted"
// @Failure 404 {object} map[string]string "Customer not found"
// @Security BearerAuth
// @Router /customers/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "customer")
	if !ok {
		return
	}

	var customer models.Customer
	if err := tenant.Find(c.Request.Context(), h.db, tc.OrgID(), id, &customer, "Customer"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&customer).Association("Tags").Clear(); err != nil {
			return pkgerrors.Wrap(err, "clearing customer tags")
		}
		return pkgerrors.Wrap(tx.Delete(&customer).Error, "deleting customer")
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted"})
}

// RegisterRoutes registers customer, tag and household routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	customers := rg.Group("/customers")
	{
		customers.GET("", h.List)
		customers.POST("", h.Create)
		customers.GET("/:id", h.Get)
		customers.PUT("/:id", h.Update)
		customers.DELETE("/:id", h.Delete)
		customers.PUT("/:id/tags", h.SetTags)
	}

	households := rg.Group("/households")
	{
		households.GET("", h.ListHouseholds)
		households.POST("", h.CreateHousehold)
		households.GET("/:id", h.GetHousehold)
		households.DELETE("/:id", h.DeleteHousehold)
		households.POST("/:id/members/:customerId", h.AddHouseholdMember)
		households.DELETE("/:id/members/:customerId", h.RemoveHouseholdMember)
	}
}
