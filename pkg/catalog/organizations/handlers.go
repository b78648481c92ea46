package organizations

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/auth"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrMemberExists = apperr.Conflict("User is already a member")
	ErrLastAdmin    = apperr.Validation("Organization must keep at least one admin")
)

// Handler handles requests about the current organization and its members
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler creates a new organizations handler
func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// UpdateOrgRequest represents the request to update the current organization
type UpdateOrgRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=100"`
	Timezone *string `json:"timezone" binding:"omitempty,max=64"`
}

// OrgResponse represents an organization in API responses
type OrgResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Timezone    string `json:"timezone"`
	Role        string `json:"role,omitempty"` // caller's role in this org
	MemberCount int    `json:"member_count"`
	CreatedAt   string `json:"created_at"`
}

// MemberResponse represents a member in API responses
type MemberResponse struct {
	ID        uint   `json:"id"`
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// AddMemberRequest represents the request to add a member
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=admin staff customer"`
}

// UpdateMemberRequest represents the request to update a member's role
type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required,oneof=admin staff customer"`
}

func toOrgResponse(org models.Organization, role models.OrgRole, members int64) OrgResponse {
	return OrgResponse{
		ID:          org.ID,
		Name:        org.Name,
		Slug:        org.Slug,
		Timezone:    org.Timezone,
		Role:        string(role),
		MemberCount: int(members),
		CreatedAt:   org.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toMemberResponse(m models.OrganizationMembership) MemberResponse {
	return MemberResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		Email:     m.User.Email,
		Name:      m.User.DisplayName(),
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ValidateTimezone checks name is a loadable IANA zone
func ValidateTimezone(name string) error {
	if name == "" {
		return apperr.Validation("Timezone is required")
	}
	if _, err := time.LoadLocation(name); err != nil {
		return apperr.Validation("Unknown timezone %q", name)
	}
	return nil
}

func countMembers(db *gorm.DB, orgID uint) (int64, error) {
	var n int64
	err := db.Model(&models.OrganizationMembership{}).Where("organization_id = ?", orgID).Count(&n).Error
	return n, pkgerrors.Wrap(err, "counting members")
}

// Get returns the current organization
// @Summary Get the current organization
// @Description Get the organization resolved from the request host or override header
// @Tags organization
// @Produce json
// @Success 200 {object} OrgResponse
// @Security BearerAuth
// @Router /organization [get]
func (h *Handler) Get(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	db := h.db.WithContext(c.Request.Context())

	var org models.Organization
	if err := db.First(&org, tc.OrgID()).Error; err != nil {
		apperr.Respond(c, h.logger, pkgerrors.Wrap(err, "loading organization"))
		return
	}

	members, err := countMembers(db, org.ID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toOrgResponse(org, tc.Membership.Role, members))
}

// Update updates the current organization (admin only)
// @Summary Update the current organization
// @Description Rename the organization or change its time zone. Existing sessions keep their instants.
// @Tags organization
// @Accept json
// @Produce json
// @Param request body UpdateOrgRequest true "Updated organization details"
// @Success 200 {object} OrgResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Admin access required"
// @Security BearerAuth
// @Router /organization [patch]
func (h *Handler) Update(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	db := h.db.WithContext(c.Request.Context())

	var req UpdateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var org models.Organization
	if err := db.First(&org, tc.OrgID()).Error; err != nil {
		apperr.Respond(c, h.logger, pkgerrors.Wrap(err, "loading organization"))
		return
	}

	if req.Name != nil {
		org.Name = strings.TrimSpace(*req.Name)
		if org.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be blank"})
			return
		}
	}
	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if err := ValidateTimezone(tz); err != nil {
			apperr.Respond(c, h.logger, err)
			return
		}
		org.Timezone = tz
	}

	if err := db.Save(&org).Error; err != nil {
		apperr.Respond(c, h.logger, pkgerrors.Wrap(err, "saving organization"))
		return
	}

	members, err := countMembers(db, org.ID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toOrgResponse(org, tc.Membership.Role, members))
}

// ListMembers returns all members of the current organization
// @Summary List organization members
// @Tags organization
// @Produce json
// @Success 200 {array} MemberResponse
// @Security BearerAuth
// @Router /organization/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	var memberships []models.OrganizationMembership
	if err := h.db.WithContext(c.Request.Context()).Preload("User").
		Where("organization_id = ?", tc.OrgID()).Order("id ASC").
		Find(&memberships).Error; err != nil {
		apperr.Respond(c, h.logger, pkgerrors.Wrap(err, "listing members"))
		return
	}

	members := make([]MemberResponse, len(memberships))
	for i, m := range memberships {
		members[i] = toMemberResponse(m)
	}

	c.JSON(http.StatusOK, members)
}

// AddMember adds an existing identity to the organization (admin only)
// @Summary Add a member
// @Description Add a user to the organization by email. The user must have signed in at least once.
// @Tags organization
// @Accept json
// @Produce json
// @Param request body AddMemberRequest true "Member details"
// @Success 201 {object} MemberResponse
// @Failure 404 {object} map[string]string "User not found"
// @Failure 409 {object} map[string]string "User is already a member"
// @Security BearerAuth
// @Router /organization/members [post]
func (h *Handler) AddMember(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var membership models.OrganizationMembership
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(req.Email))).
			First(&user).Error; err != nil {
			if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("User")
			}
			return pkgerrors.Wrap(err, "finding user")
		}

		var existing int64
		if err := tx.Model(&models.OrganizationMembership{}).
			Where("organization_id = ? AND user_id = ?", tc.OrgID(), user.ID).
			Count(&existing).Error; err != nil {
			return pkgerrors.Wrap(err, "checking membership")
		}
		if existing > 0 {
			return ErrMemberExists
		}

		membership = models.OrganizationMembership{
			OrganizationID: tc.OrgID(),
			UserID:         user.ID,
			Role:           models.OrgRole(req.Role),
			User:           user,
		}
		return pkgerrors.Wrap(tx.Omit("User", "Organization").Create(&membership).Error, "creating membership")
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	h.logger.Info("member added",
		zap.Uint("organization_id", tc.OrgID()),
		zap.Uint("user_id", membership.UserID),
		zap.String("role", string(membership.Role)),
	)
	c.JSON(http.StatusCreated, toMemberResponse(membership))
}

// loadMember finds the membership of the :userId path parameter in the current org
func (h *Handler) loadMember(c *gin.Context, tx *gorm.DB, orgID uint) (*models.OrganizationMembership, bool) {
	userID, ok := apperr.ParamID(c, "userId", "user")
	if !ok {
		return nil, false
	}

	var membership models.OrganizationMembership
	if err := tx.Preload("User").Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&membership).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			err = apperr.NotFound("Member")
		}
		apperr.Respond(c, h.logger, err)
		return nil, false
	}
	return &membership, true
}

// guardLastAdmin rejects a change that would leave the organization without an admin
func guardLastAdmin(tx *gorm.DB, m *models.OrganizationMembership, newRole models.OrgRole) error {
	if m.Role != models.OrgRoleAdmin || newRole == models.OrgRoleAdmin {
		return nil
	}
	var admins int64
	if err := tx.Model(&models.OrganizationMembership{}).
		Where("organization_id = ? AND role = ?", m.OrganizationID, models.OrgRoleAdmin).
		Count(&admins).Error; err != nil {
		return pkgerrors.Wrap(err, "counting admins")
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// UpdateMember changes a member's role (admin only)
// @Summary Update a member's role
// @Tags organization
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param request body UpdateMemberRequest true "Updated role"
// @Success 200 {object} MemberResponse
// @Failure 400 {object} map[string]string "Organization must keep at least one admin"
// @Failure 404 {object} map[string]string "Member not found"
// @Security BearerAuth
// @Router /organization/members/{userId} [put]
func (h *Handler) UpdateMember(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	db := h.db.WithContext(c.Request.Context())

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	membership, ok := h.loadMember(c, db, tc.OrgID())
	if !ok {
		return
	}

	newRole := models.OrgRole(req.Role)
	if err := guardLastAdmin(db, membership, newRole); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	if err := db.Model(membership).Update("role", newRole).Error; err != nil {
		apperr.Respond(c, h.logger, pkgerrors.Wrap(err, "updating member"))
		return
	}
	membership.Role = newRole

	c.JSON(http.StatusOK, toMemberResponse(*membership))
}

// RemoveMember removes a member from the organization (admin only)
// @Summary Remove a member
// @Tags organization
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} map[string]string "Member removed"
// @Failure 400 {object} map[string]string "Organization must keep at least one admin"
// @Failure 404 {object} map[string]string "Member not found"
// @Security BearerAuth
// @Router /organization/members/{userId} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	db := h.db.WithContext(c.Request.Context())

	membership, ok := h.loadMember(c, db, tc.OrgID())
	if !ok {
		return
	}

	if err := guardLastAdmin(db, membership, ""); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	// Hard delete so the (organization, user) unique index frees up for re-adding
	if err := db.Unscoped().Delete(membership).Error; err != nil {
		apperr.Respond(c, h.logger, pkgerrors.Wrap(err, "removing member"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// RegisterRoutes registers the current-organization routes on a tenant-scoped group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	org := rg.Group("/organization")
	org.GET("", h.Get)
	org.PATCH("", tenant.RequireOrgAdmin(), h.Update)
	org.GET("/members", h.ListMembers)
	org.POST("/members", tenant.RequireOrgAdmin(), h.AddMember)
	org.PUT("/members/:userId", tenant.RequireOrgAdmin(), h.UpdateMember)
	org.DELETE("/members/:userId", tenant.RequireOrgAdmin(), h.RemoveMember)
}

// RegisterPlatformRoutes registers platform-wide organization management.
// The group must already carry auth.AuthMiddleware.
func (h *Handler) RegisterPlatformRoutes(rg *gin.RouterGroup) {
	platform := rg.Group("", auth.RequirePlatformAdmin())
	platform.GET("/organizations", h.ListAll)
	platform.POST("/organizations", h.Create)
	platform.GET("/stats", h.Stats)
}
