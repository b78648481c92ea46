package organizations

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/auth"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$|^[a-z0-9]$`)

// reservedSlugs are subdomain labels that never name a tenant
var reservedSlugs = []string{"api", "www", "app", "admin", "auth", "health", "metrics", "platform", "login", "logout", "static"}

// CreateOrgRequest represents the request to create an organization.
// The admin is the caller unless AdminUserID or AdminEmail names someone else.
type CreateOrgRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Slug        string `json:"slug" binding:"required,min=1,max=63"`
	Timezone    string `json:"timezone" binding:"omitempty,max=64"`
	AdminUserID *uint  `json:"admin_user_id"`
	AdminEmail  string `json:"admin_email" binding:"omitempty,email"`
}

// StatsResponse represents platform-wide counts
type StatsResponse struct {
	Organizations  int64 `json:"organizations"`
	Users          int64 `json:"users"`
	PlatformAdmins int64 `json:"platform_admins"`
	Customers      int64 `json:"customers"`
	ClassTemplates int64 `json:"class_templates"`
	ClassSessions  int64 `json:"class_sessions"`
}

// ValidateSlug checks if an organization slug is well-formed, not reserved and available
func ValidateSlug(db *gorm.DB, slug string) error {
	if slug == "" {
		return apperr.Validation("Slug is required")
	}

	// Lowercase alphanumeric with hyphens, no leading/trailing hyphens
	if !slugRegex.MatchString(slug) {
		return apperr.Validation("Slug must contain only lowercase letters, numbers, and hyphens (no leading/trailing hyphens)")
	}

	for _, r := range reservedSlugs {
		if slug == r {
			return apperr.Validation("This slug is reserved")
		}
	}

	// Soft-deleted organizations still hold their slug in the unique index
	var taken int64
	if err := db.Unscoped().Model(&models.Organization{}).Where("slug = ?", slug).Count(&taken).Error; err != nil {
		return pkgerrors.Wrap(err, "checking slug")
	}
	if taken > 0 {
		return apperr.Conflict("This slug is already taken")
	}

	return nil
}

func findAdmin(tx *gorm.DB, caller *models.User, req CreateOrgRequest) (*models.User, error) {
	query := tx
	switch {
	case req.AdminUserID != nil:
		query = query.Where("id = ?", *req.AdminUserID)
	case req.AdminEmail != "":
		query = query.Where("LOWER(email) = ?", strings.ToLower(req.AdminEmail))
	default:
		return caller, nil
	}

	var user models.User
	if err := query.First(&user).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, pkgerrors.Wrap(err, "finding admin user")
	}
	return &user, nil
}

// Create creates an organization together with its first admin membership
// @Summary Create an organization
// @Description Create a tenant and its first admin in one transaction (platform admin only)
// @Tags platform
// @Accept json
// @Produce json
// @Param request body CreateOrgRequest true "Organization details"
// @Success 201 {object} OrgResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Platform admin access required"
// @Failure 409 {object} map[string]string "This slug is already taken"
// @Security BearerAuth
// @Router /platform/organizations [post]
func (h *Handler) Create(c *gin.Context) {
	caller := auth.MustUser(c)

	var req CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if err := ValidateTimezone(timezone); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))

	var org models.Organization
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := ValidateSlug(tx, slug); err != nil {
			return err
		}

		admin, err := findAdmin(tx, caller, req)
		if err != nil {
			return err
		}

		org = models.Organization{
			Name:     strings.TrimSpace(req.Name),
			Slug:     slug,
			Timezone: timezone,
		}
		if err := tx.Create(&org).Error; err != nil {
			return pkgerrors.Wrap(err, "creating organization")
		}

		membership := models.OrganizationMembership{
			OrganizationID: org.ID,
			UserID:         admin.ID,
			Role:           models.OrgRoleAdmin,
		}
		return pkgerrors.Wrap(tx.Create(&membership).Error, "creating admin membership")
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	h.logger.Info("organization created",
		zap.Uint("organization_id", org.ID),
		zap.String("slug", org.Slug),
		zap.Uint("created_by", caller.ID),
	)
	c.JSON(http.StatusCreated, toOrgResponse(org, "", 1))
}

// ListAll returns every organization with its member count
// @Summary List all organizations
// @Tags platform
// @Produce json
// @Success 200 {array} OrgResponse
// @Security BearerAuth
// @Router /platform/organizations [get]
func (h *Handler) ListAll(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	var orgs []models.Organization
	if err := db.Order("slug ASC").Find(&orgs).Error; err != nil {
		apperr.Respond(c, h.logger, pkgerrors.Wrap(err, "listing organizations"))
		return
	}

	var counts []struct {
		OrganizationID uint
		Members        int64
	}
	if err := db.Model(&models.OrganizationMembership{}).
		Select("organization_id, COUNT(*) AS members").
		Group("organization_id").
		Scan(&counts).Error; err != nil {
		apperr.Respond(c, h.logger, pkgerrors.Wrap(err, "counting members"))
		return
	}
	members := make(map[uint]int64, len(counts))
	for _, row := range counts {
		members[row.OrganizationID] = row.Members
	}

	resp := make([]OrgResponse, len(orgs))
	for i, org := range orgs {
		resp[i] = toOrgResponse(org, "", members[org.ID])
	}

	c.JSON(http.StatusOK, resp)
}

// Stats returns platform-wide counts
// @Summary Platform statistics
// @Tags platform
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /platform/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var stats StatsResponse

	counts := []struct {
		model interface{}
		where string
		dest  *int64
	}{
		{&models.Organization{}, "", &stats.Organizations},
		{&models.User{}, "", &stats.Users},
		{&models.User{}, "system_role = 'platform_admin'", &stats.PlatformAdmins},
		{&models.Customer{}, "", &stats.Customers},
		{&models.ClassTemplate{}, "", &stats.ClassTemplates},
		{&models.ClassSession{}, "", &stats.ClassSessions},
	}
	for _, q := range counts {
		query := db.Model(q.model)
		if q.where != "" {
			query = query.Where(q.where)
		}
		if err := query.Count(q.dest).Error; err != nil {
			apperr.Respond(c, h.logger, pkgerrors.Wrap(err, "counting"))
			return
		}
	}

	c.JSON(http.StatusOK, stats)
}
