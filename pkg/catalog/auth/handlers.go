package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles identity requests
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// MembershipResponse is one organization the user belongs to
type MembershipResponse struct {
	OrganizationID   uint   `json:"organization_id"`
	OrganizationSlug string `json:"organization_slug"`
	OrganizationName string `json:"organization_name"`
	Role             string `json:"role"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID          uint                 `json:"id"`
	ExternalID  string               `json:"external_id"`
	Email       string               `json:"email"`
	Name        *string              `json:"name"`
	SystemRole  string               `json:"system_role"`
	Memberships []MembershipResponse `json:"memberships"`
}

// Me returns the current authenticated user
// @Summary Get current user
// @Description Get the authenticated identity and the organizations it belongs to
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	user := MustUser(c)

	var memberships []models.OrganizationMembership
	if err := h.db.WithContext(c.Request.Context()).Preload("Organization").
		Where("user_id = ?", user.ID).Find(&memberships).Error; err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	resp := UserResponse{
		ID:          user.ID,
		ExternalID:  user.ExternalID,
		Email:       user.Email,
		Name:        user.Name,
		SystemRole:  string(user.SystemRole),
		Memberships: make([]MembershipResponse, 0, len(memberships)),
	}
	for _, m := range memberships {
		resp.Memberships = append(resp.Memberships, MembershipResponse{
			OrganizationID:   m.OrganizationID,
			OrganizationSlug: m.Organization.Slug,
			OrganizationName: m.Organization.Name,
			Role:             string(m.Role),
		})
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers auth routes on a group already behind AuthMiddleware
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
}
