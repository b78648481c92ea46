package classes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/scheduling"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles class template, session and roster requests
type Handler struct {
	db     *gorm.DB
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a new classes handler
func NewHandler(db *gorm.DB, svc *Service, logger *zap.Logger) *Handler {
	return &Handler{db: db, svc: svc, logger: logger}
}

// CreateTemplateRequest represents the request to create a class template
type CreateTemplateRequest struct {
	Name         string  `json:"name" binding:"required,min=1,max=200"`
	Description  string  `json:"description"`
	StartDate    string  `json:"start_date" binding:"required"`
	EndDate      *string `json:"end_date"`
	DaysOfWeek   []int   `json:"days_of_week" binding:"required,min=1,dive,min=1,max=7"`
	StartTime    string  `json:"start_time" binding:"required"`
	EndTime      string  `json:"end_time" binding:"required"`
	Capacity     int     `json:"capacity" binding:"required,min=1"`
	LocationID   *uint   `json:"location_id"`
	Room         string  `json:"room"`
	InstructorID *uint   `json:"instructor_id"`
}

// UpdateTemplateRequest represents the request to update a class template.
// Omitted fields are left unchanged; an empty end_date makes the template open-ended,
// and a location_id or instructor_id of 0 clears it.
type UpdateTemplateRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description  *string `json:"description"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	DaysOfWeek   []int   `json:"days_of_week" binding:"omitempty,min=1,dive,min=1,max=7"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Capacity     *int    `json:"capacity" binding:"omitempty,min=1"`
	LocationID   *uint   `json:"location_id"`
	Room         *string `json:"room"`
	InstructorID *uint   `json:"instructor_id"`
}

// TemplateResponse represents a class template in API responses
type TemplateResponse struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	StartDate    string  `json:"start_date"`
	EndDate      *string `json:"end_date"`
	DaysOfWeek   []int   `json:"days_of_week"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	Capacity     int     `json:"capacity"`
	LocationID   *uint   `json:"location_id"`
	Room         string  `json:"room"`
	InstructorID *uint   `json:"instructor_id"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`

	SessionsCreated *int   `json:"sessions_created,omitempty"`
	SessionsDeleted *int64 `json:"sessions_deleted,omitempty"`
}

func templateToResponse(t models.ClassTemplate) TemplateResponse {
	resp := TemplateResponse{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		StartDate:    t.StartDate.Format(scheduling.DateLayout),
		DaysOfWeek:   t.DaysOfWeek,
		StartTime:    t.StartTime,
		EndTime:      t.EndTime,
		Capacity:     t.Capacity,
		LocationID:   t.LocationID,
		Room:         t.Room,
		InstructorID: t.InstructorID,
		CreatedAt:    t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if resp.DaysOfWeek == nil {
		resp.DaysOfWeek = []int{}
	}
	if t.EndDate != nil {
		end := t.EndDate.Format(scheduling.DateLayout)
		resp.EndDate = &end
	}
	return resp
}

func withResult(resp TemplateResponse, res scheduling.Result) TemplateResponse {
	resp.SessionsCreated = &res.Created
	resp.SessionsDeleted = &res.Deleted
	return resp
}

// clearable maps an explicit 0 id to nil
func clearable(id *uint) *uint {
	if *id == 0 {
		return nil
	}
	return id
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(scheduling.DateLayout, value)
	if err != nil {
		return time.Time{}, apperr.Validation("%s must be a date in YYYY-MM-DD format", field)
	}
	return d, nil
}

// ListTemplates returns the organization's class templates
// @Summary List class templates
// @Tags classes
// @Produce json
// @Success 200 {array} TemplateResponse
// @Security BearerAuth
// @Router /class-templates [get]
func (h *Handler) ListTemplates(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	var templates []models.ClassTemplate
	if err := h.db.Scopes(tenant.Scope(tc.OrgID())).Order("name ASC").Find(&templates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch class templates"})
		return
	}

	responses := make([]TemplateResponse, len(templates))
	for i, t := range templates {
		responses[i] = templateToResponse(t)
	}
	c.JSON(http.StatusOK, responses)
}

// CreateTemplate creates a template and generates its sessions
// @Summary Create a class template
// @Description Create a recurring class and generate its sessions
// @Tags classes
// @Accept json
// @Produce json
// @Param request body CreateTemplateRequest true "Template details"
// @Success 201 {object} TemplateResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /class-templates [post]
func (h *Handler) CreateTemplate(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	tmpl := models.ClassTemplate{
		Name:         req.Name,
		Description:  req.Description,
		StartDate:    start,
		DaysOfWeek:   req.DaysOfWeek,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Capacity:     req.Capacity,
		LocationID:   req.LocationID,
		Room:         req.Room,
		InstructorID: req.InstructorID,
	}
	if req.EndDate != nil && *req.EndDate != "" {
		end, err := parseDate("end_date", *req.EndDate)
		if err != nil {
			apperr.Respond(c, h.logger, err)
			return
		}
		tmpl.EndDate = &end
	}

	res, err := h.svc.CreateTemplate(c.Request.Context(), &tc.Organization, &tmpl)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, withResult(templateToResponse(tmpl), res))
}

// GetTemplate returns a class template
// @Summary Get a class template
// @Tags classes
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} TemplateResponse
// @Failure 404 {object} map[string]string "Class template not found"
// @Security BearerAuth
// @Router /class-templates/{id} [get]
func (h *Handler) GetTemplate(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "template")
	if !ok {
		return
	}

	var tmpl models.ClassTemplate
	if err := tenant.Find(c.Request.Context(), h.db, tc.OrgID(), id, &tmpl, "Class template"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, templateToResponse(tmpl))
}

// UpdateTemplate updates a template, regenerating future sessions when the schedule changes
// @Summary Update a class template
// @Description Sessions in the past and sessions with roster entries are kept
// @Tags classes
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param request body UpdateTemplateRequest true "Changed fields"
// @Success 200 {object} TemplateResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Class template not found"
// @Security BearerAuth
// @Router /class-templates/{id} [put]
func (h *Handler) UpdateTemplate(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "template")
	if !ok {
		return
	}

	var before models.ClassTemplate
	if err := tenant.Find(c.Request.Context(), h.db, tc.OrgID(), id, &before, "Class template"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	after := before
	after.DaysOfWeek = append([]int(nil), before.DaysOfWeek...)
	if req.Name != nil {
		after.Name = *req.Name
	}
	if req.Description != nil {
		after.Description = *req.Description
	}
	if req.StartDate != nil {
		start, err := parseDate("start_date", *req.StartDate)
		if err != nil {
			apperr.Respond(c, h.logger, err)
			return
		}
		after.StartDate = start
	}
	if req.EndDate != nil {
		if *req.EndDate == "" {
			after.EndDate = nil
		} else {
			end, err := parseDate("end_date", *req.EndDate)
			if err != nil {
				apperr.Respond(c, h.logger, err)
				return
			}
			after.EndDate = &end
		}
	}
	if req.DaysOfWeek != nil {
		after.DaysOfWeek = req.DaysOfWeek
	}
	if req.StartTime != nil {
		after.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		after.EndTime = *req.EndTime
	}
	if req.Capacity != nil {
		after.Capacity = *req.Capacity
	}
	if req.LocationID != nil {
		after.LocationID = clearable(req.LocationID)
	}
	if req.Room != nil {
		after.Room = *req.Room
	}
	if req.InstructorID != nil {
		after.InstructorID = clearable(req.InstructorID)
	}

	res, err := h.svc.UpdateTemplate(c.Request.Context(), &tc.Organization, &before, &after)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, withResult(templateToResponse(after), res))
}

// DeleteTemplate deletes a template
// @Summary Delete a class template
// @Description Future sessions without roster entries are removed with it
// @Tags classes
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} map[string]string "Class template deleted"
// @Failure 404 {object} map[string]string "Class template not found"
// @Security BearerAuth
// @Router /class-templates/{id} [delete]
func (h *Handler) DeleteTemplate(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "template")
	if !ok {
		return
	}

	var tmpl models.ClassTemplate
	if err := tenant.Find(c.Request.Context(), h.db, tc.OrgID(), id, &tmpl, "Class template"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	if err := h.svc.DeleteTemplate(c.Request.Context(), &tc.Organization, &tmpl); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Class template deleted"})
}

// RegisterRoutes registers class routes on the tenant-scoped router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	templates := rg.Group("/class-templates")
	{
		templates.GET("", h.ListTemplates)
		templates.POST("", h.CreateTemplate)
		templates.GET("/:id", h.GetTemplate)
		templates.PUT("/:id", h.UpdateTemplate)
		templates.DELETE("/:id", h.DeleteTemplate)
	}

	sessions := rg.Group("/class-sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.GET("/:id", h.GetSession)
		sessions.PATCH("/:id", h.UpdateSession)
		sessions.GET("/:id/roster", h.ListRoster)
		sessions.POST("/:id/roster", h.AddToRoster)
		sessions.PATCH("/:id/roster/:entryId", h.UpdateRosterEntry)
		sessions.DELETE("/:id/roster/:entryId", h.RemoveFromRoster)
	}
}
