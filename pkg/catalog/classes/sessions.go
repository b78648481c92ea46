package classes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/scheduling"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// UpdateSessionRequest represents the request to change a single session.
// Changes apply to this occurrence only and survive template edits once the
// session has a roster.
type UpdateSessionRequest struct {
	Status             *string `json:"status" binding:"omitempty,oneof=scheduled cancelled completed"`
	CancellationReason *string `json:"cancellation_reason"`
	InstructorID       *uint   `json:"instructor_id"`
	Room               *string `json:"room"`
	Capacity           *int    `json:"capacity" binding:"omitempty,min=1"`
}

// SessionResponse represents a class session in API responses
type SessionResponse struct {
	ID                 uint    `json:"id"`
	TemplateID         uint    `json:"template_id"`
	StartsAt           string  `json:"starts_at"`
	EndsAt             string  `json:"ends_at"`
	Capacity           int     `json:"capacity"`
	Booked             int64   `json:"booked"`
	LocationID         *uint   `json:"location_id"`
	Room               string  `json:"room"`
	InstructorID       *uint   `json:"instructor_id"`
	Status             string  `json:"status"`
	CancellationReason *string `json:"cancellation_reason"`
}

func sessionToResponse(s models.ClassSession, booked int64) SessionResponse {
	return SessionResponse{
		ID:                 s.ID,
		TemplateID:         s.TemplateID,
		StartsAt:           s.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:             s.EndsAt.UTC().Format(time.RFC3339),
		Capacity:           s.Capacity,
		Booked:             booked,
		LocationID:         s.LocationID,
		Room:               s.Room,
		InstructorID:       s.InstructorID,
		Status:             string(s.Status),
		CancellationReason: s.CancellationReason,
	}
}

// parseBound accepts an RFC 3339 timestamp or a date. A date is midnight in
// loc, moved to the following midnight when it closes a range.
func parseBound(field, value string, loc *time.Location, closing bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(scheduling.DateLayout, value, loc)
	if err != nil {
		return time.Time{}, apperr.Validation("%s must be an RFC 3339 timestamp or a YYYY-MM-DD date", field)
	}
	if closing {
		d = d.AddDate(0, 0, 1)
	}
	return d, nil
}

// bookedCounts returns the number of non-cancelled roster entries per session
func bookedCounts(db *gorm.DB, orgID uint, sessionIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		SessionID uint
		Booked    int64
	}
	err := db.Model(&models.RosterEntry{}).
		Select("session_id, COUNT(*) AS booked").
		Scopes(tenant.Scope(orgID)).
		Where("session_id IN ? AND status != ?", sessionIDs, models.RosterStatusCancelled).
		Group("session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "counting roster entries")
	}
	for _, r := range rows {
		counts[r.SessionID] = r.Booked
	}
	return counts, nil
}

// ListSessions returns sessions ordered by start time
// @Summary List class sessions
// @Tags classes
// @Produce json
// @Param from query string false "Earliest start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Latest start, exclusive (RFC 3339 or YYYY-MM-DD, inclusive day)"
// @Param template_id query int false "Filter by template"
// @Param status query string false "scheduled, cancelled or completed"
// @Success 200 {array} SessionResponse
// @Failure 400 {object} map[string]string "Invalid filter"
// @Security BearerAuth
// @Router /class-sessions [get]
func (h *Handler) ListSessions(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	loc := tc.Organization.Location()

	query := h.db.Scopes(tenant.Scope(tc.OrgID())).Order("starts_at ASC")

	if v := c.Query("from"); v != "" {
		from, err := parseBound("from", v, loc, false)
		if err != nil {
			apperr.Respond(c, h.logger, err)
			return
		}
		query = query.Where("starts_at >= ?", from.UTC())
	}
	if v := c.Query("to"); v != "" {
		to, err := parseBound("to", v, loc, true)
		if err != nil {
			apperr.Respond(c, h.logger, err)
			return
		}
		query = query.Where("starts_at < ?", to.UTC())
	}
	if v := c.Query("template_id"); v != "" {
		templateID, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}
		query = query.Where("template_id = ?", templateID)
	}
	if v := c.Query("status"); v != "" {
		switch models.SessionStatus(v) {
		case models.SessionStatusScheduled, models.SessionStatusCancelled, models.SessionStatusCompleted:
			query = query.Where("status = ?", v)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
	}

	var sessions []models.ClassSession
	if err := query.Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch class sessions"})
		return
	}

	ids := make([]uint, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	counts, err := bookedCounts(h.db, tc.OrgID(), ids)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	responses := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		responses[i] = sessionToResponse(s, counts[s.ID])
	}
	c.JSON(http.StatusOK, responses)
}

// GetSession returns a class session
// @Summary Get a class session
// @Tags classes
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} map[string]string "Class session not found"
// @Security BearerAuth
// @Router /class-sessions/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "session")
	if !ok {
		return
	}

	var session models.ClassSession
	if err := tenant.Find(c.Request.Context(), h.db, tc.OrgID(), id, &session, "Class session"); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	counts, err := bookedCounts(h.db, tc.OrgID(), []uint{session.ID})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(session, counts[session.ID]))
}

// UpdateSession changes status, instructor, room or capacity of one session
// @Summary Update a class session
// @Tags classes
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param request body UpdateSessionRequest true "Changed fields"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Class session not found"
// @Security BearerAuth
// @Router /class-sessions/{id} [patch]
func (h *Handler) UpdateSession(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	id, ok := apperr.ParamID(c, "id", "session")
	if !ok {
		return
	}

	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	var session models.ClassSession
	var booked int64
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tenant.Find(c.Request.Context(), tx, tc.OrgID(), id, &session, "Class session"); err != nil {
			return err
		}
		counts, err := bookedCounts(tx, tc.OrgID(), []uint{session.ID})
		if err != nil {
			return err
		}
		booked = counts[session.ID]

		if req.Status != nil {
			session.Status = models.SessionStatus(*req.Status)
			if session.Status != models.SessionStatusCancelled {
				session.CancellationReason = nil
			}
		}
		if req.CancellationReason != nil {
			if session.Status != models.SessionStatusCancelled {
				return apperr.Validation("cancellation_reason requires status cancelled")
			}
			session.CancellationReason = req.CancellationReason
		}
		if req.InstructorID != nil {
			probe := models.ClassTemplate{InstructorID: req.InstructorID}
			if err := checkReferences(c.Request.Context(), tx, tc.OrgID(), &probe); err != nil {
				return err
			}
			session.InstructorID = req.InstructorID
		}
		if req.Room != nil {
			session.Room = *req.Room
		}
		if req.Capacity != nil {
			if int64(*req.Capacity) < booked {
				return apperr.Validation("capacity %d is below the %d customers already booked", *req.Capacity, booked)
			}
			session.Capacity = *req.Capacity
		}

		if err := tx.Save(&session).Error; err != nil {
			return pkgerrors.Wrap(err, "saving session")
		}
		return nil
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, sessionToResponse(session, booked))
}
