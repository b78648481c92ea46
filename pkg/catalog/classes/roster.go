package classes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// AddRosterRequest represents the request to book a customer into a session
type AddRosterRequest struct {
	CustomerID uint `json:"customer_id" binding:"required"`
}

// UpdateRosterRequest represents the request to record attendance
type UpdateRosterRequest struct {
	Status string `json:"status" binding:"required,oneof=registered attended no_show cancelled"`
}

// RosterEntryResponse represents a roster entry in API responses
type RosterEntryResponse struct {
	ID           uint    `json:"id"`
	SessionID    uint    `json:"session_id"`
	CustomerID   uint    `json:"customer_id"`
	CustomerName string  `json:"customer_name,omitempty"`
	Status       string  `json:"status"`
	CheckedInAt  *string `json:"checked_in_at"`
	CreatedAt    string  `json:"created_at"`
}

func rosterToResponse(e models.RosterEntry) RosterEntryResponse {
	resp := RosterEntryResponse{
		ID:         e.ID,
		SessionID:  e.SessionID,
		CustomerID: e.CustomerID,
		Status:     string(e.Status),
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.Customer.ID != 0 {
		resp.CustomerName = e.Customer.FirstName + " " + e.Customer.LastName
	}
	if e.CheckedInAt != nil {
		at := e.CheckedInAt.UTC().Format(time.RFC3339)
		resp.CheckedInAt = &at
	}
	return resp
}

// ListRoster returns a session's roster
// @Summary List a session roster
// @Tags classes
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {array} RosterEntryResponse
// @Failure 404 {object} map[string]string "Class session not found"
// @Security BearerAuth
// @Router /class-sessions/{id}/roster [get]
func (h *Handler) ListRoster(c *gin.Context) {
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

	var entries []models.RosterEntry
	err := h.db.Scopes(tenant.Scope(tc.OrgID())).
		Preload("Customer").
		Where("session_id = ?", session.ID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch roster"})
		return
	}

	responses := make([]RosterEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = rosterToResponse(e)
	}
	c.JSON(http.StatusOK, responses)
}

// AddToRoster books a customer into a session
// @Summary Add a customer to a session roster
// @Description Fails when the session is cancelled or full
// @Tags classes
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param request body AddRosterRequest true "Customer"
// @Success 201 {object} RosterEntryResponse
// @Failure 400 {object} map[string]string "Session full or cancelled"
// @Failure 404 {object} map[string]string "Class session or customer not found"
// @Failure 409 {object} map[string]string "Customer already booked"
// @Security BearerAuth
// @Router /class-sessions/{id}/roster [post]
func (h *Handler) AddToRoster(c *gin.Context) {
	tc := tenant.MustFromGin(c)
	ctx := c.Request.Context()
	id, ok := apperr.ParamID(c, "id", "session")
	if !ok {
		return
	}

	var req AddRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	var entry models.RosterEntry
	status := http.StatusCreated
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.ClassSession
		if err := tenant.Find(ctx, tx, tc.OrgID(), id, &session, "Class session"); err != nil {
			return err
		}
		if session.Status != models.SessionStatusScheduled {
			return apperr.Validation("Class session is %s", session.Status)
		}
		var customer models.Customer
		if err := tenant.Find(ctx, tx, tc.OrgID(), req.CustomerID, &customer, "Customer"); err != nil {
			return err
		}

		var booked int64
		err := tx.Model(&models.RosterEntry{}).
			Where("session_id = ? AND status != ?", session.ID, models.RosterStatusCancelled).
			Count(&booked).Error
		if err != nil {
			return pkgerrors.Wrap(err, "counting roster")
		}

		err = tx.Where("session_id = ? AND customer_id = ?", session.ID, customer.ID).First(&entry).Error
		switch {
		case err == nil && entry.Status != models.RosterStatusCancelled:
			return apperr.Conflict("Customer is already on the roster")
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(err, "loading roster entry")
		}

		if booked >= int64(session.Capacity) {
			return apperr.Validation("Class session is full")
		}

		if err == nil {
			// A cancelled booking is reinstated in place
			entry.Status = models.RosterStatusRegistered
			entry.CheckedInAt = nil
			status = http.StatusOK
			return pkgerrors.Wrap(tx.Save(&entry).Error, "reinstating roster entry")
		}
		entry = models.RosterEntry{
			OrganizationID: tc.OrgID(),
			SessionID:      session.ID,
			CustomerID:     customer.ID,
			Status:         models.RosterStatusRegistered,
		}
		return pkgerrors.Wrap(tx.Create(&entry).Error, "creating roster entry")
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(status, rosterToResponse(entry))
}

// findEntry loads a roster entry of a session owned by the organization
func findEntry(c *gin.Context, db *gorm.DB, orgID uint) (*models.RosterEntry, error) {
	sessionID, ok := apperr.ParamID(c, "id", "session")
	if !ok {
		return nil, nil
	}
	entryID, ok := apperr.ParamID(c, "entryId", "roster entry")
	if !ok {
		return nil, nil
	}

	var entry models.RosterEntry
	if err := tenant.Find(c.Request.Context(), db.Where("session_id = ?", sessionID), orgID, entryID, &entry, "Roster entry"); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateRosterEntry records attendance for a roster entry
// @Summary Update a roster entry
// @Tags classes
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param entryId path int true "Roster entry ID"
// @Param request body UpdateRosterRequest true "New status"
// @Success 200 {object} RosterEntryResponse
// @Failure 404 {object} map[string]string "Roster entry not found"
// @Security BearerAuth
// @Router /class-sessions/{id}/roster/{entryId} [patch]
func (h *Handler) UpdateRosterEntry(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	entry, err := findEntry(c, h.db, tc.OrgID())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	if entry == nil {
		return
	}

	var req UpdateRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	entry.Status = models.RosterStatus(req.Status)
	switch entry.Status {
	case models.RosterStatusAttended:
		if entry.CheckedInAt == nil {
			now := h.svc.clock.Now()
			entry.CheckedInAt = &now
		}
	default:
		entry.CheckedInAt = nil
	}

	if err := h.db.Save(entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update roster entry"})
		return
	}
	c.JSON(http.StatusOK, rosterToResponse(*entry))
}

// RemoveFromRoster deletes a roster entry
// @Summary Remove a customer from a session roster
// @Tags classes
// @Produce json
// @Param id path int true "Session ID"
// @Param entryId path int true "Roster entry ID"
// @Success 200 {object} map[string]string "Roster entry deleted"
// @Failure 404 {object} map[string]string "Roster entry not found"
// @Security BearerAuth
// @Router /class-sessions/{id}/roster/{entryId} [delete]
func (h *Handler) RemoveFromRoster(c *gin.Context) {
	tc := tenant.MustFromGin(c)

	entry, err := findEntry(c, h.db, tc.OrgID())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	if entry == nil {
		return
	}

	if err := h.db.Delete(entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete roster entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Roster entry deleted"})
}
