// Package classes manages class templates, their generated sessions and
// session rosters.
package classes

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/metrics"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/scheduling"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns template writes so that session generation always runs in
// the same transaction as the template change
type Service struct {
	db            *gorm.DB
	clock         clock.Clock
	horizonMonths int
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewService creates a class service
func NewService(db *gorm.DB, clk clock.Clock, horizonMonths int, m *metrics.Metrics, logger *zap.Logger) *Service {
	if horizonMonths <= 0 {
		horizonMonths = scheduling.DefaultHorizonMonths
	}
	return &Service{
		db:            db,
		clock:         clk,
		horizonMonths: horizonMonths,
		metrics:       m,
		logger:        logger,
	}
}

func (s *Service) options(org *models.Organization) scheduling.Options {
	now := s.clock.Now()
	return scheduling.Options{HorizonMonths: s.horizonMonths, Location: org.Location(), Now: &now}
}

// CreateTemplate validates and inserts a template and all of its sessions
func (s *Service) CreateTemplate(ctx context.Context, org *models.Organization, tmpl *models.ClassTemplate) (scheduling.Result, error) {
	tmpl.OrganizationID = org.ID
	if err := normalize(tmpl); err != nil {
		return scheduling.Result{}, err
	}

	var res scheduling.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(ctx, tx, org.ID, tmpl); err != nil {
			return err
		}
		if err := tx.Create(tmpl).Error; err != nil {
			return pkgerrors.Wrap(err, "creating template")
		}
		var err error
		res, err = scheduling.Populate(ctx, tx, tmpl, s.options(org))
		return err
	})
	if err != nil {
		return scheduling.Result{}, err
	}

	s.record(tmpl, res)
	return res, nil
}

// UpdateTemplate saves an edited template. When a field that shapes the
// schedule changed, future sessions without a roster are regenerated.
func (s *Service) UpdateTemplate(ctx context.Context, org *models.Organization, before, after *models.ClassTemplate) (scheduling.Result, error) {
	after.ID = before.ID
	after.OrganizationID = org.ID
	if err := normalize(after); err != nil {
		return scheduling.Result{}, err
	}

	var res scheduling.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(ctx, tx, org.ID, after); err != nil {
			return err
		}
		if err := tx.Save(after).Error; err != nil {
			return pkgerrors.Wrap(err, "saving template")
		}
		if !ScheduleChanged(before, after) {
			return nil
		}
		var err error
		res, err = scheduling.Regenerate(ctx, tx, after, s.clock.Now(), s.options(org))
		return err
	})
	if err != nil {
		return scheduling.Result{}, err
	}

	s.record(after, res)
	return res, nil
}

// DeleteTemplate removes a template and its future sessions that have no roster
func (s *Service) DeleteTemplate(ctx context.Context, org *models.Organization, tmpl *models.ClassTemplate) error {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = scheduling.RemoveFuture(ctx, tx, tmpl, s.clock.Now(), org.Location())
		if err != nil {
			return err
		}
		if err := tx.Delete(tmpl).Error; err != nil {
			return pkgerrors.Wrap(err, "deleting template")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.record(tmpl, scheduling.Result{Deleted: deleted})
	return nil
}

func (s *Service) record(tmpl *models.ClassTemplate, res scheduling.Result) {
	s.metrics.SessionsGenerated.Add(float64(res.Created))
	s.metrics.SessionsDeleted.Add(float64(res.Deleted))
	s.logger.Debug("class sessions generated",
		zap.Uint("organization_id", tmpl.OrganizationID),
		zap.Uint("template_id", tmpl.ID),
		zap.Int("created", res.Created),
		zap.Int64("deleted", res.Deleted))
}

// ScheduleChanged reports whether any field copied into sessions, or that
// decides when they occur, differs between the two templates
func ScheduleChanged(a, b *models.ClassTemplate) bool {
	if !a.StartDate.Equal(b.StartDate) || !equalTimePtr(a.EndDate, b.EndDate) {
		return true
	}
	if a.StartTime != b.StartTime || a.EndTime != b.EndTime || a.Capacity != b.Capacity || a.Room != b.Room {
		return true
	}
	if !equalUintPtr(a.LocationID, b.LocationID) || !equalUintPtr(a.InstructorID, b.InstructorID) {
		return true
	}
	if len(a.DaysOfWeek) != len(b.DaysOfWeek) {
		return true
	}
	for i := range a.DaysOfWeek {
		if a.DaysOfWeek[i] != b.DaysOfWeek[i] {
			return true
		}
	}
	return false
}

func normalize(tmpl *models.ClassTemplate) error {
	if err := scheduling.ValidateTemplate(tmpl); err != nil {
		return err
	}
	days, err := scheduling.NormalizeDays(tmpl.DaysOfWeek)
	if err != nil {
		return err
	}
	tmpl.DaysOfWeek = days
	return nil
}

// checkReferences verifies the location and instructor belong to the organization
func checkReferences(ctx context.Context, tx *gorm.DB, orgID uint, tmpl *models.ClassTemplate) error {
	if tmpl.LocationID != nil {
		var loc models.Location
		if err := tenant.Find(ctx, tx, orgID, *tmpl.LocationID, &loc, "Location"); err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.Validation("location_id %d does not exist", *tmpl.LocationID)
			}
			return err
		}
	}
	if tmpl.InstructorID != nil {
		var m models.OrganizationMembership
		err := tx.WithContext(ctx).
			Where("organization_id = ? AND user_id = ? AND role IN ?", orgID, *tmpl.InstructorID, tenant.AllowedRoles).
			First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validation("instructor_id %d is not a staff member", *tmpl.InstructorID)
		}
		if err != nil {
			return pkgerrors.Wrap(err, "loading instructor membership")
		}
	}
	return nil
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalUintPtr(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
