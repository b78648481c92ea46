package scheduling

import (
	"context"
	"time"

	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

const insertBatchSize = 100

// Result reports what a generation pass wrote
type Result struct {
	Deleted int64
	Created int
}

// Populate generates every session of a newly created template and inserts
// them with tx. It must run in the template's create transaction. Past
// occurrences are generated too; opts.Now only moves the horizon of an
// open-ended template.
func Populate(ctx context.Context, tx *gorm.DB, t *models.ClassTemplate, opts Options) (Result, error) {
	opts.From = nil
	sessions, err := Generate(t, opts)
	if err != nil {
		return Result{}, err
	}
	if err := insert(ctx, tx, sessions); err != nil {
		return Result{}, err
	}
	return Result{Created: len(sessions)}, nil
}

// Regenerate replaces the template's future sessions after an edit.
//
// Sessions starting before today (in opts.Location) and sessions with any
// roster entry are kept as they are. Every other session of the template is
// removed and the template is expanded again from today; occurrences that
// would start at the same instant as a kept session are skipped. Callers run
// Regenerate inside a transaction so the delete and insert commit together.
func Regenerate(ctx context.Context, tx *gorm.DB, t *models.ClassTemplate, now time.Time, opts Options) (Result, error) {
	today := StartOfDay(now, opts.Location)
	opts.From = &today
	opts.Now = &now

	deleted, err := RemoveFuture(ctx, tx, t, now, opts.Location)
	if err != nil {
		return Result{}, err
	}

	var kept []time.Time
	err = tx.WithContext(ctx).Model(&models.ClassSession{}).
		Where("template_id = ? AND organization_id = ? AND starts_at >= ?", t.ID, t.OrganizationID, today.UTC()).
		Pluck("starts_at", &kept).Error
	if err != nil {
		return Result{}, pkgerrors.Wrap(err, "loading kept sessions")
	}
	taken := make(map[int64]bool, len(kept))
	for _, k := range kept {
		taken[k.Unix()] = true
	}

	generated, err := Generate(t, opts)
	if err != nil {
		return Result{}, err
	}
	sessions := generated[:0]
	for _, s := range generated {
		if !taken[s.StartsAt.Unix()] {
			sessions = append(sessions, s)
		}
	}

	if err := insert(ctx, tx, sessions); err != nil {
		return Result{}, err
	}
	return Result{Deleted: deleted, Created: len(sessions)}, nil
}

// RemoveFuture deletes the template's sessions from today on that have no
// roster entries, used when a template is deleted
func RemoveFuture(ctx context.Context, tx *gorm.DB, t *models.ClassTemplate, now time.Time, loc *time.Location) (int64, error) {
	today := StartOfDay(now, loc)
	res := tx.WithContext(ctx).Unscoped().
		Where("template_id = ? AND organization_id = ? AND starts_at >= ?", t.ID, t.OrganizationID, today.UTC()).
		Where("NOT EXISTS (SELECT 1 FROM roster_entries WHERE roster_entries.session_id = class_sessions.id)").
		Delete(&models.ClassSession{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(res.Error, "deleting future sessions")
	}
	return res.RowsAffected, nil
}

func insert(ctx context.Context, tx *gorm.DB, sessions []models.ClassSession) error {
	if len(sessions) == 0 {
		return nil
	}
	if err := tx.WithContext(ctx).CreateInBatches(&sessions, insertBatchSize).Error; err != nil {
		return pkgerrors.Wrap(err, "inserting sessions")
	}
	return nil
}
