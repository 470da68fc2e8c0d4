package submissions

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/diabolofocus/form-displays-sub000/internal/domain"
	pkgerrors "github.com/diabolofocus/form-displays-sub000/internal/pkg/errors"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/apierr"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/dbctx"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/elevation"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type Query struct {
	Namespace string
	Limit     int
}

// Patch is the part of an update request the store understands. FormID and
// Revision are preconditions; Status and Values are applied.
type Patch struct {
	FormID   string
	Revision string
	Status   types.SubmissionStatus
	Values   map[string]interface{}
}

type SubmissionRepo interface {
	Create(dbc dbctx.Context, rows []*types.FormSubmission) ([]*types.FormSubmission, error)
	GetByID(dbc dbctx.Context, id string) (*types.FormSubmission, error)
	List(dbc dbctx.Context, q Query) ([]*types.FormSubmission, error)
	Update(dbc dbctx.Context, id string, patch Patch) (*types.FormSubmission, error)
	Delete(dbc dbctx.Context, id string) error
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	return &submissionRepo{db: db, log: baseLog.With("repo", "SubmissionRepo")}
}

func (r *submissionRepo) Create(dbc dbctx.Context, rows []*types.FormSubmission) ([]*types.FormSubmission, error) {
	if err := elevation.Require(dbc.Ctx); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*types.FormSubmission{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, mapError("create", err)
	}
	return rows, nil
}

func (r *submissionRepo) GetByID(dbc dbctx.Context, id string) (*types.FormSubmission, error) {
	if err := elevation.Require(dbc.Ctx); err != nil {
		return nil, err
	}
	var row types.FormSubmission
	if err := dbc.DB(r.db).Where("id = ?", strings.TrimSpace(id)).Take(&row).Error; err != nil {
		return nil, mapError("get", err)
	}
	return &row, nil
}

func (r *submissionRepo) List(dbc dbctx.Context, q Query) ([]*types.FormSubmission, error) {
	if err := elevation.Require(dbc.Ctx); err != nil {
		return nil, err
	}
	var out []*types.FormSubmission
	t := dbc.DB(r.db).Where("namespace = ?", q.Namespace).Order("created_at DESC").Order("id DESC")
	if q.Limit > 0 {
		t = t.Limit(q.Limit)
	}
	if err := t.Find(&out).Error; err != nil {
		return nil, mapError("list", err)
	}
	return out, nil
}

func (r *submissionRepo) Update(dbc dbctx.Context, id string, patch Patch) (*types.FormSubmission, error) {
	if err := elevation.Require(dbc.Ctx); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	var updated types.FormSubmission
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var row types.FormSubmission
		if err := tx.Where("id = ?", id).Take(&row).Error; err != nil {
			return err
		}
		if patch.FormID != "" && row.FormID != patch.FormID {
			return apierr.New(http.StatusBadRequest, "form_mismatch",
				fmt.Errorf("submission %s belongs to form %s, not %s: %w", id, row.FormID, patch.FormID, pkgerrors.ErrInvalidArgument))
		}
		if row.Revision != patch.Revision {
			return apierr.Conflict(fmt.Errorf("stale revision %q for submission %s (current %q): %w", patch.Revision, id, row.Revision, pkgerrors.ErrConflict))
		}

		values := map[string]interface{}{}
		for k, v := range row.Submissions {
			values[k] = v
		}
		for k, v := range patch.Values {
			values[k] = v
		}
		row.Submissions = values
		if patch.Status != "" {
			row.Status = patch.Status
		}
		row.Revision = nextRevision(row.Revision)
		row.UpdatedAt = time.Now().UTC()

		// the revision predicate makes a concurrent writer lose instead of overwrite
		res := tx.Model(&types.FormSubmission{}).
			Where("id = ? AND revision = ?", id, patch.Revision).
			Updates(map[string]interface{}{
				"submissions": row.Submissions,
				"status":      row.Status,
				"revision":    row.Revision,
				"updated_at":  row.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apierr.Conflict(fmt.Errorf("submission %s changed during update: %w", id, pkgerrors.ErrConflict))
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, mapError("update", err)
	}
	r.log.Debug("submission updated", "submission_id", id, "revision", updated.Revision)
	return &updated, nil
}

func (r *submissionRepo) Delete(dbc dbctx.Context, id string) error {
	if err := elevation.Require(dbc.Ctx); err != nil {
		return err
	}
	res := dbc.DB(r.db).Where("id = ?", strings.TrimSpace(id)).Delete(&types.FormSubmission{})
	if res.Error != nil {
		return mapError("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return mapError("delete", gorm.ErrRecordNotFound)
	}
	return nil
}

func nextRevision(current string) string {
	if n, err := strconv.ParseInt(strings.TrimSpace(current), 10, 64); err == nil {
		return strconv.FormatInt(n+1, 10)
	}
	return uuid.NewString()
}
