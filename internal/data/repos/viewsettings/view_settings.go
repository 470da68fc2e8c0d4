package viewsettings

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/diabolofocus/form-displays-sub000/internal/domain"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/dbctx"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type ViewSettingsRepo interface {
	GetAll(dbc dbctx.Context) ([]*types.FormViewSettingsRow, error)
	UpsertMany(dbc dbctx.Context, rows []*types.FormViewSettingsRow) error
}

type viewSettingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewViewSettingsRepo(db *gorm.DB, baseLog *logger.Logger) ViewSettingsRepo {
	return &viewSettingsRepo{db: db, log: baseLog.With("repo", "ViewSettingsRepo")}
}

func (r *viewSettingsRepo) GetAll(dbc dbctx.Context) ([]*types.FormViewSettingsRow, error) {
	var out []*types.FormViewSettingsRow
	if err := dbc.DB(r.db).Order("form_id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertMany writes all rows in one transaction; either every form's layout
// is stored or none is.
func (r *viewSettingsRepo) UpsertMany(dbc dbctx.Context, rows []*types.FormViewSettingsRow) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		row.UpdatedAt = now
	}
	write := func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "form_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"columns", "last_modified", "updated_at"}),
		}).Create(&rows).Error
	}
	if dbc.Tx != nil {
		return write(dbc.DB(r.db))
	}
	if err := dbc.DB(r.db).Transaction(write); err != nil {
		return err
	}
	r.log.Debug("view settings upserted", "forms", len(rows))
	return nil
}

