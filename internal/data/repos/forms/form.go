package forms

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/diabolofocus/form-displays-sub000/internal/domain"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/dbctx"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type FormRepo interface {
	List(dbc dbctx.Context, namespace string) ([]*types.Form, error)
	GetByID(dbc dbctx.Context, id string) (*types.Form, error)
	Upsert(dbc dbctx.Context, rows []*types.Form) error
}

type formRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFormRepo(db *gorm.DB, baseLog *logger.Logger) FormRepo {
	return &formRepo{db: db, log: baseLog.With("repo", "FormRepo")}
}

func (r *formRepo) List(dbc dbctx.Context, namespace string) ([]*types.Form, error) {
	var out []*types.Form
	t := dbc.DB(r.db)
	if namespace != "" {
		t = t.Where("namespace = ?", namespace)
	}
	if err := t.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns nil, nil when the form does not exist.
func (r *formRepo) GetByID(dbc dbctx.Context, id string) (*types.Form, error) {
	if id == "" {
		return nil, nil
	}
	var row types.Form
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *formRepo) Upsert(dbc dbctx.Context, rows []*types.Form) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "namespace", "fields", "updated_at"}),
		}).
		Create(&rows).Error
}
