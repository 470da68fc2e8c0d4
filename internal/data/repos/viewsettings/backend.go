package viewsettings

import (
	"context"

	types "github.com/diabolofocus/form-displays-sub000/internal/domain"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/dbctx"
	"github.com/diabolofocus/form-displays-sub000/internal/viewconfig"
)

// StoreBackend lets a viewconfig.Store persist through the repo.
type StoreBackend struct {
	repo ViewSettingsRepo
}

func NewStoreBackend(repo ViewSettingsRepo) *StoreBackend {
	return &StoreBackend{repo: repo}
}

func (b *StoreBackend) LoadSettings(ctx context.Context) ([]viewconfig.FormViewSettings, error) {
	rows, err := b.repo.GetAll(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, err
	}
	out := make([]viewconfig.FormViewSettings, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func (b *StoreBackend) SaveSettings(ctx context.Context, settings []viewconfig.FormViewSettings) error {
	rows := make([]*types.FormViewSettingsRow, 0, len(settings))
	for _, fs := range settings {
		rows = append(rows, toRow(fs))
	}
	return b.repo.UpsertMany(dbctx.Context{Ctx: ctx}, rows)
}

func fromRow(row *types.FormViewSettingsRow) viewconfig.FormViewSettings {
	cols := make([]viewconfig.ColumnConfig, 0, len(row.Columns))
	for _, c := range row.Columns {
		cols = append(cols, viewconfig.ColumnConfig{
			FieldName: c.FieldName,
			Label:     c.Label,
			Visible:   c.Visible,
			Order:     c.Order,
		})
	}
	return viewconfig.FormViewSettings{FormID: row.FormID, Columns: cols, LastModified: row.LastModified}
}

func toRow(fs viewconfig.FormViewSettings) *types.FormViewSettingsRow {
	cols := make([]types.ColumnSetting, 0, len(fs.Columns))
	for _, c := range fs.Columns {
		cols = append(cols, types.ColumnSetting{
			FieldName: c.FieldName,
			Label:     c.Label,
			Visible:   c.Visible,
			Order:     c.Order,
		})
	}
	return &types.FormViewSettingsRow{FormID: fs.FormID, Columns: cols, LastModified: fs.LastModified}
}
