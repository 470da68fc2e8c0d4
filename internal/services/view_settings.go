package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/diabolofocus/form-displays-sub000/internal/observability"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/apierr"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
	"github.com/diabolofocus/form-displays-sub000/internal/viewconfig"
)

type ViewSettingsStatus struct {
	IsLoading      bool     `json:"isLoading"`
	DirtyFormIDs   []string `json:"dirtyFormIds"`
	SelectedFormID string   `json:"selectedFormId"`
}

// ViewSettingsService puts the catalog's current fields in front of the
// view config store, so callers never pass field lists themselves except
// through SetFields.
type ViewSettingsService interface {
	Settings(ctx context.Context, formID string) (viewconfig.FormViewSettings, error)
	SetFields(ctx context.Context, formID string, fields []viewconfig.Field) (viewconfig.FormViewSettings, error)
	VisibleColumns(ctx context.Context, formID string) ([]viewconfig.ColumnConfig, error)
	SetColumnVisibility(ctx context.Context, formID, fieldName string, visible bool) (viewconfig.FormViewSettings, error)
	ReorderColumns(ctx context.Context, formID string, fieldNames []string) (viewconfig.FormViewSettings, error)
	Reset(ctx context.Context, formID string) (viewconfig.FormViewSettings, error)
	Save(ctx context.Context) error
	Status() ViewSettingsStatus
	SelectedForm() string
	SelectForm(ctx context.Context, formID string) (bool, error)
	StartAutosave(ctx context.Context, interval time.Duration)
}

type viewSettingsService struct {
	store   *viewconfig.Store
	catalog FormCatalog
	log     *logger.Logger
	metrics *observability.Metrics
}

func NewViewSettingsService(store *viewconfig.Store, catalog FormCatalog, log *logger.Logger, metrics *observability.Metrics) ViewSettingsService {
	return &viewSettingsService{
		store:   store,
		catalog: catalog,
		log:     log.With("service", "ViewSettingsService"),
		metrics: metrics,
	}
}

// Settings reconciles the form's settings with its current fields and
// returns the result.
func (s *viewSettingsService) Settings(ctx context.Context, formID string) (viewconfig.FormViewSettings, error) {
	id, err := s.resolve(formID)
	if err != nil {
		return viewconfig.FormViewSettings{}, err
	}
	fields, err := s.fields(ctx, id)
	if err != nil {
		return viewconfig.FormViewSettings{}, err
	}
	out, err := s.store.SetFormSettings(id, fields)
	return out, s.afterMutation(err)
}

func (s *viewSettingsService) SetFields(ctx context.Context, formID string, fields []viewconfig.Field) (viewconfig.FormViewSettings, error) {
	id, err := s.resolve(formID)
	if err != nil {
		return viewconfig.FormViewSettings{}, err
	}
	out, err := s.store.SetFormSettings(id, fields)
	return out, s.afterMutation(err)
}

func (s *viewSettingsService) VisibleColumns(ctx context.Context, formID string) ([]viewconfig.ColumnConfig, error) {
	id, err := s.resolve(formID)
	if err != nil {
		return nil, err
	}
	if _, ok := s.store.GetFormSettings(id); ok {
		return s.store.GetVisibleColumns(id, nil), nil
	}
	fields, err := s.fields(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.store.GetVisibleColumns(id, fields), nil
}

func (s *viewSettingsService) SetColumnVisibility(ctx context.Context, formID, fieldName string, visible bool) (viewconfig.FormViewSettings, error) {
	id, err := s.ensure(ctx, formID)
	if err != nil {
		return viewconfig.FormViewSettings{}, err
	}
	out, err := s.store.UpdateColumnVisibility(id, fieldName, visible)
	return out, s.afterMutation(err)
}

func (s *viewSettingsService) ReorderColumns(ctx context.Context, formID string, fieldNames []string) (viewconfig.FormViewSettings, error) {
	id, err := s.ensure(ctx, formID)
	if err != nil {
		return viewconfig.FormViewSettings{}, err
	}
	out, err := s.store.UpdateColumnOrder(id, fieldNames)
	return out, s.afterMutation(err)
}

func (s *viewSettingsService) Reset(ctx context.Context, formID string) (viewconfig.FormViewSettings, error) {
	id, err := s.resolve(formID)
	if err != nil {
		return viewconfig.FormViewSettings{}, err
	}
	fields, err := s.fields(ctx, id)
	if err != nil {
		return viewconfig.FormViewSettings{}, err
	}
	out, err := s.store.ResetFormToDefaults(id, fields)
	return out, s.afterMutation(err)
}

func (s *viewSettingsService) Save(ctx context.Context) error {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "ViewSettings.save",
		attribute.Int("forms.dirty", len(s.store.DirtyFormIDs())),
	)
	defer span.End()

	err := s.store.SaveSettings(ctx)
	s.metrics.ObserveSettingsSave(err, time.Since(start))
	s.metrics.SetDirtyForms(len(s.store.DirtyFormIDs()))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return mapStoreError(err)
	}
	return nil
}

func (s *viewSettingsService) Status() ViewSettingsStatus {
	return ViewSettingsStatus{
		IsLoading:      s.store.IsLoading(),
		DirtyFormIDs:   s.store.DirtyFormIDs(),
		SelectedFormID: s.store.SelectedFormID(),
	}
}

func (s *viewSettingsService) SelectedForm() string { return s.store.SelectedFormID() }

// SelectForm selects formID; an empty id clears the selection. Unknown forms
// are rejected.
func (s *viewSettingsService) SelectForm(ctx context.Context, formID string) (bool, error) {
	formID = strings.TrimSpace(formID)
	if formID != "" {
		if _, err := s.fields(ctx, formID); err != nil {
			return false, err
		}
	}
	return s.store.SetSelectedFormID(formID), nil
}

// StartAutosave saves dirty settings every interval until ctx is done. A
// non-positive interval disables it.
func (s *viewSettingsService) StartAutosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if len(s.store.DirtyFormIDs()) == 0 || s.store.IsLoading() {
					continue
				}
				if err := s.Save(ctx); err != nil && ctx.Err() == nil {
					s.log.Warn("autosave failed", "error", err)
				}
			}
		}
	}()
}

func (s *viewSettingsService) resolve(formID string) (string, error) {
	if id := strings.TrimSpace(formID); id != "" {
		return id, nil
	}
	if id := s.store.SelectedFormID(); id != "" {
		return id, nil
	}
	return "", mapStoreError(viewconfig.ErrNoFormSelected)
}

// ensure makes sure the form has settings, creating them from the catalog's
// fields when it has none yet.
func (s *viewSettingsService) ensure(ctx context.Context, formID string) (string, error) {
	id, err := s.resolve(formID)
	if err != nil {
		return "", err
	}
	if _, ok := s.store.GetFormSettings(id); ok {
		return id, nil
	}
	if _, err := s.Settings(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *viewSettingsService) fields(ctx context.Context, formID string) ([]viewconfig.Field, error) {
	fields, ok, err := s.catalog.Fields(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("load form fields: %w", err)
	}
	if !ok {
		return nil, apierr.NotFound(fmt.Errorf("form %s not found", formID))
	}
	return fields, nil
}

func (s *viewSettingsService) afterMutation(err error) error {
	s.metrics.SetDirtyForms(len(s.store.DirtyFormIDs()))
	return mapStoreError(err)
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, viewconfig.ErrNoFormSelected):
		return apierr.New(http.StatusBadRequest, "no_form_selected", err)
	case errors.Is(err, viewconfig.ErrFormNotInitialized):
		return apierr.NotFound(err)
	case errors.Is(err, viewconfig.ErrNoBackend):
		return apierr.New(http.StatusServiceUnavailable, "no_backend", err)
	default:
		return err
	}
}
