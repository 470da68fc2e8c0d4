// Package viewconfig keeps, per form, which submission-table columns are
// visible and in what order. The form's current field list decides which
// columns exist; saved preferences decide how they are shown.
package viewconfig

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type entry struct {
	settings FormViewSettings
	dirty    bool
	// bumped on every change so a save can tell whether it persisted the latest state
	version uint64
}

type Store struct {
	backend Backend
	log     *logger.Logger
	now     func() time.Time

	mu       sync.RWMutex
	entries  map[string]*entry
	selected string

	subsMu     sync.Mutex
	subs       map[int]chan Event
	savedHooks map[int]SavedFunc
	nextSub    int

	// one persistence call at a time; a second save waits its turn
	persistSem chan struct{}
	loading    atomic.Bool
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(backend Backend, log *logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{
		backend:    backend,
		log:        log.With("service", "ViewConfigStore"),
		now:        func() time.Time { return time.Now().UTC() },
		entries:    map[string]*entry{},
		subs:       map[int]chan Event{},
		savedHooks: map[int]SavedFunc{},
		persistSem: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads previously saved settings from the backend. Forms that already
// have in-memory settings are left alone.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	saved, err := s.backend.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load view settings: %w", err)
	}

	loaded := make([]string, 0, len(saved))
	s.mu.Lock()
	for _, fs := range saved {
		id := strings.TrimSpace(fs.FormID)
		if id == "" {
			continue
		}
		if _, ok := s.entries[id]; ok {
			continue
		}
		fs = fs.Clone()
		fs.FormID = id
		fs.Columns = sortedColumns(fs.Columns)
		densify(fs.Columns)
		s.entries[id] = &entry{settings: fs}
		loaded = append(loaded, id)
	}
	s.mu.Unlock()

	sort.Strings(loaded)
	s.log.Info("view settings loaded", "forms", len(loaded))
	s.emit(Event{Type: EventSettingsLoaded, FormIDs: loaded})
	return nil
}

// SetFormSettings creates default settings for a new form or reconciles the
// existing ones against fields. Re-running it with an unchanged field list
// changes nothing. The result is not persisted until SaveSettings.
func (s *Store) SetFormSettings(formID string, fields []Field) (FormViewSettings, error) {
	return s.mutate(formID, true, func(e *entry, id string) (bool, error) {
		if e.settings.FormID == "" {
			e.settings = FormViewSettings{FormID: id, Columns: defaultColumns(fields)}
			return true, nil
		}
		cols, dropped := reconcileColumns(e.settings.Columns, fields)
		if len(dropped) > 0 {
			s.log.Debug("dropped stale view columns", "form_id", id, "fields", dropped)
		}
		if sameColumns(cols, e.settings.Columns) {
			return false, nil
		}
		e.settings.Columns = cols
		return true, nil
	})
}

// ResetFormToDefaults discards saved visibility and order for the form.
func (s *Store) ResetFormToDefaults(formID string, fields []Field) (FormViewSettings, error) {
	return s.mutate(formID, true, func(e *entry, id string) (bool, error) {
		cols := defaultColumns(fields)
		if e.settings.FormID != "" && sameColumns(cols, e.settings.Columns) {
			return false, nil
		}
		e.settings = FormViewSettings{FormID: id, Columns: cols}
		return true, nil
	})
}

// UpdateColumnVisibility sets the visible flag of one column. Unknown field
// names are ignored.
func (s *Store) UpdateColumnVisibility(formID, fieldName string, visible bool) (FormViewSettings, error) {
	fieldName = strings.TrimSpace(fieldName)
	return s.mutate(formID, false, func(e *entry, id string) (bool, error) {
		for i := range e.settings.Columns {
			c := &e.settings.Columns[i]
			if c.FieldName != fieldName {
				continue
			}
			if c.Visible == visible {
				return false, nil
			}
			c.Visible = visible
			return true, nil
		}
		s.log.Debug("visibility update for unknown column ignored", "form_id", id, "field", fieldName)
		return false, nil
	})
}

// UpdateColumnOrder ranks fieldNames first in the given order; columns not
// named keep their previous relative order after them.
func (s *Store) UpdateColumnOrder(formID string, fieldNames []string) (FormViewSettings, error) {
	return s.mutate(formID, false, func(e *entry, id string) (bool, error) {
		cols := reorderColumns(e.settings.Columns, fieldNames)
		if sameColumns(cols, e.settings.Columns) {
			return false, nil
		}
		e.settings.Columns = cols
		return true, nil
	})
}

func (s *Store) GetFormSettings(formID string) (FormViewSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := s.resolveLocked(formID)
	e, ok := s.entries[id]
	if !ok {
		return FormViewSettings{}, false
	}
	return e.settings.Clone(), true
}

// GetVisibleColumns returns the visible columns of the form in order. Before
// the form has settings it returns every fallback field, visible, in
// declaration order.
func (s *Store) GetVisibleColumns(formID string, fallback []Field) []ColumnConfig {
	if fs, ok := s.GetFormSettings(formID); ok {
		return fs.VisibleColumns()
	}
	return defaultColumns(fallback)
}

// SetSelectedFormID reports whether the selection changed. Selecting the
// current form again emits nothing.
func (s *Store) SetSelectedFormID(formID string) bool {
	formID = strings.TrimSpace(formID)
	s.mu.Lock()
	if s.selected == formID {
		s.mu.Unlock()
		return false
	}
	s.selected = formID
	s.mu.Unlock()

	s.emit(Event{Type: EventSelectedFormChanged, FormID: formID})
	return true
}

func (s *Store) SelectedFormID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *Store) IsLoading() bool { return s.loading.Load() }

func (s *Store) DirtyFormIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0)
	for id, e := range s.entries {
		if e.dirty {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// SaveSettings persists every dirty form in one backend call. Saves are
// serialized; a failed save leaves the in-memory settings untouched so the
// caller can retry.
func (s *Store) SaveSettings(ctx context.Context) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.RLock()
	batch := make([]FormViewSettings, 0)
	versions := make(map[string]uint64)
	for id, e := range s.entries {
		if !e.dirty {
			continue
		}
		batch = append(batch, e.settings.Clone())
		versions[id] = e.version
	}
	s.mu.RUnlock()

	if len(batch) == 0 {
		return nil
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].FormID < batch[j].FormID })

	if err := s.backend.SaveSettings(ctx, batch); err != nil {
		s.log.Warn("saving view settings failed", "forms", len(batch), "error", err)
		return fmt.Errorf("save view settings: %w", err)
	}

	saved := make([]string, 0, len(batch))
	s.mu.Lock()
	for id, v := range versions {
		if e, ok := s.entries[id]; ok && e.version == v {
			e.dirty = false
		}
		saved = append(saved, id)
	}
	s.mu.Unlock()

	sort.Strings(saved)
	s.log.Info("view settings saved", "forms", len(saved))
	at := s.now()
	s.notifySaved(batch, at)
	s.emit(Event{Type: EventSettingsSaved, FormIDs: saved, At: at})
	return nil
}

// ApplyRemote adopts settings another process has already persisted. Local
// unsaved edits win, as do local settings that are not older. Nothing is
// marked dirty and no event is emitted.
func (s *Store) ApplyRemote(fs FormViewSettings) bool {
	id := strings.TrimSpace(fs.FormID)
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		if e.dirty || !fs.LastModified.After(e.settings.LastModified) {
			return false
		}
	}
	fs = fs.Clone()
	fs.FormID = id
	fs.Columns = sortedColumns(fs.Columns)
	densify(fs.Columns)
	prev := s.entries[id]
	e := &entry{settings: fs}
	if prev != nil {
		e.version = prev.version + 1
	}
	s.entries[id] = e
	return true
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.persistSem <- struct{}{}:
		s.loading.Store(true)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	s.loading.Store(false)
	<-s.persistSem
}

func (s *Store) resolveLocked(formID string) string {
	if id := strings.TrimSpace(formID); id != "" {
		return id
	}
	return s.selected
}

// mutate runs fn on the form's entry under the write lock. create allows a
// missing entry to be created; otherwise a missing form is an error. When fn
// reports a change the entry is stamped, marked dirty and announced.
func (s *Store) mutate(formID string, create bool, fn func(e *entry, id string) (bool, error)) (FormViewSettings, error) {
	s.mu.Lock()
	id := s.resolveLocked(formID)
	if id == "" {
		s.mu.Unlock()
		return FormViewSettings{}, ErrNoFormSelected
	}
	e, ok := s.entries[id]
	if !ok {
		if !create {
			s.mu.Unlock()
			return FormViewSettings{}, fmt.Errorf("%w: %s", ErrFormNotInitialized, id)
		}
		e = &entry{}
	}
	changed, err := fn(e, id)
	if err != nil {
		s.mu.Unlock()
		return FormViewSettings{}, err
	}
	if changed {
		e.settings.LastModified = s.now()
		e.dirty = true
		e.version++
		s.entries[id] = e
	}
	out := e.settings.Clone()
	s.mu.Unlock()

	if changed {
		snapshot := out.Clone()
		s.emit(Event{Type: EventSettingsChanged, FormID: id, Settings: &snapshot})
	}
	return out, nil
}
