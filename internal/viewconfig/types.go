package viewconfig

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoFormSelected     = errors.New("no form id given and no form selected")
	ErrFormNotInitialized = errors.New("form has no view settings yet")
	ErrNoBackend          = errors.New("no settings backend configured")
)

// Field is one entry of a form's current field list, in declaration order.
type Field struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type ColumnConfig struct {
	FieldName string `json:"fieldName"`
	Label     string `json:"label"`
	Visible   bool   `json:"visible"`
	Order     int    `json:"order"`
}

type FormViewSettings struct {
	FormID       string         `json:"formId"`
	Columns      []ColumnConfig `json:"columns"`
	LastModified time.Time      `json:"lastModified"`
}

func (s FormViewSettings) Clone() FormViewSettings {
	out := s
	if s.Columns != nil {
		out.Columns = make([]ColumnConfig, len(s.Columns))
		copy(out.Columns, s.Columns)
	}
	return out
}

// VisibleColumns returns the visible columns in left-to-right order.
func (s FormViewSettings) VisibleColumns() []ColumnConfig {
	out := make([]ColumnConfig, 0, len(s.Columns))
	for _, c := range sortedColumns(s.Columns) {
		if c.Visible {
			out = append(out, c)
		}
	}
	return out
}

// Backend persists view settings outside the process.
type Backend interface {
	LoadSettings(ctx context.Context) ([]FormViewSettings, error)
	SaveSettings(ctx context.Context, settings []FormViewSettings) error
}
