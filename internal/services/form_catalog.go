package services

import (
	"context"
	"strings"

	"github.com/diabolofocus/form-displays-sub000/internal/data/repos"
	types "github.com/diabolofocus/form-displays-sub000/internal/domain"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/dbctx"
	"github.com/diabolofocus/form-displays-sub000/internal/viewconfig"
)

// FormCatalog is the external list of forms: display names and the current
// field definitions.
type FormCatalog interface {
	// ListForms may return more forms than ids names; callers filter.
	ListForms(ctx context.Context, ids []string) ([]types.Form, error)
	// Fields returns the form's current fields in declaration order and
	// whether the form exists.
	Fields(ctx context.Context, formID string) ([]viewconfig.Field, bool, error)
}

type repoFormCatalog struct {
	repo      repos.FormRepo
	namespace string
}

func NewFormCatalog(repo repos.FormRepo) FormCatalog {
	return &repoFormCatalog{repo: repo, namespace: types.SubmissionNamespace}
}

func (c *repoFormCatalog) ListForms(ctx context.Context, ids []string) ([]types.Form, error) {
	rows, err := c.repo.List(dbctx.Context{Ctx: ctx}, c.namespace)
	if err != nil {
		return nil, err
	}
	out := make([]types.Form, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (c *repoFormCatalog) Fields(ctx context.Context, formID string) ([]viewconfig.Field, bool, error) {
	row, err := c.repo.GetByID(dbctx.Context{Ctx: ctx}, strings.TrimSpace(formID))
	if err != nil {
		return nil, false, err
	}
	if row == nil {
		return nil, false, nil
	}
	return FieldsOf(row), true, nil
}

func FieldsOf(form *types.Form) []viewconfig.Field {
	out := make([]viewconfig.Field, 0, len(form.Fields))
	for _, f := range form.Fields {
		out = append(out, viewconfig.Field{Name: f.Key, Label: f.Label})
	}
	return out
}
