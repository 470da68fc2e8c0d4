package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	types "github.com/diabolofocus/form-displays-sub000/internal/domain"
	pkgerrors "github.com/diabolofocus/form-displays-sub000/internal/pkg/errors"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/dbctx"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/elevation"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

// SeedData is the local-development fixture format.
type SeedData struct {
	Forms       []SeedForm       `yaml:"forms"`
	Submissions []SeedSubmission `yaml:"submissions"`
}

type SeedForm struct {
	ID     string            `yaml:"id"`
	Name   string            `yaml:"name"`
	Fields []types.FormField `yaml:"fields"`
}

type SeedSubmission struct {
	ID        string                 `yaml:"id"`
	FormID    string                 `yaml:"formId"`
	Status    string                 `yaml:"status"`
	Revision  string                 `yaml:"revision"`
	CreatedAt time.Time              `yaml:"createdAt"`
	Values    map[string]interface{} `yaml:"values"`
}

func LoadSeedFile(path string) (SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedData{}, fmt.Errorf("read seed file: %w", err)
	}
	var out SeedData
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return SeedData{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for i, f := range out.Forms {
		if strings.TrimSpace(f.ID) == "" {
			return SeedData{}, fmt.Errorf("seed form %d has no id", i)
		}
	}
	for i, s := range out.Submissions {
		if strings.TrimSpace(s.FormID) == "" {
			return SeedData{}, fmt.Errorf("seed submission %d has no formId", i)
		}
	}
	return out, nil
}

// ApplySeed upserts the forms and creates the submissions that do not exist
// yet, so running it twice is harmless.
func ApplySeed(ctx context.Context, log *logger.Logger, reposet Repos, seed SeedData) error {
	dbc := dbctx.Context{Ctx: ctx}

	forms := make([]*types.Form, 0, len(seed.Forms))
	for _, f := range seed.Forms {
		forms = append(forms, &types.Form{
			ID:        strings.TrimSpace(f.ID),
			Name:      f.Name,
			Namespace: types.SubmissionNamespace,
			Fields:    f.Fields,
		})
	}
	if err := reposet.Form.Upsert(dbc, forms); err != nil {
		return fmt.Errorf("seed forms: %w", err)
	}

	created := 0
	scope := elevation.Scope{Origin: elevation.OriginSystem, Operation: "seed"}
	err := elevation.Run(ctx, scope, func(ctx context.Context) error {
		dbc := dbctx.Context{Ctx: ctx}
		rows := make([]*types.FormSubmission, 0, len(seed.Submissions))
		for _, s := range seed.Submissions {
			if id := strings.TrimSpace(s.ID); id != "" {
				_, err := reposet.Submission.GetByID(dbc, id)
				if err == nil {
					continue
				}
				if !errors.Is(err, pkgerrors.ErrNotFound) {
					return err
				}
			}
			rows = append(rows, &types.FormSubmission{
				ID:          strings.TrimSpace(s.ID),
				FormID:      strings.TrimSpace(s.FormID),
				Status:      types.SubmissionStatus(strings.ToUpper(strings.TrimSpace(s.Status))),
				Revision:    strings.TrimSpace(s.Revision),
				CreatedAt:   s.CreatedAt,
				Submissions: s.Values,
			})
		}
		out, err := reposet.Submission.Create(dbc, rows)
		created = len(out)
		return err
	})
	if err != nil {
		return fmt.Errorf("seed submissions: %w", err)
	}

	log.Info("seed applied", "forms", len(forms), "submissions_created", created)
	return nil
}
