package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/diabolofocus/form-displays-sub000/internal/data/repos/testutil"
	"github.com/diabolofocus/form-displays-sub000/internal/data/repos/submissions"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/dbctx"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/elevation"
)

const seedYAML = `
forms:
  - id: contact
    name: Contact us
    fields:
      - {key: name, label: Name}
      - {key: email, label: Email}
submissions:
  - id: s-1
    formId: contact
    createdAt: 2025-01-01T10:00:00Z
    values: {name: Ada}
  - id: s-2
    formId: contact
    status: confirmed
    createdAt: 2025-01-02T10:00:00Z
`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApplySeedIsRepeatable(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	reposet := wireRepos(gdb, log)
	ctx := context.Background()

	seed, err := LoadSeedFile(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := ApplySeed(ctx, log, reposet, seed); err != nil {
			t.Fatalf("ApplySeed #%d: %v", i+1, err)
		}
	}

	form, err := reposet.Form.GetByID(dbctx.Context{Ctx: ctx}, "contact")
	if err != nil || form.Name != "Contact us" || len(form.Fields) != 2 {
		t.Fatalf("seeded form: %+v err=%v", form, err)
	}

	scope := elevation.Scope{Origin: elevation.OriginSystem, Operation: "test"}
	err = elevation.Run(ctx, scope, func(ctx context.Context) error {
		rows, err := reposet.Submission.List(dbctx.Context{Ctx: ctx}, submissions.Query{Namespace: "wix.form_app.form"})
		if err != nil {
			return err
		}
		if len(rows) != 2 || rows[0].ID != "s-2" || rows[0].Status != "CONFIRMED" || rows[1].Revision != "1" {
			t.Fatalf("unexpected seeded submissions %+v", rows)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLoadSeedFileRejectsIncompleteRows(t *testing.T) {
	if _, err := LoadSeedFile(writeSeed(t, "forms:\n  - name: nameless\n")); err == nil {
		t.Fatal("expected error for form without id")
	}
	if _, err := LoadSeedFile(writeSeed(t, "submissions:\n  - id: x\n")); err == nil {
		t.Fatal("expected error for submission without formId")
	}
}
