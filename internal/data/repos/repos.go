package repos

import (
	"gorm.io/gorm"

	"github.com/diabolofocus/form-displays-sub000/internal/data/repos/forms"
	"github.com/diabolofocus/form-displays-sub000/internal/data/repos/submissions"
	"github.com/diabolofocus/form-displays-sub000/internal/data/repos/viewsettings"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type SubmissionRepo = submissions.SubmissionRepo
type SubmissionQuery = submissions.Query
type SubmissionPatch = submissions.Patch

type FormRepo = forms.FormRepo

type ViewSettingsRepo = viewsettings.ViewSettingsRepo

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	return submissions.NewSubmissionRepo(db, baseLog)
}

func NewFormRepo(db *gorm.DB, baseLog *logger.Logger) FormRepo {
	return forms.NewFormRepo(db, baseLog)
}

func NewViewSettingsRepo(db *gorm.DB, baseLog *logger.Logger) ViewSettingsRepo {
	return viewsettings.NewViewSettingsRepo(db, baseLog)
}
