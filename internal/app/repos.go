package app

import (
	"gorm.io/gorm"

	"github.com/diabolofocus/form-displays-sub000/internal/data/repos"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type Repos struct {
	Submission   repos.SubmissionRepo
	Form         repos.FormRepo
	ViewSettings repos.ViewSettingsRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Submission:   repos.NewSubmissionRepo(db, log),
		Form:         repos.NewFormRepo(db, log),
		ViewSettings: repos.NewViewSettingsRepo(db, log),
	}
}
