package db

import (
	"fmt"

	types "github.com/diabolofocus/form-displays-sub000/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.Form{},
		&types.FormSubmission{},
		&types.FormViewSettingsRow{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
