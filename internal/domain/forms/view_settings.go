package forms

import (
	"time"

	"gorm.io/datatypes"
)

type ColumnSetting struct {
	FieldName string `json:"fieldName"`
	Label     string `json:"label"`
	Visible   bool   `json:"visible"`
	Order     int    `json:"order"`
}

// FormViewSettingsRow is the persisted column layout of one form's
// submissions table.
type FormViewSettingsRow struct {
	FormID       string                             `gorm:"column:form_id;primaryKey" json:"formId"`
	Columns      datatypes.JSONSlice[ColumnSetting] `gorm:"column:columns" json:"columns"`
	LastModified time.Time                          `gorm:"column:last_modified;not null" json:"lastModified"`
	UpdatedAt    time.Time                          `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (FormViewSettingsRow) TableName() string { return "form_view_settings" }
