package forms

import (
	"time"

	"gorm.io/datatypes"
)

// FormField is one field definition of a form, in declaration order.
type FormField struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
}

// Form is a catalog entry: the display name of a form plus its current
// field list, which is authoritative for which table columns can exist.
type Form struct {
	ID        string                         `gorm:"column:id;primaryKey" json:"id"`
	Name      string                         `gorm:"column:name;not null" json:"name"`
	Namespace string                         `gorm:"column:namespace;not null;index" json:"namespace"`
	Fields    datatypes.JSONSlice[FormField] `gorm:"column:fields" json:"fields"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdDate"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updatedDate"`
}

func (Form) TableName() string { return "form" }
