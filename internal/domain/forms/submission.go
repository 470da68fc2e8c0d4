package forms

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmissionNamespace tags the submissions that belong to this app. Queries
// through the submission proxy never see rows from other namespaces.
const SubmissionNamespace = "wix.form_app.form"

type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "PENDING"
	SubmissionStatusConfirmed SubmissionStatus = "CONFIRMED"
	SubmissionStatusCancelled SubmissionStatus = "CANCELLED"
)

type FormSubmission struct {
	ID          string            `gorm:"column:id;primaryKey" json:"id"`
	FormID      string            `gorm:"column:form_id;not null;index" json:"formId"`
	Namespace   string            `gorm:"column:namespace;not null;index:idx_submission_ns_created,priority:1" json:"namespace"`
	Status      SubmissionStatus  `gorm:"column:status;not null" json:"status"`
	Revision    string            `gorm:"column:revision;not null" json:"revision"`
	SubmitterID string            `gorm:"column:submitter_id" json:"submitterId,omitempty"`
	Submissions datatypes.JSONMap `gorm:"column:submissions" json:"submissions"`

	CreatedAt time.Time      `gorm:"column:created_at;not null;index:idx_submission_ns_created,priority:2" json:"createdDate"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null" json:"updatedDate"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (FormSubmission) TableName() string { return "form_submission" }

func (s *FormSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Namespace == "" {
		s.Namespace = SubmissionNamespace
	}
	if s.Status == "" {
		s.Status = SubmissionStatusPending
	}
	if s.Revision == "" {
		s.Revision = "1"
	}
	return nil
}
