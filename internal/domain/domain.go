package domain

import "github.com/diabolofocus/form-displays-sub000/internal/domain/forms"

const SubmissionNamespace = forms.SubmissionNamespace

type (
	FormSubmission      = forms.FormSubmission
	SubmissionStatus    = forms.SubmissionStatus
	Form                = forms.Form
	FormField           = forms.FormField
	FormViewSettingsRow = forms.FormViewSettingsRow
	ColumnSetting       = forms.ColumnSetting
)

const (
	SubmissionStatusPending   = forms.SubmissionStatusPending
	SubmissionStatusConfirmed = forms.SubmissionStatusConfirmed
	SubmissionStatusCancelled = forms.SubmissionStatusCancelled
)
