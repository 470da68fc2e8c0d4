package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/diabolofocus/form-displays-sub000/internal/data/repos"
	types "github.com/diabolofocus/form-displays-sub000/internal/domain"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/apierr"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/dbctx"
)

// UpdateData is the raw update body: formId and revision are required, status
// and submissions (field values to merge) are optional.
type UpdateData map[string]interface{}

// UpdateRequest is UpdateData after validation.
type UpdateRequest struct {
	FormID   string
	Revision string
	Status   types.SubmissionStatus
	Values   map[string]interface{}
}

// SubmissionStore is the submissions data source behind the proxy. Every
// method expects an elevated context.
type SubmissionStore interface {
	UpdateSubmission(ctx context.Context, submissionID string, req UpdateRequest) (*types.FormSubmission, error)
	ListSubmissions(ctx context.Context, namespace string, limit int) ([]*types.FormSubmission, error)
	DeleteSubmission(ctx context.Context, submissionID string) error
}

type repoSubmissionStore struct {
	repo repos.SubmissionRepo
}

func NewSubmissionStore(repo repos.SubmissionRepo) SubmissionStore {
	return &repoSubmissionStore{repo: repo}
}

func (s *repoSubmissionStore) UpdateSubmission(ctx context.Context, submissionID string, req UpdateRequest) (*types.FormSubmission, error) {
	return s.repo.Update(dbctx.Context{Ctx: ctx}, submissionID, repos.SubmissionPatch{
		FormID:   req.FormID,
		Revision: req.Revision,
		Status:   req.Status,
		Values:   req.Values,
	})
}

func (s *repoSubmissionStore) ListSubmissions(ctx context.Context, namespace string, limit int) ([]*types.FormSubmission, error) {
	return s.repo.List(dbctx.Context{Ctx: ctx}, repos.SubmissionQuery{Namespace: namespace, Limit: limit})
}

func (s *repoSubmissionStore) DeleteSubmission(ctx context.Context, submissionID string) error {
	return s.repo.Delete(dbctx.Context{Ctx: ctx}, submissionID)
}

// ValidationError names every required field that was missing or blank.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

var requiredUpdateFields = []string{"formId", "revision"}

func parseUpdateData(data UpdateData) (UpdateRequest, error) {
	var missing []string
	values := make(map[string]string, len(requiredUpdateFields))
	for _, key := range requiredUpdateFields {
		v := scalarString(data[key])
		if v == "" {
			missing = append(missing, key)
			continue
		}
		values[key] = v
	}
	if len(missing) > 0 {
		return UpdateRequest{}, &ValidationError{Missing: missing}
	}

	req := UpdateRequest{FormID: values["formId"], Revision: values["revision"]}

	if raw, ok := data["status"]; ok && raw != nil {
		s, _ := raw.(string)
		status := types.SubmissionStatus(strings.ToUpper(strings.TrimSpace(s)))
		switch status {
		case types.SubmissionStatusPending, types.SubmissionStatusConfirmed, types.SubmissionStatusCancelled:
			req.Status = status
		default:
			return UpdateRequest{}, apierr.New(http.StatusBadRequest, "invalid_status", fmt.Errorf("invalid status %v", raw))
		}
	}
	if raw, ok := data["submissions"]; ok && raw != nil {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return UpdateRequest{}, apierr.New(http.StatusBadRequest, "invalid_submissions", fmt.Errorf("submissions must be an object"))
		}
		req.Values = m
	}
	return req, nil
}

// scalarString trims strings and formats JSON numbers; anything else counts
// as absent.
func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
