package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	types "github.com/diabolofocus/form-displays-sub000/internal/domain"
	"github.com/diabolofocus/form-displays-sub000/internal/observability"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/apierr"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/elevation"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

// SubmissionListLimit caps ListSubmissions; there is no paging cursor.
const SubmissionListLimit = 1000

const CodeValidation = "validation_error"

// ProxyResult is what every proxy operation resolves to. Failures never
// escape as errors or panics.
type ProxyResult struct {
	Success     bool                    `json:"success"`
	Submission  *types.FormSubmission   `json:"submission,omitempty"`
	Submissions []*types.FormSubmission `json:"submissions,omitempty"`
	TotalCount  *int                    `json:"totalCount,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Code        string                  `json:"code,omitempty"`
	// Status is the transport status of the underlying failure, when it had one.
	Status int `json:"status,omitempty"`
}

// MarshalJSON writes an empty list as [] on list results.
func (r ProxyResult) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"success": r.Success}
	if r.Submission != nil {
		out["submission"] = r.Submission
	}
	if r.TotalCount != nil {
		items := r.Submissions
		if items == nil {
			items = []*types.FormSubmission{}
		}
		out["submissions"] = items
		out["totalCount"] = *r.TotalCount
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.Code != "" {
		out["code"] = r.Code
	}
	if r.Status != 0 {
		out["status"] = r.Status
	}
	return json.Marshal(out)
}

type SubmissionProxy interface {
	UpdateSubmission(ctx context.Context, submissionID string, data UpdateData) ProxyResult
	ListSubmissions(ctx context.Context) ProxyResult
	DeleteSubmission(ctx context.Context, submissionID string) ProxyResult
}

type updateCall struct {
	submissionID string
	data         UpdateData
	req          UpdateRequest
}

type submissionProxy struct {
	log     *logger.Logger
	metrics *observability.Metrics

	update func(context.Context, *updateCall) (*types.FormSubmission, error)
	list   func(context.Context, struct{}) ([]*types.FormSubmission, error)
	remove func(context.Context, string) (struct{}, error)
}

func NewSubmissionProxy(store SubmissionStore, log *logger.Logger, metrics *observability.Metrics) SubmissionProxy {
	p := &submissionProxy{
		log:     log.With("service", "SubmissionProxy"),
		metrics: metrics,
	}

	p.update = elevation.Guard(
		elevation.Scope{Origin: elevation.OriginPublic, Operation: "update_submission"},
		func(c *updateCall) error {
			req, err := parseUpdateData(c.data)
			if c.submissionID == "" {
				var ve *ValidationError
				if errors.As(err, &ve) {
					return &ValidationError{Missing: append([]string{"submissionId"}, ve.Missing...)}
				}
				return &ValidationError{Missing: []string{"submissionId"}}
			}
			if err != nil {
				return err
			}
			c.req = req
			return nil
		},
		func(ctx context.Context, c *updateCall) (*types.FormSubmission, error) {
			return store.UpdateSubmission(ctx, c.submissionID, c.req)
		},
	)
	p.list = elevation.Guard(
		elevation.Scope{Origin: elevation.OriginPublic, Operation: "list_submissions"},
		nil,
		func(ctx context.Context, _ struct{}) ([]*types.FormSubmission, error) {
			return store.ListSubmissions(ctx, types.SubmissionNamespace, SubmissionListLimit)
		},
	)
	p.remove = elevation.Guard(
		elevation.Scope{Origin: elevation.OriginPublic, Operation: "delete_submission"},
		validateSubmissionID,
		func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, store.DeleteSubmission(ctx, id)
		},
	)
	return p
}

func (p *submissionProxy) UpdateSubmission(ctx context.Context, submissionID string, data UpdateData) ProxyResult {
	return p.run(ctx, "update", submissionID, func(ctx context.Context) (ProxyResult, error) {
		row, err := p.update(ctx, &updateCall{submissionID: strings.TrimSpace(submissionID), data: data})
		if err != nil {
			return ProxyResult{}, err
		}
		return ProxyResult{Success: true, Submission: row}, nil
	})
}

func (p *submissionProxy) ListSubmissions(ctx context.Context) ProxyResult {
	return p.run(ctx, "list", "", func(ctx context.Context) (ProxyResult, error) {
		items, err := p.list(ctx, struct{}{})
		if err != nil {
			return ProxyResult{}, err
		}
		if items == nil {
			items = []*types.FormSubmission{}
		}
		n := len(items)
		return ProxyResult{Success: true, Submissions: items, TotalCount: &n}, nil
	})
}

func (p *submissionProxy) DeleteSubmission(ctx context.Context, submissionID string) ProxyResult {
	return p.run(ctx, "delete", submissionID, func(ctx context.Context) (ProxyResult, error) {
		if _, err := p.remove(ctx, strings.TrimSpace(submissionID)); err != nil {
			return ProxyResult{}, err
		}
		return ProxyResult{Success: true}, nil
	})
}

// run turns every error and panic from fn into a failed ProxyResult.
func (p *submissionProxy) run(ctx context.Context, op, submissionID string, fn func(ctx context.Context) (ProxyResult, error)) (res ProxyResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "SubmissionProxy."+op,
		attribute.String("submission.id", submissionID),
	)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("submission proxy panic", "operation", op, "submission_id", submissionID, "panic", r)
			res = failure(fmt.Errorf("internal error: %v", r))
		}
		if !res.Success {
			span.SetStatus(codes.Error, res.Error)
		}
		span.End()
		p.metrics.ObserveProxy(op, res.Success, time.Since(start))
	}()

	out, err := fn(ctx)
	if err != nil {
		res = failure(err)
		p.log.Warn("submission proxy call failed",
			"operation", op,
			"submission_id", submissionID,
			"status", res.Status,
			"error", err,
		)
		return res
	}
	return out
}

func failure(err error) ProxyResult {
	res := ProxyResult{Success: false, Error: err.Error()}
	var ve *ValidationError
	if errors.As(err, &ve) {
		res.Code = CodeValidation
		return res
	}
	res.Status = apierr.StatusOf(err)
	res.Code = apierr.CodeOf(err)
	return res
}

func validateSubmissionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Missing: []string{"submissionId"}}
	}
	return nil
}
