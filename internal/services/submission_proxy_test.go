package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/diabolofocus/form-displays-sub000/internal/data/repos"
	"github.com/diabolofocus/form-displays-sub000/internal/data/repos/testutil"
	types "github.com/diabolofocus/form-displays-sub000/internal/domain"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/apierr"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/dbctx"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/elevation"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type stubStore struct {
	calls    int
	elevated bool
	scope    elevation.Scope
	lastReq  UpdateRequest

	updateErr error
	listErr   error
	deleteErr error
	items     []*types.FormSubmission
	panicOn   string
}

func (s *stubStore) observe(ctx context.Context, op string) {
	s.calls++
	s.scope, s.elevated = elevation.FromContext(ctx)
	if s.panicOn == op {
		panic("store exploded")
	}
}

func (s *stubStore) UpdateSubmission(ctx context.Context, id string, req UpdateRequest) (*types.FormSubmission, error) {
	s.observe(ctx, "update")
	s.lastReq = req
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &types.FormSubmission{ID: id, FormID: req.FormID, Revision: "2"}, nil
}

func (s *stubStore) ListSubmissions(ctx context.Context, namespace string, limit int) ([]*types.FormSubmission, error) {
	s.observe(ctx, "list")
	return s.items, s.listErr
}

func (s *stubStore) DeleteSubmission(ctx context.Context, id string) error {
	s.observe(ctx, "delete")
	return s.deleteErr
}

func newProxy(store SubmissionStore) SubmissionProxy {
	return NewSubmissionProxy(store, logger.Nop(), nil)
}

func TestUpdateSubmissionListsEveryMissingField(t *testing.T) {
	store := &stubStore{}
	res := newProxy(store).UpdateSubmission(context.Background(), "sub-1", UpdateData{"formId": "", "revision": "  "})

	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "formId") || !strings.Contains(res.Error, "revision") {
		t.Fatalf("error should name both fields, got %q", res.Error)
	}
	if res.Error != "missing required fields: formId, revision" {
		t.Fatalf("unexpected message %q", res.Error)
	}
	if res.Code != CodeValidation || res.Status != 0 {
		t.Fatalf("unexpected code/status %q/%d", res.Code, res.Status)
	}
	if store.calls != 0 {
		t.Fatalf("store called %d times despite failed validation", store.calls)
	}

	res = newProxy(store).UpdateSubmission(context.Background(), " ", UpdateData{"revision": "1"})
	if res.Error != "missing required fields: submissionId, formId" {
		t.Fatalf("unexpected message %q", res.Error)
	}
}

func TestUpdateSubmissionRunsElevated(t *testing.T) {
	store := &stubStore{}
	res := newProxy(store).UpdateSubmission(context.Background(), "sub-1", UpdateData{
		"formId":      " form-a ",
		"revision":    float64(3),
		"status":      "confirmed",
		"submissions": map[string]interface{}{"note": "hi"},
	})
	if !res.Success || res.Submission == nil || res.Submission.ID != "sub-1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !store.elevated || store.scope.Origin != elevation.OriginPublic {
		t.Fatalf("store not called elevated: %+v", store.scope)
	}
	want := UpdateRequest{FormID: "form-a", Revision: "3", Status: types.SubmissionStatusConfirmed, Values: map[string]interface{}{"note": "hi"}}
	if store.lastReq.FormID != want.FormID || store.lastReq.Revision != want.Revision || store.lastReq.Status != want.Status || store.lastReq.Values["note"] != "hi" {
		t.Fatalf("request got=%+v want=%+v", store.lastReq, want)
	}

	bad := newProxy(store).UpdateSubmission(context.Background(), "sub-1", UpdateData{"formId": "f", "revision": "1", "status": "ARCHIVED"})
	if bad.Success || bad.Status != http.StatusBadRequest || bad.Code != "invalid_status" {
		t.Fatalf("expected invalid_status, got %+v", bad)
	}
}

func TestUpdateSubmissionKeepsTransportStatus(t *testing.T) {
	store := &stubStore{updateErr: apierr.Forbidden(errors.New("permission denied"))}
	res := newProxy(store).UpdateSubmission(context.Background(), "sub-1", UpdateData{"formId": "f", "revision": "1"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Status != http.StatusForbidden || res.Error != "permission denied" {
		t.Fatalf("unexpected result %+v", res)
	}

	wrapped := &stubStore{updateErr: errors.Join(errors.New("update failed"), apierr.Conflict(errors.New("stale revision")))}
	res = newProxy(wrapped).UpdateSubmission(context.Background(), "sub-1", UpdateData{"formId": "f", "revision": "1"})
	if res.Status != http.StatusConflict {
		t.Fatalf("nested status not surfaced: %+v", res)
	}

	plain := &stubStore{updateErr: errors.New("network down")}
	res = newProxy(plain).UpdateSubmission(context.Background(), "sub-1", UpdateData{"formId": "f", "revision": "1"})
	if res.Success || res.Status != 0 || res.Error != "network down" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestProxyRecoversPanics(t *testing.T) {
	for _, op := range []string{"update", "list", "delete"} {
		store := &stubStore{panicOn: op}
		p := newProxy(store)
		var res ProxyResult
		switch op {
		case "update":
			res = p.UpdateSubmission(context.Background(), "s", UpdateData{"formId": "f", "revision": "1"})
		case "list":
			res = p.ListSubmissions(context.Background())
		case "delete":
			res = p.DeleteSubmission(context.Background(), "s")
		}
		if res.Success || !strings.Contains(res.Error, "store exploded") {
			t.Fatalf("%s: unexpected result %+v", op, res)
		}
	}
}

func TestListSubmissionsEnvelope(t *testing.T) {
	res := newProxy(&stubStore{}).ListSubmissions(context.Background())
	if !res.Success || res.TotalCount == nil || *res.TotalCount != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"submissions":[],"success":true,"totalCount":0}` {
		t.Fatalf("unexpected json %s", raw)
	}

	res = newProxy(&stubStore{listErr: errors.New("boom")}).ListSubmissions(context.Background())
	if res.Success || res.Error != "boom" || res.TotalCount != nil {
		t.Fatalf("unexpected failure result %+v", res)
	}
}

func TestDeleteSubmission(t *testing.T) {
	store := &stubStore{}
	if res := newProxy(store).DeleteSubmission(context.Background(), "s-1"); !res.Success {
		t.Fatalf("unexpected result %+v", res)
	}
	if !store.elevated {
		t.Fatal("delete not elevated")
	}

	res := newProxy(&stubStore{deleteErr: apierr.NotFound(errors.New("submission not found"))}).DeleteSubmission(context.Background(), "s-1")
	if res.Success || res.Status != http.StatusNotFound {
		t.Fatalf("unexpected result %+v", res)
	}

	empty := &stubStore{}
	res = newProxy(empty).DeleteSubmission(context.Background(), "")
	if res.Success || res.Code != CodeValidation || empty.calls != 0 {
		t.Fatalf("blank id should fail validation: %+v calls=%d", res, empty.calls)
	}
}

func TestListSubmissionsAgainstDatabase(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewSubmissionRepo(gdb, log)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]*types.FormSubmission, 0, 1510)
	for i := 0; i < 1500; i++ {
		rows = append(rows, &types.FormSubmission{FormID: "form-a", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	for i := 0; i < 10; i++ {
		rows = append(rows, &types.FormSubmission{FormID: "form-x", Namespace: "other.app", CreatedAt: base.Add(time.Hour * 1000)})
	}
	err := elevation.Run(context.Background(), elevation.Scope{Origin: elevation.OriginSystem, Operation: "seed"}, func(ctx context.Context) error {
		_, err := repo.Create(dbctx.Context{Ctx: ctx}, rows)
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	res := NewSubmissionProxy(NewSubmissionStore(repo), log, nil).ListSubmissions(context.Background())
	if !res.Success {
		t.Fatalf("list failed: %+v", res)
	}
	if len(res.Submissions) != SubmissionListLimit || *res.TotalCount != SubmissionListLimit {
		t.Fatalf("got %d items (totalCount %d), want %d", len(res.Submissions), *res.TotalCount, SubmissionListLimit)
	}
	for i := 1; i < len(res.Submissions); i++ {
		if res.Submissions[i].CreatedAt.After(res.Submissions[i-1].CreatedAt) {
			t.Fatalf("not ordered by created_at desc at %d", i)
		}
	}
	for _, s := range res.Submissions {
		if s.Namespace != types.SubmissionNamespace {
			t.Fatalf("foreign namespace leaked: %+v", s)
		}
	}
	if !res.Submissions[0].CreatedAt.Equal(base.Add(1499 * time.Minute)) {
		t.Fatalf("newest first expected, got %v", res.Submissions[0].CreatedAt)
	}
}
