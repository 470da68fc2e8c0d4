package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/diabolofocus/form-displays-sub000/internal/data/repos"
	"github.com/diabolofocus/form-displays-sub000/internal/data/repos/testutil"
	"github.com/diabolofocus/form-displays-sub000/internal/data/repos/viewsettings"
	types "github.com/diabolofocus/form-displays-sub000/internal/domain"
	httpH "github.com/diabolofocus/form-displays-sub000/internal/http/handlers"
	httpMW "github.com/diabolofocus/form-displays-sub000/internal/http/middleware"
	"github.com/diabolofocus/form-displays-sub000/internal/observability"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/dbctx"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/elevation"
	"github.com/diabolofocus/form-displays-sub000/internal/services"
	"github.com/diabolofocus/form-displays-sub000/internal/viewconfig"
)

type testServer struct {
	engine *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	formRepo := repos.NewFormRepo(gdb, log)
	subRepo := repos.NewSubmissionRepo(gdb, log)
	vsRepo := repos.NewViewSettingsRepo(gdb, log)

	err := formRepo.Upsert(dbctx.Context{Ctx: ctx}, []*types.Form{{
		ID:        "contact",
		Name:      "Contact us",
		Namespace: types.SubmissionNamespace,
		Fields:    []types.FormField{{Key: "name", Label: "Name"}, {Key: "email", Label: "Email"}},
	}})
	if err != nil {
		t.Fatalf("seed forms: %v", err)
	}
	err = elevation.Run(ctx, elevation.Scope{Origin: elevation.OriginSystem, Operation: "seed"}, func(ctx context.Context) error {
		_, err := subRepo.Create(dbctx.Context{Ctx: ctx}, []*types.FormSubmission{
			{ID: "s-1", FormID: "contact", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Submissions: map[string]interface{}{"name": "Ada"}},
			{ID: "s-2", FormID: "contact", CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed submissions: %v", err)
	}

	metrics := observability.NewMetrics()
	catalog := services.NewFormCatalog(formRepo)
	store := viewconfig.NewStore(viewsettings.NewStoreBackend(vsRepo), log)
	auth := services.NewAuthService(log, "test-secret", "", time.Minute)
	token, err := auth.IssueToken("caller-1", "")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	engine := NewRouter(RouterConfig{
		Log:                 log,
		Metrics:             metrics,
		AuthMiddleware:      httpMW.NewAuthMiddleware(log, auth),
		HealthHandler:       httpH.NewHealthHandler(nil),
		SubmissionHandler:   httpH.NewSubmissionHandler(log, services.NewSubmissionProxy(services.NewSubmissionStore(subRepo), log, metrics)),
		FormNamesHandler:    httpH.NewFormNamesHandler(services.NewFormNames(services.NewFormNameResolver(catalog), log, metrics)),
		ViewSettingsHandler: httpH.NewViewSettingsHandler(services.NewViewSettingsService(store, catalog, log, metrics)),
	})
	return &testServer{engine: engine, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: got %d", rec.Code)
	}
}

func TestSubmissionRoutes(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/submissions", nil)
	if rec.Code != http.StatusOK || body["success"] != true || body["totalCount"] != float64(2) {
		t.Fatalf("list: %d %v", rec.Code, body)
	}
	items := body["submissions"].([]interface{})
	if first := items[0].(map[string]interface{}); first["id"] != "s-2" {
		t.Fatalf("list not newest first: %v", items)
	}

	rec, body = s.do(t, http.MethodPatch, "/api/submissions/s-1", map[string]interface{}{"formId": " ", "revision": ""})
	if rec.Code != http.StatusBadRequest || body["error"] != "missing required fields: formId, revision" {
		t.Fatalf("validation: %d %v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodPatch, "/api/submissions/s-1", map[string]interface{}{
		"formId": "contact", "revision": "1", "submissions": map[string]interface{}{"email": "ada@example.com"},
	})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("update: %d %v", rec.Code, body)
	}
	sub := body["submission"].(map[string]interface{})
	if sub["revision"] != "2" || sub["submissions"].(map[string]interface{})["name"] != "Ada" {
		t.Fatalf("update result: %v", sub)
	}

	rec, body = s.do(t, http.MethodPatch, "/api/submissions/s-1", map[string]interface{}{"formId": "contact", "revision": "1"})
	if rec.Code != http.StatusConflict || body["success"] != false || body["status"] != float64(http.StatusConflict) {
		t.Fatalf("stale update: %d %v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodDelete, "/api/submissions/s-2", nil)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("delete: %d %v", rec.Code, body)
	}
	rec, body = s.do(t, http.MethodDelete, "/api/submissions/s-2", nil)
	if rec.Code != http.StatusNotFound || body["success"] != false {
		t.Fatalf("delete again: %d %v", rec.Code, body)
	}
}

func TestFormNamesRoute(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(t, http.MethodGet, "/api/forms/names?ids=contact&ids=ghost", nil)
	if rec.Code != http.StatusOK || body["fellBack"] != false {
		t.Fatalf("names: %d %v", rec.Code, body)
	}
	names := body["names"].(map[string]interface{})
	if names["contact"] != "Contact us" || names["ghost"] != "ghost" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestViewSettingsRoutes(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/forms/contact/columns", nil)
	if rec.Code != http.StatusOK || len(body["columns"].([]interface{})) != 2 {
		t.Fatalf("columns: %d %v", rec.Code, body)
	}

	rec, _ = s.do(t, http.MethodPatch, "/api/forms/contact/columns/name", map[string]interface{}{"visible": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("hide column: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = s.do(t, http.MethodPatch, "/api/forms/contact/columns/name", map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing visible: got %d", rec.Code)
	}

	rec, body = s.do(t, http.MethodGet, "/api/forms/contact/columns", nil)
	cols := body["columns"].([]interface{})
	if rec.Code != http.StatusOK || len(cols) != 1 || cols[0].(map[string]interface{})["fieldName"] != "email" {
		t.Fatalf("visible columns: %d %v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodGet, "/api/view-settings/status", nil)
	status := body["status"].(map[string]interface{})
	if rec.Code != http.StatusOK || len(status["dirtyFormIds"].([]interface{})) != 1 {
		t.Fatalf("status: %d %v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodPost, "/api/view-settings/save", nil)
	status = body["status"].(map[string]interface{})
	if rec.Code != http.StatusOK || len(status["dirtyFormIds"].([]interface{})) != 0 {
		t.Fatalf("save: %d %v", rec.Code, body)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/forms/selected/view-settings", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("selected alias without selection: got %d", rec.Code)
	}
	rec, body = s.do(t, http.MethodPut, "/api/selected-form", map[string]interface{}{"formId": "contact"})
	if rec.Code != http.StatusOK || body["changed"] != true {
		t.Fatalf("select: %d %v", rec.Code, body)
	}
	rec, body = s.do(t, http.MethodPut, "/api/forms/selected/columns/order", map[string]interface{}{"fieldNames": []string{"email", "name"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder: %d %v", rec.Code, body)
	}
	settings := body["settings"].(map[string]interface{})
	first := settings["columns"].([]interface{})[0].(map[string]interface{})
	if first["fieldName"] != "email" || settings["formId"] != "contact" {
		t.Fatalf("reorder result: %v", settings)
	}

	rec, body = s.do(t, http.MethodPost, "/api/forms/contact/view-settings/reset", nil)
	settings = body["settings"].(map[string]interface{})
	first = settings["columns"].([]interface{})[0].(map[string]interface{})
	if rec.Code != http.StatusOK || first["fieldName"] != "name" || first["visible"] != true {
		t.Fatalf("reset: %d %v", rec.Code, body)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/forms/ghost/view-settings", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown form: got %d", rec.Code)
	}
}
