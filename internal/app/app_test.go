package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := defaultConfig()
	cfg.DB.Driver = "sqlite"
	cfg.DB.SQLitePath = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.InstanceID = "test"
	cfg.SeedFile = writeSeed(t, seedYAML)
	return cfg
}

func TestAppServesSeededData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := NewWithConfig(ctx, logger.Nop(), testConfig(t))
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	defer a.Close(context.Background())
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list without auth config: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success    bool `json:"success"`
		TotalCount int  `json:"totalCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || !body.Success || body.TotalCount != 2 {
		t.Fatalf("unexpected list %s (err=%v)", rec.Body.String(), err)
	}

	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "fd_api_requests_total") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestAppRequiresTokenWhenSecretSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "s3cret"

	a, err := NewWithConfig(ctx, logger.Nop(), cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	defer a.Close(ctx)

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	token, err := a.Services.Auth.IssueToken("caller-1", "")
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/view-settings/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token: %d %s", rec.Code, rec.Body.String())
	}
}
