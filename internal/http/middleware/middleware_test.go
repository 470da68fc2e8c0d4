package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/diabolofocus/form-displays-sub000/internal/observability"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/ctxutil"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type fakeAuth struct{}

func (fakeAuth) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	switch token {
	case "good":
		return ctxutil.WithCallerData(ctx, &ctxutil.CallerData{CallerID: "caller-1"}), nil
	case "anonymous":
		return ctx, nil
	default:
		return ctx, errors.New("bad token")
	}
}

func (fakeAuth) IssueToken(callerID, instanceID string) (string, error) { return "good", nil }

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.Nop(), fakeAuth{}).RequireAuth())
	r.GET("/api/x", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.GetCallerData(c.Request.Context()).CallerID)
	})

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "bad", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "no caller", header: "Bearer anonymous", want: http.StatusForbidden},
		{name: "header", header: "bearer good", want: http.StatusOK},
		{name: "query token ignored", query: "?token=good", want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/x"+tc.query, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: status got=%d want=%d body=%s", tc.name, rec.Code, tc.want, rec.Body.String())
		}
		if tc.want == http.StatusOK && rec.Body.String() != "caller-1" {
			t.Fatalf("%s: caller not attached: %q", tc.name, rec.Body.String())
		}
	}
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		td := ctxutil.GetTraceData(c.Request.Context())
		c.String(http.StatusOK, td.RequestID)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != "req-123" || rec.Header().Get(headerRequestID) != "req-123" {
		t.Fatalf("inbound request id not reused: body=%q header=%q", rec.Body.String(), rec.Header().Get(headerRequestID))
	}
	if rec.Header().Get(headerTraceID) == "" {
		t.Fatal("trace id not set")
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, strings.Repeat("a", maxInboundIDLen+1))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(headerRequestID); len(got) > maxInboundIDLen || got == "" {
		t.Fatalf("oversized request id should be replaced, got %q", got)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/forms/:formId/columns", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/api/forms/a/columns", "/api/forms/b/columns", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `fd_api_requests_total{method="GET",route="/api/forms/:formId/columns",status="200"} 2`) {
		t.Fatalf("route series missing:\n%s", body)
	}
	if !strings.Contains(body, `route="unmatched"`) {
		t.Fatalf("unmatched series missing:\n%s", body)
	}
}
