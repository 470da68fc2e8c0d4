package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/diabolofocus/form-displays-sub000/internal/platform/ctxutil"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	as := NewAuthService(logger.Nop(), "secret", "forms-dashboard", time.Minute)
	token, err := as.IssueToken("caller-1", "inst-9")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	ctx, err := as.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	cd := ctxutil.GetCallerData(ctx)
	if cd == nil || cd.CallerID != "caller-1" || cd.InstanceID != "inst-9" {
		t.Fatalf("unexpected caller data %+v", cd)
	}
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	as := NewAuthService(logger.Nop(), "secret", "forms-dashboard", time.Minute)

	other, _ := NewAuthService(logger.Nop(), "other-secret", "forms-dashboard", time.Minute).IssueToken("c", "")
	wrongIssuer, _ := NewAuthService(logger.Nop(), "secret", "someone-else", time.Minute).IssueToken("c", "")
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, CallerClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "c",
		Issuer:    "forms-dashboard",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}).SignedString([]byte("secret"))
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, CallerClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer: "forms-dashboard",
	}}).SignedString([]byte("secret"))

	for name, tok := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong secret": other,
		"wrong issuer": wrongIssuer,
		"expired":      expired,
		"no subject":   noSubject,
	} {
		if _, err := as.SetContextFromToken(context.Background(), tok); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
