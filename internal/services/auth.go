package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/diabolofocus/form-displays-sub000/internal/platform/ctxutil"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

// CallerClaims is the platform token a dashboard request carries. It names
// the caller; it grants no elevated trust.
type CallerClaims struct {
	InstanceID string `json:"instanceId,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueToken(callerID, instanceID string) (string, error)
}

type authService struct {
	log       *logger.Logger
	secret    []byte
	issuer    string
	accessTTL time.Duration
}

func NewAuthService(log *logger.Logger, secret, issuer string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &authService{
		log:       log.With("service", "AuthService"),
		secret:    []byte(secret),
		issuer:    strings.TrimSpace(issuer),
		accessTTL: accessTTL,
	}
}

func (as *authService) IssueToken(callerID, instanceID string) (string, error) {
	if strings.TrimSpace(callerID) == "" {
		return "", errors.New("caller id required")
	}
	now := time.Now()
	claims := CallerClaims{
		InstanceID: instanceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   callerID,
			Issuer:    as.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.secret)
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, errors.New("missing token")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if as.issuer != "" {
		opts = append(opts, jwt.WithIssuer(as.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &CallerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.secret, nil
	}, opts...)
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*CallerClaims)
	if !ok || !parsed.Valid {
		return ctx, errors.New("invalid or expired token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return ctx, errors.New("token has no subject")
	}
	return ctxutil.WithCallerData(ctx, &ctxutil.CallerData{
		CallerID:   claims.Subject,
		InstanceID: claims.InstanceID,
	}), nil
}
