// Package elevation marks a context as running with more trust than the
// caller's own. Only Guard and Run attach a scope, and stores that mutate
// or read submissions refuse contexts without one.
package elevation

import (
	"context"
	"errors"
	"strings"

	"github.com/diabolofocus/form-displays-sub000/internal/platform/apierr"
)

type Origin string

const (
	// OriginPublic is used for calls that arrive from an anonymous or
	// site-visitor context and are raised to app trust.
	OriginPublic Origin = "public"
	// OriginSystem is used by the process itself (seeding, maintenance).
	OriginSystem Origin = "system"
)

type Scope struct {
	Origin    Origin
	Operation string
}

var ErrNotElevated = errors.New("operation requires elevated trust")

type scopeKey struct{}

func FromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}

// Require returns a 403 *apierr.Error when ctx carries no elevation scope.
func Require(ctx context.Context) error {
	if _, ok := FromContext(ctx); ok {
		return nil
	}
	return apierr.Forbidden(ErrNotElevated)
}

// Guard returns the unprivileged entry point for call. validate runs on the
// caller's own context; only when it passes is call invoked with the scope
// attached.
func Guard[Req, Res any](scope Scope, validate func(Req) error, call func(context.Context, Req) (Res, error)) func(context.Context, Req) (Res, error) {
	return func(ctx context.Context, req Req) (Res, error) {
		var zero Res
		if validate != nil {
			if err := validate(req); err != nil {
				return zero, err
			}
		}
		return call(withScope(ctx, scope), req)
	}
}

// Run executes fn under scope. It is meant for requests that carry no
// outside input to validate.
func Run(ctx context.Context, scope Scope, fn func(ctx context.Context) error) error {
	return fn(withScope(ctx, scope))
}

func withScope(ctx context.Context, scope Scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(string(scope.Origin)) == "" {
		scope.Origin = OriginPublic
	}
	return context.WithValue(ctx, scopeKey{}, scope)
}
