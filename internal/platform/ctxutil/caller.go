package ctxutil

import "context"

type callerDataKey struct{}

// CallerData identifies the platform-authenticated caller of a request.
// It carries no privilege; elevation is tracked separately.
type CallerData struct {
	CallerID   string
	InstanceID string
}

func WithCallerData(ctx context.Context, cd *CallerData) context.Context {
	return context.WithValue(ctx, callerDataKey{}, cd)
}

func GetCallerData(ctx context.Context) *CallerData {
	if cd, ok := ctx.Value(callerDataKey{}).(*CallerData); ok {
		return cd
	}
	return nil
}
