package utils

import (
	"context"

	"github.com/google/uuid"
)

type rqIDKey struct{}

func GetRequestIDFromCtx(ctx context.Context) string {
	rqID, ok := ctx.Value(rqIDKey{}).(string)
	if !ok {
		return ""
	}
	return rqID
}

// CtxWithRqID attaches a fresh request ID unless the context already has one.
func CtxWithRqID(ctx context.Context) context.Context {
	if _, ok := ctx.Value(rqIDKey{}).(string); ok {
		return ctx
	}
	return context.WithValue(ctx, rqIDKey{}, uuid.NewString())
}
