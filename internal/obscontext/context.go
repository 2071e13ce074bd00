// Package obscontext carries correlation identifiers across request scopes.
package obscontext

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type branchIDKey struct{}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithBranchID stores the branch identifier used for log correlation.
func WithBranchID(ctx context.Context, branchID string) context.Context {
	return context.WithValue(ctx, branchIDKey{}, strings.TrimSpace(branchID))
}

// BranchIDFromContext returns the branch identifier, or "".
func BranchIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(branchIDKey{}).(string); ok {
		return v
	}
	return ""
}
