package handlers

import (
	"context"

	"github.com/serroba/link-tracker/internal/tracking"
)

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata captured for every visit.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Language  string
	Platform  string
	Referrer  string
}

// Client returns the visitor metadata stored with location records.
func (m RequestMeta) Client() tracking.ClientMeta {
	return tracking.ClientMeta{
		UserAgent: m.UserAgent,
		Language:  m.Language,
		Platform:  m.Platform,
	}
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}
