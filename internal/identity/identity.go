// Package identity resolves the identity of the caller of an entry operation.
package identity

import (
	"context"

	"github.com/roach88/wastelog/internal/waste"
)

// Anonymous is the identity used when a request carries none.
const Anonymous waste.Identity = "anonymous"

// Provider supplies the identity of the current caller. The returned value
// must be stable for the duration of one operation.
type Provider interface {
	Current(ctx context.Context) waste.Identity
}

// Static always returns the same identity. Used by the CLI, where the caller
// is whoever runs the command.
type Static waste.Identity

// Current returns the static identity.
func (s Static) Current(context.Context) waste.Identity {
	return waste.Identity(s)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id waste.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (waste.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(waste.Identity)
	return id, ok && id != ""
}

// ContextProvider reads the identity placed in the context by a transport
// (the HTTP auth middleware) and falls back to Fallback when there is none.
type ContextProvider struct {
	Fallback waste.Identity
}

// Current returns the request identity or the fallback.
func (p ContextProvider) Current(ctx context.Context) waste.Identity {
	if id, ok := FromContext(ctx); ok {
		return id
	}
	if p.Fallback != "" {
		return p.Fallback
	}
	return Anonymous
}
