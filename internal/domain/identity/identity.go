package identity

import "context"

// Source tells where a request's identity came from
type Source string

const (
	SourceNone    Source = "none"
	SourceSession Source = "session"
	SourceBearer  Source = "bearer"
)

// Identity is the immutable per-request view of who is calling.
// It is resolved once per request and threaded through context.Context.
type Identity struct {
	Source      Source
	SessionID   string // set only for SourceSession
	UserID      string
	Email       string
	Role        string
	AccessToken string
}

// Anonymous returns the identity of an unauthenticated request
func Anonymous() Identity {
	return Identity{Source: SourceNone}
}

// Authenticated reports whether the identity carries a usable access token
func (i Identity) Authenticated() bool {
	return i.Source != SourceNone && i.Source != "" && i.AccessToken != ""
}

type identityKey struct{}

// WithIdentity returns a context carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, or Anonymous
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Anonymous()
}
