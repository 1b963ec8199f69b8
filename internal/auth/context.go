package auth

import "context"

type contextKey struct{}

// Identity is the resolved caller identity for one request. Exactly one of
// the two shapes is populated: a validated session (Email set, Entitlements
// derived) or a guest (GuestID set).
type Identity struct {
	Email        string
	GuestID      string
	SessionToken string
	Entitlements Entitlements
}

// IsAuthenticated reports whether the request carried a valid session.
func (id Identity) IsAuthenticated() bool {
	return id.Email != ""
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// Email returns the authenticated email, or "" for guests.
func Email(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return id.Email
}

// IsPro reports whether the caller holds an active subscription.
func IsPro(ctx context.Context) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return id.Entitlements.Pro
}
