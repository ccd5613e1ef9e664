package model

import "context"

// Role names, matching the original user table values.
const (
	RoleAdmin     = "admin"
	RoleCompany   = "company"
	RoleCandidate = "user"
)

// Identity is the caller attached to a request. It is a value and never mutated.
type Identity struct {
	UserID string
	Role   string
}

// CanManageProjects reports whether the identity may define projects and read rankings.
func (i Identity) CanManageProjects() bool {
	return i.Role == RoleAdmin || i.Role == RoleCompany
}

// IsCandidate reports whether the identity submits ratings.
func (i Identity) IsCandidate() bool {
	return i.Role == RoleCandidate
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom extracts the identity from ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
