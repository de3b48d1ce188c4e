// Package auth resolves caller credentials to an Identity and gates
// admin-only catalog operations.
package auth

import "context"

// Kind tags which variant an Identity holds.
type Kind int

const (
	KindAnonymous Kind = iota
	KindStudent
	KindAdmin
)

func (k Kind) String() string {
	switch k {
	case KindStudent:
		return "student"
	case KindAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// Identity is the resolved caller. Subject is the admin login id for
// KindAdmin, the student email for KindStudent and empty otherwise.
type Identity struct {
	Kind    Kind
	Subject string
}

// Anonymous is the identity of a caller without a valid credential.
func Anonymous() Identity { return Identity{Kind: KindAnonymous} }

// StudentIdentity identifies a student by email.
func StudentIdentity(email string) Identity { return Identity{Kind: KindStudent, Subject: email} }

// AdminIdentity identifies an admin by login id.
func AdminIdentity(loginID string) Identity { return Identity{Kind: KindAdmin, Subject: loginID} }

type identityKey struct{}

// WithIdentity stores the caller identity on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller identity, Anonymous when none was stored.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Anonymous()
}
