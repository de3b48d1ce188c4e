package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/onlinecourse/catalog/internal/model"
)

// AdminFinder looks up admin records. It returns model.ErrNotFound when the
// login id is unknown.
type AdminFinder interface {
	FindAdmin(ctx context.Context, loginID string) (*model.Admin, error)
}

// RequireAdmin succeeds only for an admin identity whose record still exists.
// Every other case is model.ErrPermissionDenied; store failures pass through.
func RequireAdmin(ctx context.Context, id Identity, admins AdminFinder) (*model.Admin, error) {
	switch id.Kind {
	case KindAdmin:
		admin, err := admins.FindAdmin(ctx, id.Subject)
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown admin %q", model.ErrPermissionDenied, id.Subject)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve admin: %w", err)
		}
		return admin, nil
	case KindStudent:
		return nil, fmt.Errorf("%w: students cannot modify the catalog", model.ErrPermissionDenied)
	case KindAnonymous:
		return nil, fmt.Errorf("%w: authentication required", model.ErrPermissionDenied)
	default:
		return nil, fmt.Errorf("%w: unrecognized identity", model.ErrPermissionDenied)
	}
}
