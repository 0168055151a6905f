package session

import (
	"context"

	"github.com/angelmondragon/maison-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
)

const (
	SellerHomePath   = "/seller-dashboard.html"
	CustomerHomePath = "/"
)

// RedirectPath is where a user lands after signing in.
func (m *Manager) RedirectPath(ctx context.Context) string {
	user, err := m.CurrentUser(ctx)
	if err == nil && user.IsSeller() {
		return SellerHomePath
	}
	return CustomerHomePath
}

// RequireRole returns the current user when it holds role.
func (m *Manager) RequireRole(ctx context.Context, role enums.Role) (*User, error) {
	user, err := m.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in to continue")
	}
	if user.Role != role {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "access denied: "+string(role)+" account required").
			WithDetails(map[string]any{"role": string(user.Role), "required": string(role)})
	}
	return user, nil
}
