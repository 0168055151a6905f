package session

import (
	"github.com/angelmondragon/maison-storefront/internal/api"
	"github.com/angelmondragon/maison-storefront/pkg/enums"
)

// User is the persisted record of the signed-in account.
type User struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name,omitempty"`
	Role       enums.Role `json:"role"`
	SellerID   string     `json:"seller_id,omitempty"`
	CustomerID string     `json:"customer_id,omitempty"`
}

// IsSeller reports whether the account is a seller.
func (u *User) IsSeller() bool {
	return u != nil && u.Role == enums.RoleSeller
}

// userFromAPI maps the server record. fallback is the role requested at
// registration, used when the server omits one; otherwise customer.
func userFromAPI(in api.User, fallback enums.Role) *User {
	role := enums.RoleOrDefault(in.Role)
	if in.Role == "" && fallback.IsValid() {
		role = fallback
	}
	return &User{
		ID:         in.ID,
		Username:   in.Username,
		Email:      in.Email,
		FullName:   in.FullName,
		Role:       role,
		SellerID:   in.SellerID,
		CustomerID: in.CustomerID,
	}
}

// Session is the token and user pair; both are present or both absent.
type Session struct {
	Token string
	User  *User
}

// Authenticated reports whether a token is held.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Event is broadcast on login and logout.
type Event struct {
	Kind enums.SessionEventKind
	User *User
}

// Credentials are the final login credentials. Any second factor has
// already been completed by the caller.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Registration struct {
	Username string     `json:"username" validate:"required,min=3,max=50"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	FullName string     `json:"full_name" validate:"max=120"`
	Role     enums.Role `json:"role" validate:"omitempty,oneof=customer seller"`
}

// Invalidation reasons, used as metric labels.
const (
	ReasonUnauthorized  = "unauthorized"
	ReasonExpired       = "expired"
	ReasonLogout        = "logout"
	ReasonLoginRollback = "login_rollback"
)
