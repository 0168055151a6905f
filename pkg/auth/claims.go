package auth

import (
	"github.com/angelmondragon/maison-storefront/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID string
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued by the storefront API.
type AccessTokenClaims struct {
	UserID string     `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}
