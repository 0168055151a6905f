package api

import (
	"context"
	"net/http"

	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// User is the user record as sent by the auth endpoints.
type User struct {
	ID         string
	Username   string
	Email      string
	FullName   string
	Role       string
	SellerID   string
	CustomerID string
}

type wireUser struct {
	ID         flexID `json:"id"`
	MongoID    flexID `json:"_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	SellerID   flexID `json:"seller_id"`
	CustomerID flexID `json:"customer_id"`
}

func (w wireUser) user() User {
	return User{
		ID:         firstID(w.ID, w.MongoID),
		Username:   w.Username,
		Email:      w.Email,
		FullName:   w.FullName,
		Role:       w.Role,
		SellerID:   firstID(w.SellerID),
		CustomerID: firstID(w.CustomerID),
	}
}

// AuthResponse carries the issued bearer token and the user it belongs to.
type AuthResponse struct {
	AccessToken string
	User        User
}

type wireAuth struct {
	AccessToken string   `json:"access_token"`
	Token       string   `json:"token"`
	User        wireUser `json:"user"`
}

func (w wireAuth) response() (*AuthResponse, error) {
	token := firstNonEmpty(w.AccessToken, w.Token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeServer, "the store did not issue a session token")
	}
	return &AuthResponse{AccessToken: token, User: w.User.user()}, nil
}

var loginCodes = map[int]pkgerrors.Code{
	http.StatusBadRequest:   pkgerrors.CodeInvalidCredentials,
	http.StatusUnauthorized: pkgerrors.CodeInvalidCredentials,
	http.StatusForbidden:    pkgerrors.CodeInvalidCredentials,
	http.StatusNotFound:     pkgerrors.CodeInvalidCredentials,
}

var registerCodes = map[int]pkgerrors.Code{
	http.StatusBadRequest:          pkgerrors.CodeValidation,
	http.StatusUnprocessableEntity: pkgerrors.CodeValidation,
	http.StatusConflict:            pkgerrors.CodeConflict,
}

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out wireAuth
	err := c.do(ctx, request{endpoint: "auth_login", method: http.MethodPost, path: "/auth/login", body: req}, &out)
	if err != nil {
		return nil, remap(err, loginCodes)
	}
	return out.response()
}

// Register calls POST /auth/register.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out wireAuth
	err := c.do(ctx, request{endpoint: "auth_register", method: http.MethodPost, path: "/auth/register", body: req}, &out)
	if err != nil {
		return nil, remap(err, registerCodes)
	}
	return out.response()
}

// Me calls GET /auth/me.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out wireUser
	if err := c.do(ctx, request{endpoint: "auth_me", method: http.MethodGet, path: "/auth/me", token: token}, &out); err != nil {
		return nil, err
	}
	u := out.user()
	return &u, nil
}
