package api

import (
	"context"
	"net/http"

	"github.com/angelmondragon/maison-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
)

type wishBody struct {
	ProductID string `json:"product_id"`
}

// GetWishlist calls GET /wishlist.
func (c *Client) GetWishlist(ctx context.Context, token string) (cart.Wishlist, error) {
	var env wishlistEnvelope
	if err := c.do(ctx, request{endpoint: "wishlist_get", method: http.MethodGet, path: "/wishlist", token: token}, &env); err != nil {
		return cart.Wishlist{}, err
	}
	return env.canonical(), nil
}

var wishAddCodes = map[int]pkgerrors.Code{
	http.StatusConflict: pkgerrors.CodeAlreadyExists,
}

// AddToWishlist calls POST /wishlist. A 409 means the product is already wished.
func (c *Client) AddToWishlist(ctx context.Context, token, productID string) error {
	err := c.do(ctx, request{
		endpoint: "wishlist_add",
		method:   http.MethodPost,
		path:     "/wishlist",
		token:    token,
		body:     wishBody{ProductID: productID},
	}, nil)
	return remap(err, wishAddCodes)
}

// RemoveFromWishlist calls DELETE /wishlist/{productId}.
func (c *Client) RemoveFromWishlist(ctx context.Context, token, productID string) error {
	return c.do(ctx, request{
		endpoint: "wishlist_remove",
		method:   http.MethodDelete,
		path:     "/wishlist/" + escape(productID),
		token:    token,
	}, nil)
}
