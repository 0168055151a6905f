package api

import (
	"context"
	"net/http"

	"github.com/angelmondragon/maison-storefront/internal/cart"
)

type addToCartBody struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

// GetCart calls GET /cart.
func (c *Client) GetCart(ctx context.Context, token string) (cart.Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, request{endpoint: "cart_get", method: http.MethodGet, path: "/cart", token: token}, &env); err != nil {
		return cart.Cart{}, err
	}
	out, _ := env.canonical()
	return out, nil
}

// AddToCart calls POST /cart. The returned cart is nil when the server
// answered with a message only.
func (c *Client) AddToCart(ctx context.Context, token, productID string, qty int) (*cart.Cart, error) {
	return c.cartMutation(ctx, request{
		endpoint: "cart_add",
		method:   http.MethodPost,
		path:     "/cart",
		token:    token,
		body:     addToCartBody{ProductID: productID, Quantity: qty},
	})
}

// UpdateCartLine calls PUT /cart/{lineId}.
func (c *Client) UpdateCartLine(ctx context.Context, token, lineID string, qty int) (*cart.Cart, error) {
	return c.cartMutation(ctx, request{
		endpoint: "cart_update",
		method:   http.MethodPut,
		path:     "/cart/" + escape(lineID),
		token:    token,
		body:     quantityBody{Quantity: qty},
	})
}

// RemoveCartLine calls DELETE /cart/{lineId}.
func (c *Client) RemoveCartLine(ctx context.Context, token, lineID string) (*cart.Cart, error) {
	return c.cartMutation(ctx, request{
		endpoint: "cart_remove",
		method:   http.MethodDelete,
		path:     "/cart/" + escape(lineID),
		token:    token,
	})
}

// ClearCart calls DELETE /cart.
func (c *Client) ClearCart(ctx context.Context, token string) (*cart.Cart, error) {
	return c.cartMutation(ctx, request{
		endpoint: "cart_clear",
		method:   http.MethodDelete,
		path:     "/cart",
		token:    token,
	})
}

func (c *Client) cartMutation(ctx context.Context, r request) (*cart.Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	out, ok := env.canonical()
	if !ok {
		return nil, nil
	}
	return &out, nil
}
