package account

import (
	"context"

	"github.com/angelmondragon/maison-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
)

// Cart fetches the account cart.
func (c *Client) Cart(ctx context.Context) (cart.Cart, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return cart.Cart{}, err
	}
	return c.fetchCart(ctx, token)
}

func (c *Client) fetchCart(ctx context.Context, token string) (cart.Cart, error) {
	fresh, err := c.api.GetCart(ctx, token)
	if err != nil {
		c.rejected(ctx, token, err)
		return cart.Cart{}, err
	}
	return c.storeCart(fresh), nil
}

// settle returns the cart carried by a mutation response, or refetches it
// when the server answered with a message only.
func (c *Client) settle(ctx context.Context, token string, resp *cart.Cart) (cart.Cart, error) {
	if resp != nil {
		return c.storeCart(*resp), nil
	}
	return c.fetchCart(ctx, token)
}

// AddItem adds qty units of product. The line cap is checked against the
// cached cart, fetched first when nothing is cached. A session rejected by
// the server lands the add in the guest cart instead of losing it.
func (c *Client) AddItem(ctx context.Context, product cart.ProductSnapshot, qty int) (cart.Cart, error) {
	if product.ID == "" {
		return cart.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty < 1 {
		return cart.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	token, err := c.token(ctx)
	if err != nil {
		return cart.Cart{}, err
	}
	if token == "" {
		return c.addAsGuest(ctx, product, qty)
	}

	if qty > cart.MaxQuantity {
		current, _ := c.cachedCart()
		return current, cart.QuantityExceeded(qty)
	}
	current, ok := c.cachedCart()
	if !ok {
		current, err = c.fetchCart(ctx, token)
		if err != nil {
			if pkgerrors.EndsSession(err) {
				return c.addAsGuest(ctx, product, qty)
			}
			return cart.Cart{}, err
		}
	}
	existing := 0
	if idx := current.IndexOfProduct(product.ID); idx >= 0 {
		existing = current.Lines[idx].Quantity
	}
	if existing+qty > cart.MaxQuantity {
		return current, cart.QuantityExceeded(existing + qty)
	}

	resp, err := c.api.AddToCart(ctx, token, product.ID, qty)
	if err != nil {
		if c.rejected(ctx, token, err) {
			return c.addAsGuest(ctx, product, qty)
		}
		return cart.Cart{}, err
	}
	return c.settle(ctx, token, resp)
}

func (c *Client) addAsGuest(ctx context.Context, product cart.ProductSnapshot, qty int) (cart.Cart, error) {
	if c.guest == nil {
		return cart.Cart{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in to continue")
	}
	c.logg.Info(c.logg.WithField(ctx, "product_id", product.ID), "session ended, adding to guest cart")
	return c.guest.AddItem(ctx, product, qty)
}

// UpdateQuantity sets a line quantity; qty below 1 removes the line and
// qty above the cap fails without a request.
func (c *Client) UpdateQuantity(ctx context.Context, lineID string, qty int) (cart.Cart, error) {
	if qty > cart.MaxQuantity {
		current, _ := c.cachedCart()
		return current, cart.QuantityExceeded(qty)
	}
	if qty < 1 {
		return c.RemoveItem(ctx, lineID)
	}

	token, err := c.bearer(ctx)
	if err != nil {
		return cart.Cart{}, err
	}
	ctx = c.logg.WithLineID(ctx, lineID)
	resp, err := c.api.UpdateCartLine(ctx, token, lineID, qty)
	if err != nil {
		c.rejected(ctx, token, err)
		return cart.Cart{}, err
	}
	return c.settle(ctx, token, resp)
}

func (c *Client) RemoveItem(ctx context.Context, lineID string) (cart.Cart, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return cart.Cart{}, err
	}
	ctx = c.logg.WithLineID(ctx, lineID)
	resp, err := c.api.RemoveCartLine(ctx, token, lineID)
	if err != nil {
		c.rejected(ctx, token, err)
		return cart.Cart{}, err
	}
	return c.settle(ctx, token, resp)
}

func (c *Client) Clear(ctx context.Context) (cart.Cart, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return cart.Cart{}, err
	}
	resp, err := c.api.ClearCart(ctx, token)
	if err != nil {
		c.rejected(ctx, token, err)
		return cart.Cart{}, err
	}
	if resp == nil {
		return c.storeCart(cart.Cart{}), nil
	}
	return c.storeCart(*resp), nil
}
