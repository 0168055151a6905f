package account

import (
	"context"

	"github.com/angelmondragon/maison-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
)

func (c *Client) Wishlist(ctx context.Context) (cart.Wishlist, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return cart.Wishlist{}, err
	}
	return c.fetchWishlist(ctx, token)
}

func (c *Client) fetchWishlist(ctx context.Context, token string) (cart.Wishlist, error) {
	fresh, err := c.api.GetWishlist(ctx, token)
	if err != nil {
		c.rejected(ctx, token, err)
		return cart.Wishlist{}, err
	}
	return c.storeWishlist(fresh), nil
}

// AddWish adds productID; a product already wished fails with ALREADY_EXISTS.
func (c *Client) AddWish(ctx context.Context, productID string, product cart.ProductSnapshot) (cart.Wishlist, error) {
	if productID == "" {
		return cart.Wishlist{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	token, err := c.token(ctx)
	if err != nil {
		return cart.Wishlist{}, err
	}
	if token == "" {
		return c.wishAsGuest(ctx, productID, product)
	}

	if current, ok := c.cachedWishlist(); ok && current.Contains(productID) {
		return current, pkgerrors.New(pkgerrors.CodeAlreadyExists, "product is already in the wishlist").
			WithDetails(map[string]any{"product_id": productID})
	}

	if err := c.api.AddToWishlist(ctx, token, productID); err != nil {
		if c.rejected(ctx, token, err) {
			return c.wishAsGuest(ctx, productID, product)
		}
		if pkgerrors.Is(err, pkgerrors.CodeAlreadyExists) {
			current, fetchErr := c.fetchWishlist(ctx, token)
			if fetchErr != nil {
				return cart.Wishlist{}, fetchErr
			}
			return current, err
		}
		return cart.Wishlist{}, err
	}
	return c.fetchWishlist(ctx, token)
}

func (c *Client) wishAsGuest(ctx context.Context, productID string, product cart.ProductSnapshot) (cart.Wishlist, error) {
	if c.guest == nil {
		return cart.Wishlist{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in to continue")
	}
	c.logg.Info(c.logg.WithField(ctx, "product_id", productID), "session ended, adding to guest wishlist")
	return c.guest.AddWish(ctx, productID, product)
}

func (c *Client) RemoveWish(ctx context.Context, productID string) (cart.Wishlist, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return cart.Wishlist{}, err
	}
	if err := c.api.RemoveFromWishlist(ctx, token, productID); err != nil {
		c.rejected(ctx, token, err)
		return cart.Wishlist{}, err
	}
	return c.fetchWishlist(ctx, token)
}

// Snapshot fetches cart and wishlist.
func (c *Client) Snapshot(ctx context.Context) (cart.Snapshot, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return cart.Snapshot{}, err
	}
	fetchedCart, err := c.fetchCart(ctx, token)
	if err != nil {
		return cart.Snapshot{}, err
	}
	wishlist, err := c.fetchWishlist(ctx, token)
	if err != nil {
		return cart.Snapshot{}, err
	}
	return cart.Snapshot{Cart: fetchedCart, Wishlist: wishlist}, nil
}
