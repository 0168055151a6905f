package storefront

import (
	"context"

	"github.com/angelmondragon/maison-storefront/internal/cart"
	"github.com/angelmondragon/maison-storefront/pkg/enums"
)

func lineKey(lineID string) string       { return "line:" + lineID }
func productKey(productID string) string { return "product:" + productID }

const clearKey = "cart:clear"

// Cart returns the active cart.
func (s *Storefront) Cart(ctx context.Context) (cart.Cart, error) {
	mode, err := s.Mode(ctx)
	if err != nil {
		return cart.Cart{}, err
	}
	if mode == enums.CartModeGuest {
		return s.guest.Cart(ctx)
	}
	return s.account.Cart(ctx)
}

// AddToCart adds qty units of product to the active cart.
func (s *Storefront) AddToCart(ctx context.Context, product cart.ProductSnapshot, qty int) (cart.Cart, error) {
	unlock := s.locks.Lock(productKey(product.ID))
	defer unlock()

	mode, err := s.Mode(ctx)
	if err != nil {
		return cart.Cart{}, err
	}
	var out cart.Cart
	if mode == enums.CartModeGuest {
		out, err = s.guest.AddItem(ctx, product, qty)
	} else {
		out, err = s.account.AddItem(ctx, product, qty)
	}
	if err != nil {
		return out, err
	}
	s.publish(ctx, &out, nil)
	return out, nil
}

// UpdateQuantity sets a line quantity. Below 1 removes the line; above the
// per-line cap fails with QUANTITY_EXCEEDED and changes nothing.
func (s *Storefront) UpdateQuantity(ctx context.Context, lineID string, qty int) (cart.Cart, error) {
	unlock := s.locks.Lock(lineKey(lineID))
	defer unlock()

	mode, err := s.Mode(ctx)
	if err != nil {
		return cart.Cart{}, err
	}
	var out cart.Cart
	if mode == enums.CartModeGuest {
		out, err = s.guest.UpdateQuantity(ctx, lineID, qty)
	} else {
		out, err = s.account.UpdateQuantity(ctx, lineID, qty)
	}
	if err != nil {
		return out, err
	}
	s.publish(ctx, &out, nil)
	return out, nil
}

func (s *Storefront) RemoveFromCart(ctx context.Context, lineID string) (cart.Cart, error) {
	unlock := s.locks.Lock(lineKey(lineID))
	defer unlock()

	mode, err := s.Mode(ctx)
	if err != nil {
		return cart.Cart{}, err
	}
	var out cart.Cart
	if mode == enums.CartModeGuest {
		out, err = s.guest.RemoveItem(ctx, lineID)
	} else {
		out, err = s.account.RemoveItem(ctx, lineID)
	}
	if err != nil {
		return out, err
	}
	s.publish(ctx, &out, nil)
	return out, nil
}

func (s *Storefront) ClearCart(ctx context.Context) (cart.Cart, error) {
	unlock := s.locks.Lock(clearKey)
	defer unlock()

	mode, err := s.Mode(ctx)
	if err != nil {
		return cart.Cart{}, err
	}
	var out cart.Cart
	if mode == enums.CartModeGuest {
		out, err = s.guest.Clear(ctx)
	} else {
		out, err = s.account.Clear(ctx)
	}
	if err != nil {
		return out, err
	}
	s.publish(ctx, &out, nil)
	return out, nil
}
