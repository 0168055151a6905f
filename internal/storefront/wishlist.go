package storefront

import (
	"context"

	"github.com/angelmondragon/maison-storefront/internal/cart"
	"github.com/angelmondragon/maison-storefront/pkg/enums"
)

func wishKey(productID string) string { return "wish:" + productID }

func (s *Storefront) Wishlist(ctx context.Context) (cart.Wishlist, error) {
	mode, err := s.Mode(ctx)
	if err != nil {
		return cart.Wishlist{}, err
	}
	if mode == enums.CartModeGuest {
		return s.guest.Wishlist(ctx)
	}
	return s.account.Wishlist(ctx)
}

// AddToWishlist wishes product. An already-wished product fails with
// ALREADY_EXISTS alongside the current wishlist.
func (s *Storefront) AddToWishlist(ctx context.Context, product cart.ProductSnapshot) (cart.Wishlist, error) {
	unlock := s.locks.Lock(wishKey(product.ID))
	defer unlock()
	return s.addWishLocked(ctx, product)
}

func (s *Storefront) RemoveFromWishlist(ctx context.Context, productID string) (cart.Wishlist, error) {
	unlock := s.locks.Lock(wishKey(productID))
	defer unlock()
	return s.removeWishLocked(ctx, productID)
}

// ToggleWishlist removes product when wished and adds it otherwise.
// wished reports the resulting membership.
func (s *Storefront) ToggleWishlist(ctx context.Context, product cart.ProductSnapshot) (wished bool, list cart.Wishlist, err error) {
	unlock := s.locks.Lock(wishKey(product.ID))
	defer unlock()

	current, err := s.Wishlist(ctx)
	if err != nil {
		return false, cart.Wishlist{}, err
	}
	if current.Contains(product.ID) {
		list, err = s.removeWishLocked(ctx, product.ID)
		return false, list, err
	}
	list, err = s.addWishLocked(ctx, product)
	return err == nil, list, err
}

func (s *Storefront) addWishLocked(ctx context.Context, product cart.ProductSnapshot) (cart.Wishlist, error) {
	mode, err := s.Mode(ctx)
	if err != nil {
		return cart.Wishlist{}, err
	}
	var out cart.Wishlist
	if mode == enums.CartModeGuest {
		out, err = s.guest.AddWish(ctx, product.ID, product)
	} else {
		out, err = s.account.AddWish(ctx, product.ID, product)
	}
	if err != nil {
		return out, err
	}
	s.publish(ctx, nil, &out)
	return out, nil
}

func (s *Storefront) removeWishLocked(ctx context.Context, productID string) (cart.Wishlist, error) {
	mode, err := s.Mode(ctx)
	if err != nil {
		return cart.Wishlist{}, err
	}
	var out cart.Wishlist
	if mode == enums.CartModeGuest {
		out, err = s.guest.RemoveWish(ctx, productID)
	} else {
		out, err = s.account.RemoveWish(ctx, productID)
	}
	if err != nil {
		return out, err
	}
	s.publish(ctx, nil, &out)
	return out, nil
}
