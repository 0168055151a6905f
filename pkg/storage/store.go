package storage

import "context"

// Keys persisted by the storefront core.
const (
	KeyAuthToken     = "auth.token"
	KeyAuthUser      = "auth.user"
	KeyGuestCart     = "guest.cart"
	KeyGuestWishlist = "guest.wishlist"
)

// Store is a string key/value store scoped to one storefront origin.
// Values are opaque; callers own encoding.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
