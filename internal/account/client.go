// Package account is the cart and wishlist of a signed-in user, backed by
// the REST API. The last fetched state is cached in memory only.
package account

import (
	"context"
	"sync"

	"github.com/angelmondragon/maison-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
)

// CartAPI is the part of the REST client used for account state.
type CartAPI interface {
	GetCart(ctx context.Context, token string) (cart.Cart, error)
	AddToCart(ctx context.Context, token, productID string, qty int) (*cart.Cart, error)
	UpdateCartLine(ctx context.Context, token, lineID string, qty int) (*cart.Cart, error)
	RemoveCartLine(ctx context.Context, token, lineID string) (*cart.Cart, error)
	ClearCart(ctx context.Context, token string) (*cart.Cart, error)
	GetWishlist(ctx context.Context, token string) (cart.Wishlist, error)
	AddToWishlist(ctx context.Context, token, productID string) error
	RemoveFromWishlist(ctx context.Context, token, productID string) error
}

// TokenSource returns the current bearer token, empty when signed out.
type TokenSource func(ctx context.Context) (string, error)

// Invalidator ends the session after the server rejected token.
type Invalidator func(ctx context.Context, token, reason string) bool

type Options struct {
	API        CartAPI
	Token      TokenSource
	Invalidate Invalidator
	// Guest receives adds that were rejected because the session ended.
	Guest  *cart.Guest
	Logger *logger.Logger
}

type Client struct {
	api        CartAPI
	token      TokenSource
	invalidate Invalidator
	guest      *cart.Guest
	logg       *logger.Logger

	mu       sync.RWMutex
	cart     *cart.Cart
	wishlist *cart.Wishlist
}

func NewClient(opts Options) *Client {
	c := &Client{
		api:        opts.API,
		token:      opts.Token,
		invalidate: opts.Invalidate,
		guest:      opts.Guest,
		logg:       opts.Logger,
	}
	if c.logg == nil {
		c.logg = logger.Nop()
	}
	return c
}

// Reset drops the cached snapshot.
func (c *Client) Reset() {
	c.mu.Lock()
	c.cart = nil
	c.wishlist = nil
	c.mu.Unlock()
}

// Seed replaces the cached snapshot with state fetched elsewhere, such as
// the canonical account state published after reconciliation.
func (c *Client) Seed(snap cart.Snapshot) {
	c.storeCart(snap.Cart)
	c.storeWishlist(snap.Wishlist)
}

// Cached returns the last fetched state; ok is false until a fetch succeeded.
func (c *Client) Cached() (cart.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cart == nil || c.wishlist == nil {
		var snap cart.Snapshot
		if c.cart != nil {
			snap.Cart = c.cart.Clone()
		}
		if c.wishlist != nil {
			snap.Wishlist = c.wishlist.Clone()
		}
		return snap, false
	}
	return cart.Snapshot{Cart: c.cart.Clone(), Wishlist: c.wishlist.Clone()}, true
}

func (c *Client) cachedCart() (cart.Cart, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cart == nil {
		return cart.Cart{}, false
	}
	return c.cart.Clone(), true
}

func (c *Client) cachedWishlist() (cart.Wishlist, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.wishlist == nil {
		return cart.Wishlist{}, false
	}
	return c.wishlist.Clone(), true
}

func (c *Client) storeCart(value cart.Cart) cart.Cart {
	c.mu.Lock()
	stored := value.Clone()
	c.cart = &stored
	c.mu.Unlock()
	return value
}

func (c *Client) storeWishlist(value cart.Wishlist) cart.Wishlist {
	c.mu.Lock()
	stored := value.Clone()
	c.wishlist = &stored
	c.mu.Unlock()
	return value
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in to continue")
	}
	return token, nil
}

// rejected ends the session when err says the token is no longer valid.
func (c *Client) rejected(ctx context.Context, token string, err error) bool {
	if !pkgerrors.EndsSession(err) {
		return false
	}
	c.Reset()
	c.logg.WarnErr(c.logg.WithComponent(ctx, "account"), "account rejected the session", err)
	if c.invalidate != nil {
		c.invalidate(ctx, token, "unauthorized")
	}
	return true
}
