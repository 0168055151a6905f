package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
	"github.com/angelmondragon/maison-storefront/pkg/storage"
	"github.com/google/uuid"
)

const guestLinePrefix = "guest-"

// Guest is the cart and wishlist of a visitor without a session. Every
// mutation rewrites the whole snapshot under its storage key.
type Guest struct {
	store storage.Store
	logg  *logger.Logger

	mu        sync.Mutex
	newLineID func() string
}

func NewGuest(store storage.Store, logg *logger.Logger) *Guest {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Guest{
		store: store,
		logg:  logg,
		newLineID: func() string {
			return guestLinePrefix + uuid.NewString()
		},
	}
}

// Cart returns the persisted guest cart, empty when none exists.
func (g *Guest) Cart(ctx context.Context) (Cart, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadCart(ctx)
}

// AddItem adds qty units of product, merging into an existing line for the
// same product. A result above MaxQuantity is rejected and nothing changes.
func (g *Guest) AddItem(ctx context.Context, product ProductSnapshot, qty int) (Cart, error) {
	if strings.TrimSpace(product.ID) == "" {
		return Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty < 1 {
		return Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cart, err := g.loadCart(ctx)
	if err != nil {
		return Cart{}, err
	}

	if idx := cart.IndexOfProduct(product.ID); idx >= 0 {
		next := cart.Lines[idx].Quantity + qty
		if next > MaxQuantity {
			return cart, QuantityExceeded(next)
		}
		cart.Lines[idx].Quantity = next
		cart.Lines[idx].Product = product
	} else {
		if qty > MaxQuantity {
			return cart, QuantityExceeded(qty)
		}
		cart.Lines = append(cart.Lines, Line{
			LineID:    g.newLineID(),
			ProductID: product.ID,
			Quantity:  qty,
			Product:   product,
		})
	}

	return g.saveCart(ctx, cart)
}

// UpdateQuantity sets the quantity of a line; qty below 1 removes it.
func (g *Guest) UpdateQuantity(ctx context.Context, lineID string, qty int) (Cart, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cart, err := g.loadCart(ctx)
	if err != nil {
		return Cart{}, err
	}
	idx := cart.IndexOfLine(lineID)
	if idx < 0 {
		return cart, lineNotFound(lineID)
	}
	if qty > MaxQuantity {
		return cart, QuantityExceeded(qty)
	}
	if qty < 1 {
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	} else {
		cart.Lines[idx].Quantity = qty
	}
	return g.saveCart(ctx, cart)
}

func (g *Guest) RemoveItem(ctx context.Context, lineID string) (Cart, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cart, err := g.loadCart(ctx)
	if err != nil {
		return Cart{}, err
	}
	idx := cart.IndexOfLine(lineID)
	if idx < 0 {
		return cart, lineNotFound(lineID)
	}
	cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	return g.saveCart(ctx, cart)
}

// Clear drops the guest cart key entirely.
func (g *Guest) Clear(ctx context.Context) (Cart, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.Remove(ctx, storage.KeyGuestCart); err != nil {
		return Cart{}, err
	}
	return Cart{}, nil
}

func (g *Guest) Wishlist(ctx context.Context) (Wishlist, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadWishlist(ctx)
}

// AddWish adds productID to the wishlist. A duplicate fails with
// ALREADY_EXISTS and returns the unchanged wishlist.
func (g *Guest) AddWish(ctx context.Context, productID string, product ProductSnapshot) (Wishlist, error) {
	if strings.TrimSpace(productID) == "" {
		return Wishlist{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	wishlist, err := g.loadWishlist(ctx)
	if err != nil {
		return Wishlist{}, err
	}
	if wishlist.Contains(productID) {
		return wishlist, alreadyWished(productID)
	}
	if product.ID == "" {
		product.ID = productID
	}
	wishlist.Lines = append(wishlist.Lines, WishLine{ProductID: productID, Product: product})
	return g.saveWishlist(ctx, wishlist)
}

func (g *Guest) RemoveWish(ctx context.Context, productID string) (Wishlist, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	wishlist, err := g.loadWishlist(ctx)
	if err != nil {
		return Wishlist{}, err
	}
	idx := wishlist.indexOf(productID)
	if idx < 0 {
		return wishlist, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the wishlist").
			WithDetails(map[string]any{"product_id": productID})
	}
	wishlist.Lines = append(wishlist.Lines[:idx], wishlist.Lines[idx+1:]...)
	return g.saveWishlist(ctx, wishlist)
}

func (g *Guest) ClearWishlist(ctx context.Context) (Wishlist, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.Remove(ctx, storage.KeyGuestWishlist); err != nil {
		return Wishlist{}, err
	}
	return Wishlist{}, nil
}

// Snapshot reads cart and wishlist under one lock.
func (g *Guest) Snapshot(ctx context.Context) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cart, err := g.loadCart(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	wishlist, err := g.loadWishlist(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Cart: cart, Wishlist: wishlist}, nil
}

func (g *Guest) loadCart(ctx context.Context) (Cart, error) {
	var cart Cart
	raw, ok, err := g.store.Get(ctx, storage.KeyGuestCart)
	if err != nil {
		return Cart{}, err
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &cart); err != nil {
			g.logg.WarnErr(g.logg.WithField(ctx, "key", storage.KeyGuestCart), "discarding unreadable guest cart", err)
			cart = Cart{}
		}
	}
	sanitizeCart(&cart)
	return cart, nil
}

func (g *Guest) saveCart(ctx context.Context, cart Cart) (Cart, error) {
	cart.Recompute()
	payload, err := json.Marshal(cart)
	if err != nil {
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode guest cart")
	}
	if err := g.store.Set(ctx, storage.KeyGuestCart, string(payload)); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

func (g *Guest) loadWishlist(ctx context.Context) (Wishlist, error) {
	var wishlist Wishlist
	raw, ok, err := g.store.Get(ctx, storage.KeyGuestWishlist)
	if err != nil {
		return Wishlist{}, err
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &wishlist); err != nil {
			g.logg.WarnErr(g.logg.WithField(ctx, "key", storage.KeyGuestWishlist), "discarding unreadable guest wishlist", err)
			wishlist = Wishlist{}
		}
	}
	sanitizeWishlist(&wishlist)
	return wishlist, nil
}

func (g *Guest) saveWishlist(ctx context.Context, wishlist Wishlist) (Wishlist, error) {
	wishlist.Recompute()
	payload, err := json.Marshal(wishlist)
	if err != nil {
		return Wishlist{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode guest wishlist")
	}
	if err := g.store.Set(ctx, storage.KeyGuestWishlist, string(payload)); err != nil {
		return Wishlist{}, err
	}
	return wishlist, nil
}

// sanitizeCart enforces line invariants on data another process may have
// written, then recomputes the totals instead of trusting the stored ones.
func sanitizeCart(cart *Cart) {
	kept := cart.Lines[:0]
	for _, line := range cart.Lines {
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		if line.Quantity > MaxQuantity {
			line.Quantity = MaxQuantity
		}
		kept = append(kept, line)
	}
	cart.Lines = kept
	cart.Recompute()
}

func sanitizeWishlist(wishlist *Wishlist) {
	seen := make(map[string]struct{}, len(wishlist.Lines))
	kept := wishlist.Lines[:0]
	for _, line := range wishlist.Lines {
		if line.ProductID == "" {
			continue
		}
		if _, dup := seen[line.ProductID]; dup {
			continue
		}
		seen[line.ProductID] = struct{}{}
		kept = append(kept, line)
	}
	wishlist.Lines = kept
	wishlist.Recompute()
}

// QuantityExceeded is the error for a line pushed past MaxQuantity.
func QuantityExceeded(qty int) error {
	return pkgerrors.New(pkgerrors.CodeQuantityExceeded,
		fmt.Sprintf("quantity %d exceeds the limit of %d per item", qty, MaxQuantity)).
		WithDetails(map[string]any{"quantity": qty, "max": MaxQuantity})
}

func lineNotFound(lineID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found").
		WithDetails(map[string]any{"line_id": lineID})
}

func alreadyWished(productID string) error {
	return pkgerrors.New(pkgerrors.CodeAlreadyExists, "product is already in the wishlist").
		WithDetails(map[string]any{"product_id": productID})
}
