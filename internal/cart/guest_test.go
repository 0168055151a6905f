package cart

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
	"github.com/angelmondragon/maison-storefront/pkg/storage"
	"github.com/shopspring/decimal"
)

func product(id, price string) ProductSnapshot {
	return ProductSnapshot{ID: id, Name: "Watch " + id, Price: decimal.RequireFromString(price)}
}

func newTestGuest() (*Guest, *storage.Memory) {
	store := storage.NewMemory()
	return NewGuest(store, nil), store
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func assertDerived(t *testing.T, c Cart) {
	t.Helper()
	count := 0
	subtotal := decimal.Zero
	for _, line := range c.Lines {
		if line.Quantity < 1 || line.Quantity > MaxQuantity {
			t.Fatalf("line %s has quantity %d outside [1,%d]", line.LineID, line.Quantity, MaxQuantity)
		}
		count += line.Quantity
		subtotal = subtotal.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	if c.ItemCount != count {
		t.Fatalf("item count %d, want %d", c.ItemCount, count)
	}
	if !c.Subtotal.Equal(subtotal) {
		t.Fatalf("subtotal %s, want %s", c.Subtotal, subtotal)
	}
}

func TestGuestAddItemMergesLines(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	guest, _ := newTestGuest()

	c, err := guest.AddItem(ctx, product("a", "12500.00"), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err = guest.AddItem(ctx, product("a", "12500.00"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Lines) != 1 || c.Lines[0].Quantity != 3 {
		t.Fatalf("expected one line with quantity 3, got %+v", c.Lines)
	}
	if !strings.HasPrefix(c.Lines[0].LineID, guestLinePrefix) {
		t.Fatalf("unexpected line id %q", c.Lines[0].LineID)
	}
	if !c.Subtotal.Equal(decimal.RequireFromString("37500")) {
		t.Fatalf("unexpected subtotal %s", c.Subtotal)
	}

	c, err = guest.AddItem(ctx, product("b", "0.10"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lines[1].ProductID != "b" {
		t.Fatalf("expected insertion order, got %+v", c.Lines)
	}
	assertDerived(t, c)
}

func TestGuestAddItemRejectsOverflow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	guest, _ := newTestGuest()

	if _, err := guest.AddItem(ctx, product("a", "10"), 9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := guest.AddItem(ctx, product("a", "10"), 2)
	requireCode(t, err, pkgerrors.CodeQuantityExceeded)

	c, _ := guest.Cart(ctx)
	if c.Lines[0].Quantity != 9 {
		t.Fatalf("expected quantity unchanged at 9, got %d", c.Lines[0].Quantity)
	}

	_, err = guest.AddItem(ctx, product("b", "10"), 11)
	requireCode(t, err, pkgerrors.CodeQuantityExceeded)

	_, err = guest.AddItem(ctx, product("b", "10"), 0)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = guest.AddItem(ctx, ProductSnapshot{}, 1)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestGuestUpdateQuantity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	guest, _ := newTestGuest()

	c, _ := guest.AddItem(ctx, product("a", "100"), 2)
	lineID := c.Lines[0].LineID

	c, err := guest.UpdateQuantity(ctx, lineID, 5)
	if err != nil || c.Lines[0].Quantity != 5 || c.ItemCount != 5 {
		t.Fatalf("expected quantity 5, got %+v err=%v", c, err)
	}

	_, err = guest.UpdateQuantity(ctx, lineID, 11)
	requireCode(t, err, pkgerrors.CodeQuantityExceeded)
	c, _ = guest.Cart(ctx)
	if c.Lines[0].Quantity != 5 {
		t.Fatalf("rejected update must leave quantity unchanged, got %d", c.Lines[0].Quantity)
	}

	_, err = guest.UpdateQuantity(ctx, "missing", 1)
	requireCode(t, err, pkgerrors.CodeNotFound)

	c, err = guest.UpdateQuantity(ctx, lineID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Lines) != 0 || c.ItemCount != 0 || !c.Subtotal.IsZero() {
		t.Fatalf("expected empty cart after quantity 0, got %+v", c)
	}
}

func TestGuestRemoveAndClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	guest, store := newTestGuest()

	c, _ := guest.AddItem(ctx, product("a", "1"), 1)
	_, _ = guest.AddItem(ctx, product("b", "2"), 1)

	c, err := guest.RemoveItem(ctx, c.Lines[0].LineID)
	if err != nil || len(c.Lines) != 1 || c.Lines[0].ProductID != "b" {
		t.Fatalf("unexpected remove result %+v err=%v", c, err)
	}
	_, err = guest.RemoveItem(ctx, "nope")
	requireCode(t, err, pkgerrors.CodeNotFound)

	if _, err := guest.Clear(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := store.Get(ctx, storage.KeyGuestCart); ok {
		t.Fatal("expected guest cart key to be removed")
	}
}

func TestGuestInvariantsHoldForRandomSequences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	guest, _ := newTestGuest()

	for i := 0; i < 500; i++ {
		current, _ := guest.Cart(ctx)
		var c Cart
		var err error
		switch op := rng.Intn(3); {
		case op == 0 || len(current.Lines) == 0:
			id := fmt.Sprintf("p%d", rng.Intn(6))
			c, err = guest.AddItem(ctx, product(id, fmt.Sprintf("%d.%02d", rng.Intn(5000), rng.Intn(100))), 1+rng.Intn(4))
		case op == 1:
			line := current.Lines[rng.Intn(len(current.Lines))]
			c, err = guest.UpdateQuantity(ctx, line.LineID, rng.Intn(13)-1)
		default:
			line := current.Lines[rng.Intn(len(current.Lines))]
			c, err = guest.RemoveItem(ctx, line.LineID)
		}
		if err != nil {
			requireCode(t, err, pkgerrors.CodeQuantityExceeded)
			continue
		}
		assertDerived(t, c)
		persisted, _ := guest.Cart(ctx)
		assertDerived(t, persisted)
	}
}

func TestGuestRecomputesStoredTotals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	guest, store := newTestGuest()

	raw := `{"lines":[{"line_id":"x","product_id":"a","quantity":14,"product":{"id":"a","name":"A","price":"5"}},` +
		`{"line_id":"y","product_id":"b","quantity":0,"product":{"id":"b","name":"B","price":"1"}}],` +
		`"item_count":999,"subtotal":"1"}`
	_ = store.Set(ctx, storage.KeyGuestCart, raw)

	c, err := guest.Cart(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Lines) != 1 || c.Lines[0].Quantity != MaxQuantity || c.ItemCount != MaxQuantity {
		t.Fatalf("expected clamped single line, got %+v", c)
	}
	if !c.Subtotal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected subtotal %s", c.Subtotal)
	}

	_ = store.Set(ctx, storage.KeyGuestCart, "{not json")
	c, err = guest.Cart(ctx)
	if err != nil || len(c.Lines) != 0 {
		t.Fatalf("expected unreadable cart to be treated as empty, got %+v err=%v", c, err)
	}
}

func TestGuestWishlist(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	guest, store := newTestGuest()

	w, err := guest.AddWish(ctx, "a", product("a", "1"))
	if err != nil || w.Count != 1 {
		t.Fatalf("unexpected add result %+v err=%v", w, err)
	}
	w, err = guest.AddWish(ctx, "a", product("a", "1"))
	requireCode(t, err, pkgerrors.CodeAlreadyExists)
	if w.Count != 1 {
		t.Fatalf("duplicate add must leave wishlist unchanged, got %+v", w)
	}

	_, _ = guest.AddWish(ctx, "b", ProductSnapshot{Name: "B"})
	w, _ = guest.Wishlist(ctx)
	if w.Count != 2 || w.Lines[1].Product.ID != "b" {
		t.Fatalf("unexpected wishlist %+v", w)
	}

	w, err = guest.RemoveWish(ctx, "a")
	if err != nil || w.Count != 1 || w.Contains("a") {
		t.Fatalf("unexpected remove result %+v err=%v", w, err)
	}
	_, err = guest.RemoveWish(ctx, "a")
	requireCode(t, err, pkgerrors.CodeNotFound)

	snap, err := guest.Snapshot(ctx)
	if err != nil || snap.Empty() {
		t.Fatalf("expected non-empty snapshot, got %+v err=%v", snap, err)
	}

	if _, err := guest.ClearWishlist(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := store.Get(ctx, storage.KeyGuestWishlist); ok {
		t.Fatal("expected guest wishlist key to be removed")
	}
}

func TestCartCloneDoesNotAlias(t *testing.T) {
	t.Parallel()
	c := Cart{Lines: []Line{{LineID: "1", ProductID: "a", Quantity: 1}}}
	clone := c.Clone()
	clone.Lines[0].Quantity = 7
	if c.Lines[0].Quantity != 1 {
		t.Fatal("clone shares line storage")
	}
}
