package cart

import (
	"github.com/angelmondragon/maison-storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

// MaxQuantity is the per-line quantity cap.
const MaxQuantity = 10

// ProductSnapshot is the product data carried on a cart or wishlist line.
type ProductSnapshot struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	ImageURL        string          `json:"image_url,omitempty"`
	Material        string          `json:"material,omitempty"`
	CaseSize        string          `json:"case_size,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
}

type Line struct {
	LineID    string          `json:"line_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

// Total is price times quantity for the line.
func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart lines keep insertion order. ItemCount and Subtotal are derived;
// call Recompute after touching Lines.
type Cart struct {
	Lines     []Line          `json:"lines"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Recompute derives ItemCount and Subtotal from the lines.
func (c *Cart) Recompute() {
	count := 0
	subtotal := decimal.Zero
	for _, line := range c.Lines {
		count += line.Quantity
		subtotal = subtotal.Add(line.Total())
	}
	c.ItemCount = count
	c.Subtotal = subtotal
}

// IndexOfLine returns the position of lineID, or -1.
func (c Cart) IndexOfLine(lineID string) int {
	for i, line := range c.Lines {
		if line.LineID == lineID {
			return i
		}
	}
	return -1
}

// IndexOfProduct returns the position of the line holding productID, or -1.
func (c Cart) IndexOfProduct(productID string) int {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no line storage with c.
func (c Cart) Clone() Cart {
	out := c
	if c.Lines != nil {
		out.Lines = append([]Line(nil), c.Lines...)
	}
	return out
}

type WishLine struct {
	ProductID string          `json:"product_id"`
	Product   ProductSnapshot `json:"product"`
}

// Wishlist holds each product at most once.
type Wishlist struct {
	Lines []WishLine `json:"lines"`
	Count int        `json:"count"`
}

func (w *Wishlist) Recompute() {
	w.Count = len(w.Lines)
}

func (w Wishlist) Contains(productID string) bool {
	return w.indexOf(productID) >= 0
}

func (w Wishlist) indexOf(productID string) int {
	for i, line := range w.Lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (w Wishlist) Clone() Wishlist {
	out := w
	if w.Lines != nil {
		out.Lines = append([]WishLine(nil), w.Lines...)
	}
	return out
}

// Snapshot is the guest cart and wishlist read together.
type Snapshot struct {
	Cart     Cart
	Wishlist Wishlist
}

// Empty reports whether there is nothing to reconcile.
func (s Snapshot) Empty() bool {
	return len(s.Cart.Lines) == 0 && len(s.Wishlist.Lines) == 0
}

// State is the active cart and wishlist as published to subscribers.
type State struct {
	Mode     enums.CartMode
	Cart     Cart
	Wishlist Wishlist
}

// Badge is the header badge count: cart units plus wishlist entries.
func (s State) Badge() (items int, wishes int) {
	return s.Cart.ItemCount, s.Wishlist.Count
}
