package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/angelmondragon/maison-storefront/internal/cart"
	"github.com/shopspring/decimal"
)

// flexID accepts identifiers sent as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func firstID(ids ...flexID) string {
	for _, id := range ids {
		if id != "" {
			return string(id)
		}
	}
	return ""
}

// flexInt accepts counts sent as numbers or numeric strings.
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var id flexID
	if err := id.UnmarshalJSON(b); err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	n, err := strconv.ParseFloat(string(id), 64)
	if err != nil {
		return err
	}
	if math.IsNaN(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return fmt.Errorf("count %s out of range", id)
	}
	f.value, f.set = int(n), true
	return nil
}

type wireProduct struct {
	ID              flexID           `json:"id"`
	MongoID         flexID           `json:"_id"`
	Name            string           `json:"name"`
	Price           *decimal.Decimal `json:"price"`
	ImageURL        string           `json:"image_url"`
	Image           string           `json:"image"`
	Material        string           `json:"material"`
	CaseSize        string           `json:"case_size"`
	ReferenceNumber string           `json:"reference_number"`
}

// wireLine is a cart or wishlist item. The product is either nested under
// "product" or flattened onto the item.
type wireLine struct {
	ID        flexID       `json:"id"`
	MongoID   flexID       `json:"_id"`
	ProductID flexID       `json:"product_id"`
	Quantity  flexInt      `json:"quantity"`
	Product   *wireProduct `json:"product"`

	Name            string           `json:"name"`
	ProductName     string           `json:"product_name"`
	Price           *decimal.Decimal `json:"price"`
	ImageURL        string           `json:"image_url"`
	Material        string           `json:"material"`
	CaseSize        string           `json:"case_size"`
	ReferenceNumber string           `json:"reference_number"`
}

type wireCart struct {
	Items       []wireLine       `json:"items"`
	Total       *decimal.Decimal `json:"total"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	ItemCount   flexInt          `json:"item_count"`
	TotalItems  flexInt          `json:"total_items"`
}

// cartEnvelope is a cart response: the cart at the top level, under "cart",
// or absent on message-only mutation responses.
type cartEnvelope struct {
	wireCart
	Cart    *wireCart `json:"cart"`
	Message string    `json:"message"`
}

type wishlistEnvelope struct {
	Items    []wireLine `json:"items"`
	Count    flexInt    `json:"count"`
	Wishlist *struct {
		Items []wireLine `json:"items"`
	} `json:"wishlist"`
}

func (w wireLine) snapshot() cart.ProductSnapshot {
	p := cart.ProductSnapshot{
		ID:              firstID(w.ProductID),
		Name:            firstNonEmpty(w.Name, w.ProductName),
		ImageURL:        w.ImageURL,
		Material:        w.Material,
		CaseSize:        w.CaseSize,
		ReferenceNumber: w.ReferenceNumber,
	}
	if w.Price != nil {
		p.Price = *w.Price
	}
	if n := w.Product; n != nil {
		if id := firstID(n.ID, n.MongoID); id != "" {
			p.ID = id
		}
		p.Name = firstNonEmpty(n.Name, p.Name)
		if n.Price != nil {
			p.Price = *n.Price
		}
		p.ImageURL = firstNonEmpty(n.ImageURL, n.Image, p.ImageURL)
		p.Material = firstNonEmpty(n.Material, p.Material)
		p.CaseSize = firstNonEmpty(n.CaseSize, p.CaseSize)
		p.ReferenceNumber = firstNonEmpty(n.ReferenceNumber, p.ReferenceNumber)
	}
	return p
}

func (w wireLine) productID() string {
	if id := firstID(w.ProductID); id != "" {
		return id
	}
	if w.Product != nil {
		return firstID(w.Product.ID, w.Product.MongoID)
	}
	return ""
}

// toCart maps a wire cart onto the canonical shape. Line quantities are
// clamped into [1, MaxQuantity] like stored guest lines. Totals are
// recomputed from the lines; server totals are used only when no item list
// was sent.
func (w wireCart) toCart() cart.Cart {
	var out cart.Cart
	for _, item := range w.Items {
		productID := item.productID()
		qty := 1
		if item.Quantity.set {
			qty = item.Quantity.value
		}
		if productID == "" || qty < 1 {
			continue
		}
		if qty > cart.MaxQuantity {
			qty = cart.MaxQuantity
		}
		product := item.snapshot()
		product.ID = productID
		out.Lines = append(out.Lines, cart.Line{
			LineID:    firstID(item.ID, item.MongoID, flexID(productID)),
			ProductID: productID,
			Quantity:  qty,
			Product:   product,
		})
	}
	out.Recompute()

	if w.Items == nil {
		if total := firstDecimal(w.Total, w.TotalAmount); total != nil {
			out.Subtotal = *total
		}
		if count, ok := firstInt(w.ItemCount, w.TotalItems); ok {
			out.ItemCount = count
		}
	}
	return out
}

func (e cartEnvelope) canonical() (cart.Cart, bool) {
	if e.Cart != nil {
		return e.Cart.toCart(), true
	}
	if e.Items != nil || e.Total != nil || e.TotalAmount != nil || e.ItemCount.set || e.TotalItems.set {
		return e.wireCart.toCart(), true
	}
	return cart.Cart{}, false
}

func (e wishlistEnvelope) canonical() cart.Wishlist {
	items := e.Items
	if e.Wishlist != nil {
		items = e.Wishlist.Items
	}
	var out cart.Wishlist
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		productID := item.productID()
		if productID == "" {
			continue
		}
		if _, dup := seen[productID]; dup {
			continue
		}
		seen[productID] = struct{}{}
		product := item.snapshot()
		product.ID = productID
		out.Lines = append(out.Lines, cart.WishLine{ProductID: productID, Product: product})
	}
	out.Recompute()
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstDecimal(values ...*decimal.Decimal) *decimal.Decimal {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstInt(values ...flexInt) (int, bool) {
	for _, v := range values {
		if v.set {
			return v.value, true
		}
	}
	return 0, false
}
