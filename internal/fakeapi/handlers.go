package fakeapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/angelmondragon/maison-storefront/pkg/enums"
	"github.com/angelmondragon/maison-storefront/pkg/security"
	"github.com/angelmondragon/maison-storefront/pkg/validators"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxLineQuantity = 10

type loginBody struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerBody struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"max=120"`
	Role     string `json:"role" validate:"omitempty,oneof=customer seller"`
}

type addItemBody struct {
	ProductID json.Number `json:"product_id" validate:"required"`
	Quantity  int         `json:"quantity"`
}

type updateItemBody struct {
	Quantity int `json:"quantity"`
}

type addWishBody struct {
	ProductID json.Number `json:"product_id" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		writeDetail(w, http.StatusBadRequest, "username and password are required")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[body.Username]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	match, err := security.VerifyPassword(body.Password, acc.passwordHash)
	if err != nil || !match {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	s.mu.Lock()
	token, err := s.issueTokenLocked(acc)
	s.mu.Unlock()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, authBody{AccessToken: token, TokenType: "bearer", User: userOf(acc)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		writeValidation(w, err)
		return
	}
	role := enums.RoleOrDefault(body.Role)

	hash, err := security.HashPassword(body.Password, s.argon)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not store credentials")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[body.Username]; exists {
		writeDetail(w, http.StatusConflict, "Username already registered")
		return
	}
	for _, other := range s.accounts {
		if other.email == body.Email {
			writeDetail(w, http.StatusConflict, "Email already registered")
			return
		}
	}
	acc := s.createLocked(body.Username, body.Email, body.FullName, role, hash)
	token, err := s.issueTokenLocked(acc)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusCreated, authBody{AccessToken: token, TokenType: "bearer", User: userOf(acc)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userOf(accountFrom(r.Context())))
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeCartLocked(w, http.StatusOK, acc, "")
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	var body addItemBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		writeValidation(w, err)
		return
	}
	productID, err := strconv.Atoi(body.ProductID.String())
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	qty := body.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 {
		writeDetail(w, http.StatusBadRequest, "Quantity must be at least 1")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return
	}
	lines := s.carts[acc.id]
	for i := range lines {
		if lines[i].productID != productID {
			continue
		}
		if lines[i].quantity+qty > maxLineQuantity {
			writeDetail(w, http.StatusBadRequest, "Maximum quantity per item is 10")
			return
		}
		lines[i].quantity += qty
		s.writeCartLocked(w, http.StatusOK, acc, "Item quantity updated")
		return
	}
	if qty > maxLineQuantity {
		writeDetail(w, http.StatusBadRequest, "Maximum quantity per item is 10")
		return
	}
	s.nextID++
	s.carts[acc.id] = append(lines, cartLine{id: s.nextID, productID: productID, quantity: qty})
	s.writeCartLocked(w, http.StatusCreated, acc, "Item added to cart")
}

func (s *Server) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	var body updateItemBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		writeValidation(w, err)
		return
	}
	if body.Quantity < 1 || body.Quantity > maxLineQuantity {
		writeDetail(w, http.StatusBadRequest, "Quantity must be between 1 and 10")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.lineIndexLocked(acc, chi.URLParam(r, "lineID"))
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Cart item not found")
		return
	}
	s.carts[acc.id][idx].quantity = body.Quantity
	s.writeCartLocked(w, http.StatusOK, acc, "Cart updated")
}

func (s *Server) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.lineIndexLocked(acc, chi.URLParam(r, "lineID"))
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Cart item not found")
		return
	}
	lines := s.carts[acc.id]
	s.carts[acc.id] = append(lines[:idx:idx], lines[idx+1:]...)
	s.writeCartLocked(w, http.StatusOK, acc, "Item removed from cart")
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, acc.id)
	s.writeCartLocked(w, http.StatusOK, acc, "Cart cleared")
}

func (s *Server) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	body := wishlistBody{Items: []wishItem{}}
	for i, productID := range s.wishlists[acc.id] {
		body.Items = append(body.Items, wishItem{
			ID:        i + 1,
			ProductID: productID,
			Product:   productOf(s.products[productID]),
		})
	}
	body.Count = len(body.Items)
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleAddWish(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	var body addWishBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		writeValidation(w, err)
		return
	}
	productID, err := strconv.Atoi(body.ProductID.String())
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return
	}
	for _, existing := range s.wishlists[acc.id] {
		if existing == productID {
			writeDetail(w, http.StatusConflict, "Product already in wishlist")
			return
		}
	}
	s.wishlists[acc.id] = append(s.wishlists[acc.id], productID)
	writeJSON(w, http.StatusCreated, messageBody{Message: "Added to wishlist"})
}

func (s *Server) handleRemoveWish(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	productID, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Wishlist item not found")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.wishlists[acc.id]
	for i, existing := range list {
		if existing == productID {
			s.wishlists[acc.id] = append(list[:i:i], list[i+1:]...)
			writeJSON(w, http.StatusOK, messageBody{Message: "Removed from wishlist"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Wishlist item not found")
}

func (s *Server) lineIndexLocked(acc *account, raw string) int {
	lineID, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	for i, line := range s.carts[acc.id] {
		if line.id == lineID {
			return i
		}
	}
	return -1
}

// writeCartLocked renders acc's cart in the configured shape. message is
// non-empty for mutations; the flat shape then answers with it alone.
func (s *Server) writeCartLocked(w http.ResponseWriter, status int, acc *account, message string) {
	lines := s.carts[acc.id]
	if s.shape == ShapeFlat {
		if message != "" {
			writeJSON(w, status, messageBody{Message: message})
			return
		}
		body := flatCart{Items: []flatItem{}}
		total := decimal.Zero
		for _, line := range lines {
			p := s.products[line.productID]
			body.Items = append(body.Items, flatItem{
				ID:              line.id,
				ProductID:       line.productID,
				Quantity:        line.quantity,
				ProductName:     p.Name,
				Price:           p.Price.InexactFloat64(),
				ImageURL:        p.ImageURL,
				Material:        p.Material,
				CaseSize:        p.CaseSize,
				ReferenceNumber: p.ReferenceNumber,
			})
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.quantity))))
			body.TotalItems += line.quantity
		}
		body.TotalAmount = total.InexactFloat64()
		writeJSON(w, status, body)
		return
	}

	body := nestedCartBody{Message: message, Cart: nestedCart{Items: []nestedItem{}, Total: decimal.Zero}}
	for _, line := range lines {
		p := s.products[line.productID]
		body.Cart.Items = append(body.Cart.Items, nestedItem{
			ID:        line.id,
			ProductID: line.productID,
			Quantity:  line.quantity,
			Product:   productOf(p),
		})
		body.Cart.Total = body.Cart.Total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.quantity))))
		body.Cart.ItemCount += line.quantity
	}
	writeJSON(w, status, body)
}
