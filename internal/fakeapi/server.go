// Package fakeapi is an in-process storefront backend for tests and local
// runs of the CLI. It speaks the same REST contract as the real API and can
// be told to vary response shapes, reject tokens, or drop connections.
package fakeapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/angelmondragon/maison-storefront/pkg/auth"
	"github.com/angelmondragon/maison-storefront/pkg/enums"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
	"github.com/angelmondragon/maison-storefront/pkg/security"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shape selects which of the observed response envelopes the server emits.
type Shape int

const (
	// ShapeFlat answers GET /cart with items, total_amount and total_items at
	// the top level, flattens product fields onto items, and answers cart
	// mutations with a message only.
	ShapeFlat Shape = iota
	// ShapeNested wraps the cart under "cart" with total and item_count,
	// nests the product on each item, and returns the cart from mutations.
	ShapeNested
)

type Product struct {
	ID              int
	Name            string
	Price           decimal.Decimal
	ImageURL        string
	Material        string
	CaseSize        string
	ReferenceNumber string
}

// DefaultCatalog is used when Options.Products is empty.
func DefaultCatalog() []Product {
	return []Product{
		{ID: 1, Name: "Submariner Date", Price: decimal.RequireFromString("10250.00"), Material: "Oystersteel", CaseSize: "41 mm", ReferenceNumber: "126610LN"},
		{ID: 2, Name: "Datejust 36", Price: decimal.RequireFromString("8100.00"), Material: "Oystersteel and white gold", CaseSize: "36 mm", ReferenceNumber: "126234"},
		{ID: 3, Name: "Cosmograph Daytona", Price: decimal.RequireFromString("15100.50"), Material: "Oystersteel", CaseSize: "40 mm", ReferenceNumber: "126500LN"},
		{ID: 4, Name: "GMT-Master II", Price: decimal.RequireFromString("10900.00"), Material: "Oystersteel", CaseSize: "40 mm", ReferenceNumber: "126710BLNR"},
		{ID: 5, Name: "Day-Date 40", Price: decimal.RequireFromString("42500.00"), Material: "18 ct yellow gold", CaseSize: "40 mm", ReferenceNumber: "228238"},
	}
}

type Options struct {
	Products []Product
	Shape    Shape
	TokenTTL time.Duration
	Logger   *logger.Logger
	Now      func() time.Time
}

type account struct {
	id           int
	username     string
	email        string
	fullName     string
	role         enums.Role
	passwordHash string
}

type cartLine struct {
	id        int
	productID int
	quantity  int
}

type fault struct {
	status  int
	message string
}

// Server holds all backend state behind one mutex.
type Server struct {
	shape   Shape
	signing auth.SigningConfig
	argon   security.ArgonConfig
	logg    *logger.Logger
	now     func() time.Time

	mu        sync.Mutex
	products  map[int]Product
	accounts  map[string]*account
	byID      map[int]*account
	carts     map[int][]cartLine
	wishlists map[int][]int
	sessions  map[string]int
	nextID    int
	faults    map[string][]fault
	calls     map[string]int
	offline   bool
}

func New(opts Options) *Server {
	if len(opts.Products) == 0 {
		opts.Products = DefaultCatalog()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		shape: opts.Shape,
		signing: auth.SigningConfig{
			Secret: uuid.NewString(),
			Issuer: "maison-fakeapi",
			TTL:    opts.TokenTTL,
		},
		// cheap parameters: hashes are only ever checked in-process
		argon:     security.ArgonConfig{MemoryKB: 1024, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32},
		logg:      opts.Logger,
		now:       opts.Now,
		products:  make(map[int]Product, len(opts.Products)),
		accounts:  make(map[string]*account),
		byID:      make(map[int]*account),
		carts:     make(map[int][]cartLine),
		wishlists: make(map[int][]int),
		sessions:  make(map[string]int),
		nextID:    100,
		faults:    make(map[string][]fault),
		calls:     make(map[string]int),
	}
	for _, p := range opts.Products {
		s.products[p.ID] = p
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, s.offlineGuard, s.countCalls, s.injectFaults)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.With(s.requireAuth).Get("/me", s.handleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/cart", s.handleGetCart)
		r.Post("/cart", s.handleAddToCart)
		r.Delete("/cart", s.handleClearCart)
		r.Put("/cart/{lineID}", s.handleUpdateLine)
		r.Delete("/cart/{lineID}", s.handleRemoveLine)

		r.Get("/wishlist", s.handleGetWishlist)
		r.Post("/wishlist", s.handleAddWish)
		r.Delete("/wishlist/{productID}", s.handleRemoveWish)
	})
	return r
}

// SetOffline makes every request fail at the transport level.
func (s *Server) SetOffline(offline bool) {
	s.mu.Lock()
	s.offline = offline
	s.mu.Unlock()
}

// FailNext makes the next request to route ("POST /cart") answer status.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	s.faults[route] = append(s.faults[route], fault{status: status, message: message})
	s.mu.Unlock()
}

// RevokeTokens invalidates every issued token; later calls answer 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	s.sessions = make(map[string]int)
	s.mu.Unlock()
}

// Calls reports how many requests reached route, e.g. "GET /auth/me".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// CartOf returns product id → quantity for username's server cart.
func (s *Server) CartOf(username string) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	acc, ok := s.accounts[username]
	if !ok {
		return out
	}
	for _, line := range s.carts[acc.id] {
		out[strconv.Itoa(line.productID)] += line.quantity
	}
	return out
}

// WishlistOf returns the sorted product ids wished by username.
func (s *Server) WishlistOf(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s.wishlists[acc.id]))
	for _, id := range s.wishlists[acc.id] {
		out = append(out, strconv.Itoa(id))
	}
	sort.Strings(out)
	return out
}

// AddAccount registers an account directly, bypassing the HTTP surface.
func (s *Server) AddAccount(username, email, password string, role enums.Role) error {
	hash, err := security.HashPassword(password, s.argon)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[username]; exists {
		return fmt.Errorf("account %q exists", username)
	}
	s.createLocked(username, email, "", role, hash)
	return nil
}

func (s *Server) createLocked(username, email, fullName string, role enums.Role, hash string) *account {
	s.nextID++
	acc := &account{
		id:           s.nextID,
		username:     username,
		email:        email,
		fullName:     fullName,
		role:         role,
		passwordHash: hash,
	}
	s.accounts[username] = acc
	s.byID[acc.id] = acc
	return acc
}

func (s *Server) issueTokenLocked(acc *account) (string, error) {
	token, err := auth.MintAccessToken(s.signing, s.now(), auth.AccessTokenPayload{
		UserID: strconv.Itoa(acc.id),
		Role:   acc.role,
	})
	if err != nil {
		return "", err
	}
	s.sessions[token] = acc.id
	return token, nil
}
