// Package session owns the auth token and user record of the storefront.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/maison-storefront/internal/api"
	"github.com/angelmondragon/maison-storefront/internal/cart"
	"github.com/angelmondragon/maison-storefront/internal/notify"
	"github.com/angelmondragon/maison-storefront/pkg/auth"
	"github.com/angelmondragon/maison-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
	"github.com/angelmondragon/maison-storefront/pkg/metrics"
	"github.com/angelmondragon/maison-storefront/pkg/storage"
	"github.com/angelmondragon/maison-storefront/pkg/validators"
	"golang.org/x/sync/singleflight"
)

// AuthAPI is the part of the REST client the manager calls.
type AuthAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Me(ctx context.Context, token string) (*api.User, error)
}

// GuestData is the guest cart and wishlist cleared on logout.
type GuestData interface {
	Clear(ctx context.Context) (cart.Cart, error)
	ClearWishlist(ctx context.Context) (cart.Wishlist, error)
}

// ReconcileFunc merges guest data into the account behind token. An
// UNAUTHORIZED error rolls the fresh session back.
type ReconcileFunc func(ctx context.Context, token string) error

type Options struct {
	API       AuthAPI
	Store     storage.Store
	Guest     GuestData
	Reconcile ReconcileFunc
	Events    *notify.Bus[Event]
	Metrics   *metrics.ClientMetrics
	Logger    *logger.Logger
	Now       func() time.Time
}

// Manager is the single owner of the session for one storefront origin.
type Manager struct {
	api       AuthAPI
	store     storage.Store
	guest     GuestData
	reconcile ReconcileFunc
	events    *notify.Bus[Event]
	metrics   *metrics.ClientMetrics
	logg      *logger.Logger
	now       func() time.Time

	// mu serializes token transitions (establish, clear) so that a token
	// is invalidated at most once.
	mu sync.Mutex

	cacheMu    sync.RWMutex
	cachedUser *User
	cachedFor  string

	me singleflight.Group
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		api:       opts.API,
		store:     opts.Store,
		guest:     opts.Guest,
		reconcile: opts.Reconcile,
		events:    opts.Events,
		metrics:   opts.Metrics,
		logg:      opts.Logger,
		now:       opts.Now,
	}
	if m.events == nil {
		m.events = notify.NewBus[Event]()
	}
	if m.logg == nil {
		m.logg = logger.Nop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Events is the bus carrying login and logout notifications.
func (m *Manager) Events() *notify.Bus[Event] {
	return m.events
}

// SetReconcile installs the reconciliation step run after authentication.
func (m *Manager) SetReconcile(fn ReconcileFunc) {
	m.mu.Lock()
	m.reconcile = fn
	m.mu.Unlock()
}

// Token returns the persisted bearer token, empty when signed out.
func (m *Manager) Token(ctx context.Context) (string, error) {
	token, ok, err := m.store.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(token), nil
}

// Login authenticates with final credentials, persists the session, merges
// guest data, then announces LoggedIn.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Session, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := validators.Struct(creds); err != nil {
		return Session{}, err
	}

	resp, err := m.api.Login(ctx, api.LoginRequest{Username: creds.Username, Password: creds.Password})
	if err != nil {
		return Session{}, err
	}
	return m.establish(m.logg.WithField(ctx, "flow", "login"), resp, "")
}

// Register creates the account and signs it in with the same side effects as Login.
func (m *Manager) Register(ctx context.Context, reg Registration) (Session, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := validators.Struct(reg); err != nil {
		return Session{}, err
	}

	resp, err := m.api.Register(ctx, api.RegisterRequest{
		Username: reg.Username,
		Email:    reg.Email,
		Password: reg.Password,
		FullName: reg.FullName,
		Role:     string(reg.Role),
	})
	if err != nil {
		return Session{}, err
	}
	return m.establish(m.logg.WithField(ctx, "flow", "register"), resp, reg.Role)
}

func (m *Manager) establish(ctx context.Context, resp *api.AuthResponse, requested enums.Role) (Session, error) {
	user := userFromAPI(resp.User, requested)
	ctx = m.logg.WithRole(m.logg.WithUserID(ctx, user.ID), string(user.Role))

	m.mu.Lock()
	err := m.persist(ctx, resp.AccessToken, user)
	reconcile := m.reconcile
	m.mu.Unlock()
	if err != nil {
		m.rollback(ctx, resp.AccessToken)
		return Session{}, err
	}

	if reconcile != nil {
		if err := reconcile(ctx, resp.AccessToken); err != nil {
			if pkgerrors.EndsSession(err) {
				m.logg.WarnErr(ctx, "account rejected the new session during reconciliation", err)
				m.rollback(ctx, resp.AccessToken)
				return Session{}, err
			}
			m.logg.WarnErr(ctx, "guest data reconciliation incomplete", err)
		}
	}

	m.logg.Info(ctx, "session established")
	m.events.Publish(Event{Kind: enums.SessionLoggedIn, User: user})
	return Session{Token: resp.AccessToken, User: user}, nil
}

func (m *Manager) persist(ctx context.Context, token string, user *User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode user record")
	}
	if err := m.store.Set(ctx, storage.KeyAuthToken, token); err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.KeyAuthUser, string(payload)); err != nil {
		return err
	}
	m.cache(token, user)
	return nil
}

// rollback drops a session that never reached LoggedIn. Guest data stays.
func (m *Manager) rollback(ctx context.Context, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, _ := m.Token(ctx)
	if current != token {
		return
	}
	m.removeKeys(ctx, storage.KeyAuthToken, storage.KeyAuthUser)
	m.cache("", nil)
	m.metrics.IncInvalidation(ReasonLoginRollback)
}

// Logout clears the session and guest data and announces LoggedOut. It
// never fails; storage errors are logged.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.clearLocked(ctx)
	m.mu.Unlock()

	m.metrics.IncInvalidation(ReasonLogout)
	m.logg.Info(ctx, "signed out")
	m.events.Publish(Event{Kind: enums.SessionLoggedOut})
}

// Invalidate is the terminal clear after the server rejected token. Only the
// first call for the current token clears and announces; later calls and
// calls carrying a stale token return false.
func (m *Manager) Invalidate(ctx context.Context, token, reason string) bool {
	m.mu.Lock()
	current, err := m.Token(ctx)
	if err != nil {
		m.logg.WarnErr(ctx, "reading token during invalidation", err)
	}
	if token == "" || current != token {
		m.mu.Unlock()
		return false
	}
	m.clearLocked(ctx)
	m.mu.Unlock()

	m.metrics.IncInvalidation(reason)
	m.logg.Warn(m.logg.WithField(ctx, "reason", reason), "session invalidated")
	m.events.Publish(Event{Kind: enums.SessionLoggedOut})
	return true
}

func (m *Manager) clearLocked(ctx context.Context) {
	m.removeKeys(ctx, storage.KeyAuthToken, storage.KeyAuthUser)
	if m.guest != nil {
		if _, err := m.guest.Clear(ctx); err != nil {
			m.logg.WarnErr(ctx, "clearing guest cart", err)
		}
		if _, err := m.guest.ClearWishlist(ctx); err != nil {
			m.logg.WarnErr(ctx, "clearing guest wishlist", err)
		}
	} else {
		m.removeKeys(ctx, storage.KeyGuestCart, storage.KeyGuestWishlist)
	}
	m.cache("", nil)
}

func (m *Manager) removeKeys(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := m.store.Remove(ctx, key); err != nil {
			m.logg.WarnErr(m.logg.WithField(ctx, "key", key), "clearing session key", err)
		}
	}
}

// Current returns the session, resolving the user as CurrentUser does.
func (m *Manager) Current(ctx context.Context) (Session, error) {
	user, err := m.CurrentUser(ctx)
	if err != nil || user == nil {
		return Session{}, err
	}
	token, err := m.Token(ctx)
	if err != nil || token == "" {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

// CurrentUser returns the signed-in user or nil. A held token without a
// record costs one GET /auth/me shared by concurrent callers. A rejected or
// expired token ends the session and yields nil.
func (m *Manager) CurrentUser(ctx context.Context) (*User, error) {
	token, err := m.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		m.cache("", nil)
		return nil, nil
	}

	if auth.IsExpired(token, m.now()) {
		m.Invalidate(ctx, token, ReasonExpired)
		return nil, nil
	}

	if user := m.cached(token); user != nil {
		return user, nil
	}

	if user, ok := m.persistedUser(ctx); ok {
		m.cache(token, user)
		return user, nil
	}

	v, err, _ := m.me.Do(token, func() (any, error) {
		return m.fetchMe(ctx, token)
	})
	if err != nil {
		if pkgerrors.EndsSession(err) {
			return nil, nil
		}
		return nil, err
	}
	user, _ := v.(*User)
	return user, nil
}

func (m *Manager) fetchMe(ctx context.Context, token string) (*User, error) {
	remote, err := m.api.Me(ctx, token)
	if err != nil {
		if pkgerrors.EndsSession(err) {
			m.Invalidate(ctx, token, ReasonUnauthorized)
		}
		return nil, err
	}

	user := userFromAPI(*remote, "")
	m.mu.Lock()
	defer m.mu.Unlock()
	// the session may have ended while the request was in flight
	if current, _ := m.Token(ctx); current != token {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session ended")
	}
	if err := m.persist(ctx, token, user); err != nil {
		m.logg.WarnErr(ctx, "persisting fetched user", err)
		m.cache(token, user)
	}
	return user, nil
}

func (m *Manager) persistedUser(ctx context.Context) (*User, bool) {
	raw, ok, err := m.store.Get(ctx, storage.KeyAuthUser)
	if err != nil || !ok || raw == "" {
		return nil, false
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || (user.ID == "" && user.Username == "") {
		m.logg.WarnErr(ctx, "ignoring unreadable user record", err)
		return nil, false
	}
	user.Role = enums.RoleOrDefault(string(user.Role))
	return &user, true
}

func (m *Manager) cached(token string) *User {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()
	if m.cachedFor != token {
		return nil
	}
	return m.cachedUser
}

func (m *Manager) cache(token string, user *User) {
	m.cacheMu.Lock()
	m.cachedFor = token
	m.cachedUser = user
	m.cacheMu.Unlock()
}

// Role is the role of the signed-in user, customer when signed out.
func (m *Manager) Role(ctx context.Context) enums.Role {
	user, err := m.CurrentUser(ctx)
	if err != nil || user == nil {
		return enums.RoleCustomer
	}
	return user.Role
}
