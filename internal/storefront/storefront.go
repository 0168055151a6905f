// Package storefront is the single entry point of the client core: it owns
// the session, both cart engines and the reconciliation step, and picks the
// active cart by session presence.
package storefront

import (
	"context"
	"time"

	"github.com/angelmondragon/maison-storefront/internal/account"
	"github.com/angelmondragon/maison-storefront/internal/api"
	"github.com/angelmondragon/maison-storefront/internal/cart"
	"github.com/angelmondragon/maison-storefront/internal/notify"
	"github.com/angelmondragon/maison-storefront/internal/reconcile"
	"github.com/angelmondragon/maison-storefront/internal/session"
	"github.com/angelmondragon/maison-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
	"github.com/angelmondragon/maison-storefront/pkg/metrics"
	"github.com/angelmondragon/maison-storefront/pkg/storage"
	"go.uber.org/multierr"
)

type Options struct {
	API     *api.Client
	Store   storage.Store
	Metrics *metrics.ClientMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type Storefront struct {
	session     *session.Manager
	guest       *cart.Guest
	account     *account.Client
	coordinator *reconcile.Coordinator
	states      *notify.Bus[cart.State]
	locks       *keyLock
	logg        *logger.Logger

	logoutSub *notify.Subscription
}

func New(opts Options) *Storefront {
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	s := &Storefront{
		guest:  cart.NewGuest(opts.Store, logg),
		states: notify.NewBus[cart.State](),
		locks:  newKeyLock(),
		logg:   logg,
	}
	s.coordinator = reconcile.NewCoordinator(reconcile.Params{
		API:     opts.API,
		Guest:   s.guest,
		States:  s.states,
		Metrics: opts.Metrics,
		Logger:  logg,
	})
	s.session = session.NewManager(session.Options{
		API:       opts.API,
		Store:     opts.Store,
		Guest:     s.guest,
		Reconcile: s.reconcile,
		Metrics:   opts.Metrics,
		Logger:    logg,
		Now:       opts.Now,
	})
	s.account = account.NewClient(account.Options{
		API:        opts.API,
		Token:      s.session.Token,
		Invalidate: s.session.Invalidate,
		Guest:      s.guest,
		Logger:     logg,
	})
	s.logoutSub = s.session.Events().Subscribe(s.onSessionEvent)
	return s
}

// Close detaches the storefront from its session bus.
func (s *Storefront) Close() {
	s.logoutSub.Unsubscribe()
}

// Events carries LoggedIn and LoggedOut.
func (s *Storefront) Events() *notify.Bus[session.Event] {
	return s.session.Events()
}

// States carries the active cart and wishlist after every change.
func (s *Storefront) States() *notify.Bus[cart.State] {
	return s.states
}

// reconcile runs at every sign-in. The account cache starts empty and is
// seeded with the canonical state the migration fetched.
func (s *Storefront) reconcile(ctx context.Context, token string) error {
	s.account.Reset()
	res, err := s.coordinator.Reconcile(ctx, token)
	if err != nil {
		return err
	}
	if res.Published {
		s.account.Seed(cart.Snapshot{Cart: res.State.Cart, Wishlist: res.State.Wishlist})
	}
	ctx = s.logg.WithComponent(ctx, "storefront")
	for _, failure := range multierr.Errors(res.Failures) {
		failCtx := s.logg.WithFields(ctx, map[string]any{
			"retryable":  pkgerrors.IsRetryable(failure),
			"error_dump": pkgerrors.Dump(failure),
		})
		s.logg.WarnErr(failCtx, "guest line not merged", failure)
	}
	return nil
}

func (s *Storefront) onSessionEvent(evt session.Event) {
	if evt.Kind != enums.SessionLoggedOut {
		return
	}
	s.account.Reset()
	s.publish(context.Background(), nil, nil)
}

func (s *Storefront) Login(ctx context.Context, creds session.Credentials) (session.Session, error) {
	return s.session.Login(ctx, creds)
}

func (s *Storefront) Register(ctx context.Context, reg session.Registration) (session.Session, error) {
	return s.session.Register(ctx, reg)
}

func (s *Storefront) Logout(ctx context.Context) {
	s.session.Logout(ctx)
}

func (s *Storefront) CurrentUser(ctx context.Context) (*session.User, error) {
	return s.session.CurrentUser(ctx)
}

func (s *Storefront) Role(ctx context.Context) enums.Role {
	return s.session.Role(ctx)
}

func (s *Storefront) RedirectPath(ctx context.Context) string {
	return s.session.RedirectPath(ctx)
}

func (s *Storefront) RequireRole(ctx context.Context, role enums.Role) (*session.User, error) {
	return s.session.RequireRole(ctx, role)
}

// Mode reports which cart engine serves the next call.
func (s *Storefront) Mode(ctx context.Context) (enums.CartMode, error) {
	token, err := s.session.Token(ctx)
	if err != nil {
		return enums.CartModeGuest, err
	}
	if token == "" {
		return enums.CartModeGuest, nil
	}
	return enums.CartModeAccount, nil
}

// Init resolves the session and publishes fresh state: the account's when
// signed in, the guest's otherwise or when the account rejects the token.
func (s *Storefront) Init(ctx context.Context) (cart.State, *session.User, error) {
	user, err := s.session.CurrentUser(ctx)
	if err != nil {
		return cart.State{}, nil, err
	}

	if user != nil {
		snap, err := s.account.Snapshot(ctx)
		switch {
		case err == nil:
			state := cart.State{Mode: enums.CartModeAccount, Cart: snap.Cart, Wishlist: snap.Wishlist}
			s.states.Publish(state)
			return state, user, nil
		case !pkgerrors.EndsSession(err):
			return cart.State{}, user, err
		}
		user = nil
	}

	snap, err := s.guest.Snapshot(ctx)
	if err != nil {
		return cart.State{}, nil, err
	}
	state := cart.State{Mode: enums.CartModeGuest, Cart: snap.Cart, Wishlist: snap.Wishlist}
	s.states.Publish(state)
	return state, user, nil
}

// BadgeCounts returns cart units and wishlist entries for the header badge.
func (s *Storefront) BadgeCounts(ctx context.Context) (items int, wishes int, err error) {
	mode, err := s.Mode(ctx)
	if err != nil {
		return 0, 0, err
	}
	if mode == enums.CartModeGuest {
		snap, err := s.guest.Snapshot(ctx)
		if err != nil {
			return 0, 0, err
		}
		items, wishes = cart.State{Cart: snap.Cart, Wishlist: snap.Wishlist}.Badge()
		return items, wishes, nil
	}

	snap, ok := s.account.Cached()
	if !ok {
		if snap, err = s.account.Snapshot(ctx); err != nil {
			return 0, 0, err
		}
	}
	items, wishes = cart.State{Cart: snap.Cart, Wishlist: snap.Wishlist}.Badge()
	return items, wishes, nil
}

// publish announces the active state. Parts not passed in are read from the
// guest store or the account cache.
func (s *Storefront) publish(ctx context.Context, c *cart.Cart, w *cart.Wishlist) {
	state, err := s.state(ctx, c, w)
	if err != nil {
		s.logg.WarnErr(ctx, "building cart state", err)
		return
	}
	s.states.Publish(state)
}

func (s *Storefront) state(ctx context.Context, c *cart.Cart, w *cart.Wishlist) (cart.State, error) {
	mode, err := s.Mode(ctx)
	if err != nil {
		return cart.State{}, err
	}
	state := cart.State{Mode: mode}

	if mode == enums.CartModeAccount {
		cached, _ := s.account.Cached()
		state.Cart, state.Wishlist = cached.Cart, cached.Wishlist
	} else {
		if c == nil {
			if state.Cart, err = s.guest.Cart(ctx); err != nil {
				return cart.State{}, err
			}
		}
		if w == nil {
			if state.Wishlist, err = s.guest.Wishlist(ctx); err != nil {
				return cart.State{}, err
			}
		}
	}
	if c != nil {
		state.Cart = *c
	}
	if w != nil {
		state.Wishlist = *w
	}
	return state, nil
}
