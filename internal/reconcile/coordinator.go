// Package reconcile merges the guest cart and wishlist into the account
// after a successful sign-in.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/maison-storefront/internal/cart"
	"github.com/angelmondragon/maison-storefront/internal/notify"
	"github.com/angelmondragon/maison-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
	"github.com/angelmondragon/maison-storefront/pkg/metrics"
	"go.uber.org/multierr"
)

const (
	kindCart     = "cart"
	kindWishlist = "wishlist"
)

// API is the part of the REST client used during migration.
type API interface {
	AddToCart(ctx context.Context, token, productID string, qty int) (*cart.Cart, error)
	AddToWishlist(ctx context.Context, token, productID string) error
	GetCart(ctx context.Context, token string) (cart.Cart, error)
	GetWishlist(ctx context.Context, token string) (cart.Wishlist, error)
}

type Params struct {
	API     API
	Guest   *cart.Guest
	States  *notify.Bus[cart.State]
	Metrics *metrics.ClientMetrics
	Logger  *logger.Logger
}

// Coordinator runs at most one migration at a time.
type Coordinator struct {
	api     API
	guest   *cart.Guest
	states  *notify.Bus[cart.State]
	metrics *metrics.ClientMetrics
	logg    *logger.Logger

	mu    sync.Mutex
	state enums.MigrationState
}

func NewCoordinator(params Params) *Coordinator {
	c := &Coordinator{
		api:     params.API,
		guest:   params.Guest,
		states:  params.States,
		metrics: params.Metrics,
		logg:    params.Logger,
		state:   enums.MigrationStateIdle,
	}
	if c.states == nil {
		c.states = notify.NewBus[cart.State]()
	}
	if c.logg == nil {
		c.logg = logger.Nop()
	}
	return c
}

// Result summarizes one migration. Failures aggregates per-line errors;
// they never fail the migration itself.
type Result struct {
	CartLines       int
	CartMerged      int
	CartCleared     bool
	WishlistLines   int
	WishlistMerged  int
	WishlistCleared bool
	Failures        error
	// State is the canonical account state; Published is false when it
	// could not be fetched.
	State     cart.State
	Published bool
}

func (c *Coordinator) enter() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == enums.MigrationStateMigrating {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "guest data is already being merged")
	}
	c.state = enums.MigrationStateMigrating
	return nil
}

func (c *Coordinator) leave() {
	c.mu.Lock()
	c.state = enums.MigrationStateIdle
	c.mu.Unlock()
}

// Reconcile migrates guest lines one request at a time, clears guest storage
// once the attempt is complete, then publishes the canonical account state.
// Guest storage is kept when no request reached the server. A rejected token
// aborts without touching guest storage and is returned.
func (c *Coordinator) Reconcile(ctx context.Context, token string) (Result, error) {
	if err := c.enter(); err != nil {
		return Result{}, err
	}
	defer c.leave()

	logCtx := c.logg.WithField(c.logg.WithComponent(ctx, "reconcile"), "event", "reconcile")
	var res Result

	snap, err := c.guest.Snapshot(logCtx)
	if err != nil {
		return res, fmt.Errorf("read guest snapshot: %w", err)
	}
	res.CartLines = len(snap.Cart.Lines)
	res.WishlistLines = len(snap.Wishlist.Lines)

	if err := c.migrateCart(logCtx, token, snap.Cart, &res); err != nil {
		return res, err
	}
	if err := c.migrateWishlist(logCtx, token, snap.Wishlist, &res); err != nil {
		return res, err
	}
	if err := c.publish(logCtx, token, &res); err != nil {
		return res, err
	}

	reportCtx := c.logg.WithFields(logCtx, map[string]any{
		"cart_lines":      res.CartLines,
		"cart_merged":     res.CartMerged,
		"wishlist_lines":  res.WishlistLines,
		"wishlist_merged": res.WishlistMerged,
		"failures":        len(multierr.Errors(res.Failures)),
	})
	c.logg.Info(reportCtx, "guest data reconciled")
	return res, nil
}

func (c *Coordinator) migrateCart(ctx context.Context, token string, guestCart cart.Cart, res *Result) error {
	if len(guestCart.Lines) == 0 {
		return nil
	}
	reached := 0
	for _, line := range guestCart.Lines {
		lineCtx := c.logg.WithLineID(ctx, line.LineID)
		_, err := c.api.AddToCart(lineCtx, token, line.ProductID, line.Quantity)
		outcome := c.record(lineCtx, kindCart, line.ProductID, err, res)
		if outcome == "" {
			return err
		}
		if outcome == enums.LineOutcomeMerged {
			res.CartMerged++
		}
		if outcome != enums.LineOutcomeUnreachable {
			reached++
		}
	}

	if reached == 0 {
		c.logg.Warn(ctx, "store unreachable, keeping guest cart for a later sign-in")
		return nil
	}
	if _, err := c.guest.Clear(ctx); err != nil {
		res.Failures = multierr.Append(res.Failures, fmt.Errorf("clear guest cart: %w", err))
		return nil
	}
	res.CartCleared = true
	return nil
}

func (c *Coordinator) migrateWishlist(ctx context.Context, token string, wishlist cart.Wishlist, res *Result) error {
	if len(wishlist.Lines) == 0 {
		return nil
	}
	reached := 0
	for _, line := range wishlist.Lines {
		lineCtx := c.logg.WithField(ctx, "product_id", line.ProductID)
		err := c.api.AddToWishlist(lineCtx, token, line.ProductID)
		if pkgerrors.Is(err, pkgerrors.CodeAlreadyExists) {
			err = nil
		}
		outcome := c.record(lineCtx, kindWishlist, line.ProductID, err, res)
		if outcome == "" {
			return err
		}
		if outcome == enums.LineOutcomeMerged {
			res.WishlistMerged++
		}
		if outcome != enums.LineOutcomeUnreachable {
			reached++
		}
	}

	if reached == 0 {
		c.logg.Warn(ctx, "store unreachable, keeping guest wishlist for a later sign-in")
		return nil
	}
	if _, err := c.guest.ClearWishlist(ctx); err != nil {
		res.Failures = multierr.Append(res.Failures, fmt.Errorf("clear guest wishlist: %w", err))
		return nil
	}
	res.WishlistCleared = true
	return nil
}

// record classifies one line attempt. An empty outcome means the session was
// rejected and the migration must stop.
func (c *Coordinator) record(ctx context.Context, kind, productID string, err error, res *Result) enums.LineOutcome {
	var outcome enums.LineOutcome
	switch {
	case err == nil:
		outcome = enums.LineOutcomeMerged
	case pkgerrors.EndsSession(err):
		c.logg.WarnErr(ctx, "session rejected during reconciliation", err)
		return ""
	case pkgerrors.Is(err, pkgerrors.CodeNetwork):
		outcome = enums.LineOutcomeUnreachable
	default:
		outcome = enums.LineOutcomeFailed
	}
	c.metrics.IncMigrationLine(kind, outcome.String())
	if err != nil {
		c.logg.WarnErr(ctx, "guest "+kind+" line not merged", err)
		res.Failures = multierr.Append(res.Failures, fmt.Errorf("%s %s: %w", kind, productID, err))
	}
	return outcome
}

func (c *Coordinator) publish(ctx context.Context, token string, res *Result) error {
	accountCart, err := c.api.GetCart(ctx, token)
	if err == nil {
		var wishlist cart.Wishlist
		wishlist, err = c.api.GetWishlist(ctx, token)
		if err == nil {
			res.State = cart.State{Mode: enums.CartModeAccount, Cart: accountCart, Wishlist: wishlist}
			res.Published = true
			c.states.Publish(res.State)
			return nil
		}
	}
	if pkgerrors.EndsSession(err) {
		return err
	}
	c.logg.WarnErr(ctx, "could not fetch account state after reconciliation", err)
	res.Failures = multierr.Append(res.Failures, fmt.Errorf("fetch account state: %w", err))
	return nil
}
