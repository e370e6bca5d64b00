/*
Package game
File: state.go
Description:
    The economy engine. It owns the only mutable state of the game:
    the balance, the inventory and the cached per-click / per-second rates.

    Every mutation goes through an action (Click, Buy/Purchase, Settle,
    Reload) which runs to completion under the engine lock, persists the
    result and signals the observers.
*/

package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/everforgeworks/diggis-clicker/internal/clock"
	"github.com/everforgeworks/diggis-clicker/internal/storage"
)

var (
	ErrUnknownUpgrade    = errors.New("game: unknown upgrade")
	ErrInsufficientFunds = errors.New("game: insufficient funds")
)

// saveTimeout bounds a single persistence write.
const saveTimeout = 2 * time.Second

// Options configures NewEngine. Catalog and Store are required.
type Options struct {
	Catalog *Catalog
	Store   storage.KV
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Engine is the economy engine. It is safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	catalog   *Catalog
	persist   *Persistence
	observers Observers
	clk       clock.Clock
	log       *slog.Logger

	balance       float64
	inventory     Inventory
	perClick      float64
	perSecond     float64
	lastSettledAt time.Time
}

// NewEngine validates the catalog, loads the persisted progress and
// computes the starting rates.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, errors.New("game: catalog is required")
	}
	if opts.Store == nil {
		return nil, errors.New("game: store is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := &Engine{
		catalog: opts.Catalog,
		persist: NewPersistence(opts.Store, opts.Logger),
		clk:     opts.Clock,
		log:     opts.Logger,
	}

	for _, d := range e.catalog.Validate() {
		e.log.Error("invalid upgrade", "index", d.Index, "key", d.Key, "problem", d.Problem)
	}

	e.load()
	e.lastSettledAt = e.clk.Now()
	return e, nil
}

// Subscribe adds an observer. Signals reach observers in subscription order.
func (e *Engine) Subscribe(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// Click adds the current per-click rate to the balance.
func (e *Engine) Click() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.balance += e.perClick
	e.saveBalance()
	e.observers.OnBalanceChanged(e.balance)
	e.log.Debug("click registered", "added", e.perClick, "balance", e.balance)
}

// Buy attempts one purchase of key. It returns false when the key is
// unknown or the balance does not cover the current price; in that case
// nothing changes.
func (e *Engine) Buy(key string) bool {
	_, err := e.Purchase(key)
	return err == nil
}

// Purchase is Buy with the reason for a rejection and the details of an
// authorized purchase.
func (e *Engine) Purchase(key string) (Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.catalog.Lookup(key)
	if !ok || !u.Purchasable() {
		e.log.Debug("purchase rejected: unknown upgrade", "key", key)
		return Receipt{}, ErrUnknownUpgrade
	}

	price := UpgradePrice(u, e.inventory.Count(key))
	if e.balance < price {
		e.log.Debug("purchase rejected: insufficient funds", "key", key, "price", price, "balance", e.balance)
		return Receipt{}, ErrInsufficientFunds
	}

	e.balance -= price
	e.inventory[key] = e.inventory.Count(key) + 1
	e.refreshRate(u.Category)

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := e.persist.Save(ctx, e.balance, e.inventory); err != nil {
		e.log.Error("saving progress failed", "error", err)
	}

	next := UpgradePrice(u, e.inventory[key])
	e.observers.OnBalanceChanged(e.balance)
	e.observers.OnRatesChanged(e.perClick, e.perSecond)
	e.observers.OnInventoryChanged(e.inventory)
	e.observers.OnPriceChanged(key, next)

	e.log.Info("purchase authorized", "key", key, "price", price, "owned", e.inventory[key])
	return Receipt{
		Key:       key,
		Paid:      price,
		Owned:     e.inventory[key],
		NextPrice: next,
		Balance:   e.balance,
	}, nil
}

// Price returns the current price of key, or 0 for an unknown key.
func (e *Engine) Price(key string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.price(key)
}

func (e *Engine) price(key string) float64 {
	u, ok := e.catalog.Lookup(key)
	if !ok {
		return 0
	}
	return UpgradePrice(u, e.inventory.Count(key))
}

// Catalog returns the upgrade definitions in shop order.
func (e *Engine) Catalog() []Upgrade {
	return e.catalog.Upgrades()
}

// Diagnostics re-runs catalog validation.
func (e *Engine) Diagnostics() []Diagnostic {
	return e.catalog.Validate()
}

// Snapshot returns a copy of the current state with every catalog price.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Engine) snapshot() State {
	prices := make(map[string]float64, e.catalog.Len())
	for _, u := range e.catalog.upgrades {
		if u.Key != "" {
			prices[u.Key] = e.price(u.Key)
		}
	}
	return State{
		Balance:   e.balance,
		PerClick:  e.perClick,
		PerSecond: e.perSecond,
		Inventory: e.inventory.Clone(),
		Prices:    prices,
	}
}

// Settle credits passive income for the whole seconds elapsed since the
// previous settlement and returns the amount minted. Fractions of a second
// carry over to the next call.
func (e *Engine) Settle() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := int64(e.clk.Now().Sub(e.lastSettledAt) / time.Second)
	if elapsed <= 0 {
		return 0
	}
	e.lastSettledAt = e.lastSettledAt.Add(time.Duration(elapsed) * time.Second)

	minted := e.perSecond * float64(elapsed)
	if minted <= 0 {
		return 0
	}
	e.balance += minted
	e.saveBalance()
	e.observers.OnBalanceChanged(e.balance)
	return minted
}

// Reload replaces the in-memory state with what is persisted and
// re-signals every view.
func (e *Engine) Reload() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.load()
	e.observers.OnBalanceChanged(e.balance)
	e.observers.OnRatesChanged(e.perClick, e.perSecond)
	e.observers.OnInventoryChanged(e.inventory)
	for _, u := range e.catalog.upgrades {
		if u.Key != "" {
			e.observers.OnPriceChanged(u.Key, e.price(u.Key))
		}
	}
	return e.snapshot()
}

// load must be called with e.mu held (or before the engine is shared).
func (e *Engine) load() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	e.balance, e.inventory = e.persist.Load(ctx, e.catalog)
	e.refreshRate(PerClick)
	e.refreshRate(PerSecond)
}

func (e *Engine) refreshRate(category Category) {
	rate, ok := settleRate(category, Aggregate(e.catalog, e.inventory, category))
	if !ok {
		e.log.Warn("rate was unusable, reset to floor", "category", category, "floor", rate)
	}
	switch category {
	case PerClick:
		e.perClick = rate
	case PerSecond:
		e.perSecond = rate
	}
}

// saveBalance persists the balance; failures are logged and the in-memory
// balance stays authoritative until the next successful write.
func (e *Engine) saveBalance() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := e.persist.SaveBalance(ctx, e.balance); err != nil {
		e.log.Error("saving balance failed", "error", err)
	}
}
