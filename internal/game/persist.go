/*
Package game
File: persist.go
Description:
    Persistence adapter between the engine and durable storage.

    Layout (fixed keys):
    - "balance":   decimal string of the balance, e.g. "12.5"
    - "inventory": JSON object of upgrade key -> owned count

    Loading never fails. Anything missing or corrupted is replaced with its
    zero value and logged; the player keeps playing.
*/

package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/everforgeworks/diggis-clicker/internal/storage"
)

// Storage keys.
const (
	BalanceKey   = "balance"
	InventoryKey = "inventory"
)

// Persistence reads and writes the economy's durable state.
type Persistence struct {
	kv  storage.KV
	log *slog.Logger
}

func NewPersistence(kv storage.KV, logger *slog.Logger) *Persistence {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persistence{kv: kv, log: logger}
}

// SaveBalance stores the balance in its decimal string form.
func (p *Persistence) SaveBalance(ctx context.Context, balance float64) error {
	if !finite(balance) {
		return fmt.Errorf("save balance: not a finite number: %v", balance)
	}
	if err := p.kv.Set(ctx, BalanceKey, decimal.NewFromFloat(balance).String()); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

// SaveInventory stores the inventory as a JSON object.
func (p *Persistence) SaveInventory(ctx context.Context, inv Inventory) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	if err := p.kv.Set(ctx, InventoryKey, string(data)); err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}
	return nil
}

// Save writes both keys. A failure of one does not skip the other.
func (p *Persistence) Save(ctx context.Context, balance float64, inv Inventory) error {
	return errors.Join(p.SaveBalance(ctx, balance), p.SaveInventory(ctx, inv))
}

// Load returns the stored balance and inventory, defaulting each one on its own.
func (p *Persistence) Load(ctx context.Context, c *Catalog) (float64, Inventory) {
	return p.loadBalance(ctx), p.loadInventory(ctx, c)
}

func (p *Persistence) loadBalance(ctx context.Context) float64 {
	raw, err := p.kv.Get(ctx, BalanceKey)
	if err != nil {
		p.logReadFailure(BalanceKey, err)
		p.log.Info("no valid balance found, reset to 0")
		return 0
	}

	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		p.log.Warn("stored balance is not a number, reset to 0", "value", raw, "error", err)
		return 0
	}
	balance, _ := d.Float64()
	switch {
	case !finite(balance):
		p.log.Warn("stored balance out of range, reset to 0", "value", raw)
		return 0
	case balance < 0:
		p.log.Warn("stored balance negative, clamped to 0", "value", raw)
		return 0
	}
	p.log.Info("loaded balance", "balance", balance)
	return balance
}

func (p *Persistence) loadInventory(ctx context.Context, c *Catalog) Inventory {
	raw, err := p.kv.Get(ctx, InventoryKey)
	if err != nil {
		p.logReadFailure(InventoryKey, err)
		p.log.Info("no inventory found, reset to empty")
		return ZeroInventory(c)
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		p.log.Warn("error parsing inventory, reset to empty", "error", err)
		return ZeroInventory(c)
	}
	object, ok := decoded.(map[string]any)
	if !ok {
		p.log.Warn("invalid inventory found, reset to empty", "value", raw)
		return ZeroInventory(c)
	}

	// Keys unknown to the catalog are kept: they are never read by the
	// accrual code and survive a catalog downgrade.
	inv := make(Inventory, len(object))
	for key, v := range object {
		n, ok := v.(float64)
		if !ok || n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
			p.log.Warn("dropping invalid inventory count", "key", key, "value", v)
			continue
		}
		inv[key] = int(n)
	}
	p.log.Info("loaded inventory", "entries", len(inv))
	return inv
}

func (p *Persistence) logReadFailure(key string, err error) {
	if !errors.Is(err, storage.ErrNotFound) {
		p.log.Error("storage read failed", "key", key, "error", err)
	}
}
