/*
Package game
File: models.go
Description:
    Defines the data structures of the Diggis economy.
    Upgrade definitions map to 'catalog.yaml'; State is the snapshot handed
    to the view layer (REST responses and websocket pushes).

    No logic beyond small accessors is performed here.
*/

package game

import "math"

// Category decides which aggregate rate an upgrade contributes to.
type Category int

const (
	// CategoryUnknown marks a catalog entry whose type could not be parsed.
	CategoryUnknown Category = iota
	PerClick
	PerSecond
)

// Catalog vocabulary for the two categories.
const (
	perClickName  = "perClickUpgrade"
	perSecondName = "perSecondUpgrade"
)

// ParseCategory maps a catalog type string onto a Category.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case perClickName:
		return PerClick, true
	case perSecondName:
		return PerSecond, true
	}
	return CategoryUnknown, false
}

func (c Category) String() string {
	switch c {
	case PerClick:
		return perClickName
	case PerSecond:
		return perSecondName
	}
	return "unknown"
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	return c == PerClick || c == PerSecond
}

// Floor is the rate a category falls back to when its aggregate is unusable.
// It is also the seed of the aggregate sum: a click is worth 1 before any upgrade.
func (c Category) Floor() float64 {
	if c == PerClick {
		return 1
	}
	return 0
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Upgrade is one immutable catalog entry.
//
// Effect carries the magnitude for the entry's own category only (Diggis per
// click for PerClick, Diggis per second for PerSecond). Fields absent from the
// catalog file are NaN so the pricing and accrual code can skip them.
type Upgrade struct {
	Key         string   `json:"key"`
	Category    Category `json:"category"`
	BasePrice   float64  `json:"base_price"`
	Effect      float64  `json:"effect"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

// Purchasable reports whether the entry can be priced and bought.
func (u Upgrade) Purchasable() bool {
	return u.Key != "" && finite(u.BasePrice) && u.BasePrice > 0
}

// State is a point-in-time copy of the economy handed to the view layer.
type State struct {
	Balance   float64            `json:"balance"`
	PerClick  float64            `json:"per_click"`
	PerSecond float64            `json:"per_second"`
	Inventory Inventory          `json:"inventory"`
	Prices    map[string]float64 `json:"prices"`
}

// Receipt describes an authorized purchase.
type Receipt struct {
	Key       string  `json:"key"`
	Paid      float64 `json:"paid"`
	Owned     int     `json:"owned"`
	NextPrice float64 `json:"next_price"`
	Balance   float64 `json:"balance"`
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
