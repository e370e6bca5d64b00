/*
Package game
File: economy.go
Description:
    The pricing and accrual rules of the economy.
    1. Upgrade prices escalate by a fixed multiplier per unit owned.
    2. Per-click and per-second rates are summed from the inventory.

    Both are pure functions of Catalog + Inventory. Neither trusts the
    catalog: missing or NaN numbers are skipped, never propagated.
*/

package game

import "math"

// PriceMultiplier is the growth factor applied to a price per unit owned.
const PriceMultiplier = 1.2

// UpgradePrice returns round2(basePrice * 1.2^owned).
// An entry without a usable base price costs 0 and is not purchasable.
func UpgradePrice(u Upgrade, owned int) float64 {
	if !u.Purchasable() {
		return 0
	}
	if owned < 0 {
		owned = 0
	}
	return round2(u.BasePrice * math.Pow(PriceMultiplier, float64(owned)))
}

// Aggregate sums owned * effect over the catalog entries of one category,
// seeded with the category floor (1 per click, 0 per second).
// The result can still be NaN or out of range; callers clamp it with settleRate.
func Aggregate(c *Catalog, inv Inventory, category Category) float64 {
	total := category.Floor()
	for _, u := range c.upgrades {
		if u.Category != category {
			continue
		}
		count := inv.Count(u.Key)
		if count == 0 || !finite(u.Effect) {
			continue
		}
		total += float64(count) * u.Effect
	}
	return total
}

// settleRate replaces an unusable aggregate with the category floor.
// ok is false when the value had to be replaced.
func settleRate(category Category, rate float64) (float64, bool) {
	switch {
	case math.IsNaN(rate):
		return category.Floor(), false
	case category == PerClick && rate <= 0:
		return category.Floor(), false
	case rate < 0:
		return category.Floor(), false
	}
	return rate, true
}

// round2 rounds to the cent: scale by 100, round half up, divide.
func round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}
