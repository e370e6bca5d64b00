package game

// Inventory maps an upgrade key to the number of units owned.
// Keys that are absent count as zero.
type Inventory map[string]int

// Count returns the owned count for key; negative counts read as zero.
func (inv Inventory) Count(key string) int {
	if n := inv[key]; n > 0 {
		return n
	}
	return 0
}

// Clone returns an independent copy.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}

// ZeroInventory returns an inventory holding a zero count for every catalog key.
func ZeroInventory(c *Catalog) Inventory {
	inv := make(Inventory, c.Len())
	for _, u := range c.upgrades {
		if u.Key != "" {
			inv[u.Key] = 0
		}
	}
	return inv
}
