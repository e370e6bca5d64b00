package game

// Observer receives the engine's change signals. The engine calls it
// synchronously while it holds its lock, so implementations must not call
// back into the engine; they get copies and may keep them.
type Observer interface {
	OnBalanceChanged(balance float64)
	OnRatesChanged(perClick, perSecond float64)
	OnInventoryChanged(inv Inventory)
	OnPriceChanged(key string, price float64)
}

// NopObserver ignores every signal.
type NopObserver struct{}

func (NopObserver) OnBalanceChanged(float64) {}
func (NopObserver) OnRatesChanged(float64, float64) {}
func (NopObserver) OnInventoryChanged(Inventory) {}
func (NopObserver) OnPriceChanged(string, float64) {}

// Observers fans every signal out to each member in order.
type Observers []Observer

func (obs Observers) OnBalanceChanged(balance float64) {
	for _, o := range obs {
		o.OnBalanceChanged(balance)
	}
}

func (obs Observers) OnRatesChanged(perClick, perSecond float64) {
	for _, o := range obs {
		o.OnRatesChanged(perClick, perSecond)
	}
}

func (obs Observers) OnInventoryChanged(inv Inventory) {
	for _, o := range obs {
		o.OnInventoryChanged(inv.Clone())
	}
}

func (obs Observers) OnPriceChanged(key string, price float64) {
	for _, o := range obs {
		o.OnPriceChanged(key, price)
	}
}
