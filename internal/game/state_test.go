package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/everforgeworks/diggis-clicker/internal/storage"
)

func TestNewEngineRequiresCatalogAndStore(t *testing.T) {
	_, err := NewEngine(Options{Store: storage.NewMemory()})
	assert.Error(t, err)

	_, err = NewEngine(Options{Catalog: testCatalog(t)})
	assert.Error(t, err)
}

func TestNewEngineInitialState(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	got := e.Snapshot()
	assert.Equal(t, 0.0, got.Balance)
	assert.Equal(t, 1.0, got.PerClick)
	assert.Equal(t, 0.0, got.PerSecond)
	assert.Equal(t, ZeroInventory(testCatalog(t)), got.Inventory)
	assert.Equal(t, map[string]float64{
		"bronzeClicker":  10,
		"silverClicker":  50,
		"goldenClicker":  250,
		"susanneDaubner": 1000,
		"teenager":       1000000,
	}, got.Prices)
}

func TestNewEngineRestoresProgress(t *testing.T) {
	kv := seededStore(t, "99.5", `{"bronzeClicker":2,"susanneDaubner":3}`)
	e, _ := newTestEngine(t, kv)

	got := e.Snapshot()
	assert.Equal(t, 99.5, got.Balance)
	assert.InDelta(t, 1.2, got.PerClick, 1e-9)
	assert.Equal(t, 3.0, got.PerSecond)
	assert.Equal(t, 14.4, e.Price("bronzeClicker"))
}

func TestClickThenBuyScenario(t *testing.T) {
	kv := storage.NewMemory()
	e, _ := newTestEngine(t, kv)

	e.Click()
	assert.Equal(t, 1.0, e.Snapshot().Balance)

	for i := 0; i < 9; i++ {
		e.Click()
	}
	assert.Equal(t, 10.0, e.Snapshot().Balance)

	require.True(t, e.Buy("bronzeClicker"))

	got := e.Snapshot()
	assert.Equal(t, 0.0, got.Balance)
	assert.Equal(t, 1, got.Inventory["bronzeClicker"])
	assert.InDelta(t, 1.10, got.PerClick, 1e-9)
	assert.Equal(t, 12.0, e.Price("bronzeClicker"))

	// Both keys were persisted after the purchase.
	stored, err := kv.Get(context.Background(), BalanceKey)
	require.NoError(t, err)
	assert.Equal(t, "0", stored)
	stored, err = kv.Get(context.Background(), InventoryKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bronzeClicker":1,"silverClicker":0,"goldenClicker":0,"susanneDaubner":0,"teenager":0}`, stored)
}

func TestBuyRejectedWithoutFunds(t *testing.T) {
	e, obs := newTestEngine(t, nil)
	before := e.Snapshot()

	assert.False(t, e.Buy("goldenClicker"))

	_, err := e.Purchase("goldenClicker")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Equal(t, before, e.Snapshot())
	assert.Empty(t, obs.names(), "a rejected purchase signals nothing")
}

func TestBuyUnknownKey(t *testing.T) {
	e, obs := newTestEngine(t, seededStore(t, "1000", ""))

	assert.False(t, e.Buy("platinumClicker"))
	_, err := e.Purchase("platinumClicker")
	assert.ErrorIs(t, err, ErrUnknownUpgrade)

	assert.Equal(t, 1000.0, e.Snapshot().Balance)
	assert.Zero(t, e.Price("platinumClicker"))
	assert.Empty(t, obs.names())
}

func TestBuyExactBalance(t *testing.T) {
	e, _ := newTestEngine(t, seededStore(t, "250", ""))

	receipt, err := e.Purchase("goldenClicker")
	require.NoError(t, err)
	assert.Equal(t, Receipt{Key: "goldenClicker", Paid: 250, Owned: 1, NextPrice: 300, Balance: 0}, receipt)
	assert.InDelta(t, 6.0, e.Snapshot().PerClick, 1e-9)
}

func TestBuyPerSecondUpgrade(t *testing.T) {
	e, _ := newTestEngine(t, seededStore(t, "2200", ""))

	require.True(t, e.Buy("susanneDaubner"))
	require.True(t, e.Buy("susanneDaubner"))
	assert.False(t, e.Buy("susanneDaubner"), "third costs 1440 with 0 left")

	got := e.Snapshot()
	assert.Equal(t, 2.0, got.PerSecond)
	assert.Equal(t, 1.0, got.PerClick)
	assert.Equal(t, 0.0, got.Balance)
	assert.Equal(t, 1440.0, got.Prices["susanneDaubner"])
}

func TestBuySignalsViews(t *testing.T) {
	e, obs := newTestEngine(t, seededStore(t, "60", ""))

	require.True(t, e.Buy("silverClicker"))

	assert.Equal(t, []string{"balance", "rates", "rates", "inventory", "price"}, obs.names())
	assert.Equal(t, signal{Name: "balance", Value: 10}, obs.signals[0])
	assert.Equal(t, signal{Name: "rates", Key: "perClick", Value: 1.5}, obs.signals[1])
	assert.Equal(t, 1, obs.signals[3].Inv["silverClicker"])
	assert.Equal(t, signal{Name: "price", Key: "silverClicker", Value: 60}, obs.signals[4])

	// The inventory handed to observers is a copy.
	obs.signals[3].Inv["silverClicker"] = 40
	assert.Equal(t, 1, e.Snapshot().Inventory["silverClicker"])
}

func TestClickSignalsAndPersistsBalance(t *testing.T) {
	kv := storage.NewMemory()
	e, obs := newTestEngine(t, kv)

	e.Click()
	e.Click()

	assert.Equal(t, []string{"balance", "balance"}, obs.names())
	assert.Equal(t, 2.0, obs.signals[1].Value)

	stored, err := kv.Get(context.Background(), BalanceKey)
	require.NoError(t, err)
	assert.Equal(t, "2", stored)
}

func TestStorageFailureIsNotFatal(t *testing.T) {
	e, _ := newTestEngine(t, failingKV{seededStore(t, "15", "")})

	e.Click()
	require.True(t, e.Buy("bronzeClicker"))

	got := e.Snapshot()
	assert.Equal(t, 6.0, got.Balance)
	assert.Equal(t, 1, got.Inventory["bronzeClicker"])
}

func TestSettlePassiveIncome(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := newFakeClock(start)
	kv := seededStore(t, "0", `{"susanneDaubner":2}`)
	e, err := NewEngine(Options{Catalog: testCatalog(t), Store: kv, Clock: clk, Logger: discardLogger()})
	require.NoError(t, err)
	obs := &recordingObserver{}
	e.Subscribe(obs)

	assert.Zero(t, e.Settle(), "no time has passed")

	clk.Advance(1500 * time.Millisecond)
	assert.Equal(t, 2.0, e.Settle())

	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, 2.0, e.Settle(), "the leftover half second carries over")

	clk.Advance(10 * time.Second)
	assert.Equal(t, 20.0, e.Settle())

	assert.Equal(t, 24.0, e.Snapshot().Balance)
	assert.Equal(t, []string{"balance", "balance", "balance"}, obs.names())

	stored, err := kv.Get(context.Background(), BalanceKey)
	require.NoError(t, err)
	assert.Equal(t, "24", stored)
}

func TestSettleWithoutPassiveIncome(t *testing.T) {
	clk := newFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	e, err := NewEngine(Options{Catalog: testCatalog(t), Store: storage.NewMemory(), Clock: clk, Logger: discardLogger()})
	require.NoError(t, err)

	clk.Advance(time.Minute)
	assert.Zero(t, e.Settle())
	assert.Zero(t, e.Snapshot().Balance)
}

func TestReloadReadsPersistedState(t *testing.T) {
	kv := storage.NewMemory()
	e, obs := newTestEngine(t, kv)
	e.Click()
	obs.reset()

	require.NoError(t, kv.Set(context.Background(), BalanceKey, "500"))
	require.NoError(t, kv.Set(context.Background(), InventoryKey, `{"goldenClicker":1}`))

	got := e.Reload()
	assert.Equal(t, 500.0, got.Balance)
	assert.InDelta(t, 6.0, got.PerClick, 1e-9)
	assert.Equal(t, 300.0, got.Prices["goldenClicker"])

	names := obs.names()
	require.Len(t, names, 1+2+1+5)
	assert.Equal(t, []string{"balance", "rates", "rates", "inventory"}, names[:4])
}

func TestReloadWithCorruptedState(t *testing.T) {
	kv := storage.NewMemory()
	e, _ := newTestEngine(t, kv)

	require.NoError(t, kv.Set(context.Background(), BalanceKey, "not a number"))
	require.NoError(t, kv.Set(context.Background(), InventoryKey, "{{{"))

	got := e.Reload()
	assert.Equal(t, 0.0, got.Balance)
	assert.Equal(t, ZeroInventory(testCatalog(t)), got.Inventory)
	assert.Equal(t, 1.0, got.PerClick)
}

func TestSnapshotReturnsCopy(t *testing.T) {
	e, _ := newTestEngine(t, seededStore(t, "", `{"bronzeClicker":1}`))

	snap := e.Snapshot()
	snap.Inventory["bronzeClicker"] = 99
	snap.Prices["bronzeClicker"] = 0

	again := e.Snapshot()
	assert.Equal(t, 1, again.Inventory["bronzeClicker"])
	assert.Equal(t, 12.0, again.Prices["bronzeClicker"])
}

func TestMalformedCatalogEntryIsNeverSold(t *testing.T) {
	c, err := ParseCatalog([]byte(`
upgrades:
  - key: broken
    type: perClickUpgrade
    adds_per_click: 100
  - key: fine
    type: perClickUpgrade
    price: 1
    adds_per_click: 1
`), "Diggis")
	require.NoError(t, err)
	e, err := NewEngine(Options{Catalog: c, Store: seededStore(t, "50", ""), Logger: discardLogger()})
	require.NoError(t, err)

	assert.Zero(t, e.Price("broken"))
	assert.False(t, e.Buy("broken"))
	assert.True(t, e.Buy("fine"))
	assert.Len(t, e.Diagnostics(), 1)
}

func TestEngineConcurrentClicks(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	const workers = 50
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				e.Click()
				e.Buy("bronzeClicker")
				_ = e.Snapshot()
			}
		}()
	}
	wg.Wait()

	got := e.Snapshot()
	assert.GreaterOrEqual(t, got.Balance, 0.0)
	assert.Positive(t, got.Inventory["bronzeClicker"])
}

func TestBalanceNeverNegative(t *testing.T) {
	keys := []string{"bronzeClicker", "silverClicker", "goldenClicker", "susanneDaubner", "teenager", "unknown"}
	catalog := testCatalog(t)

	rapid.Check(t, func(t *rapid.T) {
		e, err := NewEngine(Options{Catalog: catalog, Store: storage.NewMemory(), Logger: discardLogger()})
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}

		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "click") {
				e.Click()
				continue
			}
			key := rapid.SampledFrom(keys).Draw(t, "key")
			before := e.Snapshot()
			ok := e.Buy(key)
			after := e.Snapshot()

			if ok != (key != "unknown" && before.Balance >= before.Prices[key]) {
				t.Fatalf("buy(%s) = %v with balance %v and price %v", key, ok, before.Balance, before.Prices[key])
			}
			if after.Balance < 0 {
				t.Fatalf("balance went negative: %v", after.Balance)
			}
			if !ok && after.Balance != before.Balance {
				t.Fatalf("rejected purchase changed the balance")
			}
		}
	})
}
