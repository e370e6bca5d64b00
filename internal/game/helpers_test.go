package game

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/everforgeworks/diggis-clicker/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// signal is one observer call, flattened for easy comparison.
type signal struct {
	Name  string
	Key   string
	Value float64
	Inv   Inventory
}

type recordingObserver struct {
	mu      sync.Mutex
	signals []signal
}

func (r *recordingObserver) add(s signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
}

func (r *recordingObserver) OnBalanceChanged(balance float64) {
	r.add(signal{Name: "balance", Value: balance})
}

func (r *recordingObserver) OnRatesChanged(perClick, perSecond float64) {
	r.add(signal{Name: "rates", Value: perClick, Key: "perClick"})
	r.add(signal{Name: "rates", Value: perSecond, Key: "perSecond"})
}

func (r *recordingObserver) OnInventoryChanged(inv Inventory) {
	r.add(signal{Name: "inventory", Inv: inv})
}

func (r *recordingObserver) OnPriceChanged(key string, price float64) {
	r.add(signal{Name: "price", Key: key, Value: price})
}

func (r *recordingObserver) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.signals))
	for _, s := range r.signals {
		out = append(out, s.Name)
	}
	return out
}

func (r *recordingObserver) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = nil
}

var errStorageDown = errors.New("storage down")

// failingKV reads from an inner store and fails every write.
type failingKV struct {
	storage.KV
}

func (failingKV) Set(context.Context, string, string) error {
	return errStorageDown
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog(t testing.TB) *Catalog {
	t.Helper()
	c, err := DefaultCatalog("Diggis")
	require.NoError(t, err)
	return c
}

func newTestEngine(t testing.TB, kv storage.KV) (*Engine, *recordingObserver) {
	t.Helper()
	if kv == nil {
		kv = storage.NewMemory()
	}
	e, err := NewEngine(Options{
		Catalog: testCatalog(t),
		Store:   kv,
		Clock:   newFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Logger:  discardLogger(),
	})
	require.NoError(t, err)
	obs := &recordingObserver{}
	e.Subscribe(obs)
	return e, obs
}

// seededStore returns a memory store holding a saved game.
func seededStore(t testing.TB, balance, inventory string) *storage.Memory {
	t.Helper()
	kv := storage.NewMemory()
	ctx := context.Background()
	if balance != "" {
		require.NoError(t, kv.Set(ctx, BalanceKey, balance))
	}
	if inventory != "" {
		require.NoError(t, kv.Set(ctx, InventoryKey, inventory))
	}
	return kv
}
