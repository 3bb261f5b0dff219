package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"calview/internal/calendar"
	appLog "calview/internal/log"
	"calview/internal/model"
)

// RefreshResult summarises one Refresh.
type RefreshResult struct {
	Generation uint64                 `json:"generation"`
	Events     int                    `json:"events"`
	Rejected   int                    `json:"rejected"`
	BySource   map[model.SourceID]int `json:"by_source"`
	Failed     []model.SourceID       `json:"failed,omitempty"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Aggregator merges all providers into a calendar.Store. Every Refresh
// builds a brand-new store and swaps it in; readers holding the previous
// store keep a consistent view.
type Aggregator struct {
	providers []Provider

	// refreshMu serialises Refresh so the scheduler and manual refreshes
	// never interleave.
	refreshMu sync.Mutex

	mu         sync.RWMutex
	store      *calendar.Store
	generation uint64
	updatedAt  time.Time
	lastGood   map[model.SourceID][]model.CalendarEvent

	now func() time.Time
}

func NewAggregator(providers ...Provider) *Aggregator {
	return &Aggregator{
		providers: providers,
		store:     calendar.EmptyStore(),
		lastGood:  make(map[model.SourceID][]model.CalendarEvent),
		now:       time.Now,
	}
}

// Providers returns the providers in registration order.
func (a *Aggregator) Providers() []Provider {
	return a.providers
}

// Store returns the current store. It is never nil.
func (a *Aggregator) Store() *calendar.Store {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.store
}

// Generation increases by one with every swapped-in store.
func (a *Aggregator) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.generation
}

// Snapshot returns the store together with its generation and refresh time.
func (a *Aggregator) Snapshot() (*calendar.Store, uint64, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.store, a.generation, a.updatedAt
}

type providerResult struct {
	events []model.CalendarEvent
	err    error
}

// Refresh queries every provider concurrently and replaces the store.
//
// A failing provider keeps contributing the events of its last successful
// run; the failure is logged and returned in the joined error. Malformed
// records are logged and left out of the store without failing the refresh.
func (a *Aggregator) Refresh(ctx context.Context) (RefreshResult, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	results := make([]providerResult, len(a.providers))
	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			events, err := p.Events(ctx)
			results[i] = providerResult{events: events, err: err}
		}(i, p)
	}
	wg.Wait()

	var (
		records []model.CalendarEvent
		errs    []error
		failed  []model.SourceID
	)
	for i, p := range a.providers {
		res := results[i]
		if res.err != nil {
			appLog.Error("source refresh failed", res.err, "source", p.ID(), "stale_events", len(a.lastGood[p.ID()]))
			errs = append(errs, fmt.Errorf("source %s: %w", p.ID(), res.err))
			failed = append(failed, p.ID())
			records = append(records, a.lastGood[p.ID()]...)
			continue
		}
		a.lastGood[p.ID()] = res.events
		records = append(records, res.events...)
	}

	store, rejected := calendar.NewStore(records)
	for _, err := range rejected {
		appLog.Error("event rejected", err)
	}

	a.mu.Lock()
	a.store = store
	a.generation++
	a.updatedAt = a.now()
	out := RefreshResult{
		Generation: a.generation,
		Events:     store.Len(),
		Rejected:   len(rejected),
		BySource:   store.CountBySource(),
		Failed:     failed,
		UpdatedAt:  a.updatedAt,
	}
	a.mu.Unlock()

	appLog.Info("sources refreshed",
		"generation", out.Generation,
		"events", out.Events,
		"rejected", out.Rejected,
		"failed", len(failed),
	)
	return out, errors.Join(errs...)
}
