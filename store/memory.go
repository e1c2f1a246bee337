/*
Package store provides in-memory implementations of the storage contracts.

PURPOSE:
  One Memory value implements every store contract the engines read
  through: trips.HistoryStore, perdiem.RuleStore, trips.RecencyCache, and
  trips.PromptLog. Used in tests and dev mode; the SQLite implementation
  in store/sqlite is the production counterpart.

CONCURRENCY:
  Guarded by a single RWMutex. Reads return copies so a caller can never
  observe a concurrent mutation through a returned slice.

SEE ALSO:
  - trips/store.go, perdiem/rules.go: The contracts
  - store/sqlite/: Production implementation
*/
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/trip-insight-engine/perdiem"
	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	tripsByEmployee    map[trips.EmployeeID][]trips.TripRecord
	receiptsByEmployee map[trips.EmployeeID][]trips.Receipt
	timeByEmployee     map[trips.EmployeeID][]trips.TimeEntry
	profiles           map[trips.EmployeeID]trips.EmployeeProfile

	rules       map[trips.CostCenter]perdiem.PerDiemRule
	defaultRule perdiem.PerDiemRule
	hasDefault  bool

	recency map[recencyKey]trips.CostCenter
	prompts map[trips.EmployeeID]time.Time
}

type recencyKey struct {
	Employee trips.EmployeeID
	Screen   trips.Screen
}

func NewMemory() *Memory {
	return &Memory{
		tripsByEmployee:    make(map[trips.EmployeeID][]trips.TripRecord),
		receiptsByEmployee: make(map[trips.EmployeeID][]trips.Receipt),
		timeByEmployee:     make(map[trips.EmployeeID][]trips.TimeEntry),
		profiles:           make(map[trips.EmployeeID]trips.EmployeeProfile),
		rules:              make(map[trips.CostCenter]perdiem.PerDiemRule),
		recency:            make(map[recencyKey]trips.CostCenter),
		prompts:            make(map[trips.EmployeeID]time.Time),
	}
}

// =============================================================================
// HISTORY STORE
// =============================================================================

func (m *Memory) Trips(_ context.Context, employee trips.EmployeeID, r trips.DateRange) ([]trips.TripRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []trips.TripRecord
	for _, tr := range m.tripsByEmployee[employee] {
		if r.Contains(tr.Date) {
			out = append(out, tr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) Receipts(_ context.Context, employee trips.EmployeeID, r trips.DateRange) ([]trips.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []trips.Receipt
	for _, rc := range m.receiptsByEmployee[employee] {
		if r.Contains(rc.Date) {
			out = append(out, rc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) TimeEntries(_ context.Context, employee trips.EmployeeID, r trips.DateRange) ([]trips.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []trips.TimeEntry
	for _, te := range m.timeByEmployee[employee] {
		if r.Contains(te.Date) {
			out = append(out, te)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) Profile(_ context.Context, employee trips.EmployeeID) (trips.EmployeeProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profiles[employee], nil
}

func (m *Memory) SaveTrip(_ context.Context, trip trips.TripRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tripsByEmployee[trip.EmployeeID] = append(m.tripsByEmployee[trip.EmployeeID], trip)
	return nil
}

// Seed helpers for tests and dev mode.

func (m *Memory) SeedReceipt(rc trips.Receipt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiptsByEmployee[rc.EmployeeID] = append(m.receiptsByEmployee[rc.EmployeeID], rc)
}

func (m *Memory) SeedTimeEntry(te trips.TimeEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeByEmployee[te.EmployeeID] = append(m.timeByEmployee[te.EmployeeID], te)
}

func (m *Memory) SetProfile(p trips.EmployeeProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

// =============================================================================
// RULE STORE
// =============================================================================

func (m *Memory) Rule(_ context.Context, cc trips.CostCenter) (perdiem.PerDiemRule, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[cc]
	return r, ok, nil
}

func (m *Memory) DefaultRule(_ context.Context) (perdiem.PerDiemRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasDefault {
		return perdiem.PerDiemRule{}, perdiem.ErrNoDefaultRule
	}
	return m.defaultRule, nil
}

// SetRule stores a rule for its cost center.
func (m *Memory) SetRule(rule perdiem.PerDiemRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.CostCenter] = rule
}

// SetDefaultRule designates the default rule.
func (m *Memory) SetDefaultRule(rule perdiem.PerDiemRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultRule = rule
	m.hasDefault = true
}

// =============================================================================
// RECENCY CACHE
// =============================================================================

func (m *Memory) LastCostCenter(employee trips.EmployeeID, screen trips.Screen) (trips.CostCenter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cc, ok := m.recency[recencyKey{Employee: employee, Screen: screen}]
	return cc, ok
}

func (m *Memory) SetLastCostCenter(employee trips.EmployeeID, screen trips.Screen, cc trips.CostCenter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recency[recencyKey{Employee: employee, Screen: screen}] = cc
}

// =============================================================================
// PROMPT LOG
// =============================================================================

func (m *Memory) LastPrompt(_ context.Context, employee trips.EmployeeID) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.prompts[employee]
	return at, ok, nil
}

func (m *Memory) RecordPrompt(_ context.Context, employee trips.EmployeeID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts[employee] = at
	return nil
}
