/*
Package sqlite provides a SQLite-backed implementation of the storage
contracts.

PURPOSE:
  Implements trips.HistoryStore, perdiem.RuleStore, trips.RecencyCache,
  and trips.PromptLog on SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  trip_records:   Persisted trips, including completed tracking sessions
  receipts:       Expense receipts
  time_entries:   Time-tracking entries
  profiles:       Employee defaults (base address, cost centers)
  perdiem_rules:  Per-cost-center rules, one flagged as default
  screen_recency: Last cost center used per (employee, screen)
  prompt_log:     When a base-address prompt was last surfaced

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time, better crash
  recovery.

USAGE:
  store, err := sqlite.New("./data/trips.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For a long-lived deployment, use a
  proper migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - trips/store.go, perdiem/rules.go: Contract definitions
  - store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/trip-insight-engine/perdiem"
	"github.com/warp/trip-insight-engine/trips"
)

// Store implements all storage contracts using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trip_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_location TEXT NOT NULL,
		end_location TEXT NOT NULL,
		purpose TEXT,
		miles REAL NOT NULL DEFAULT 0,
		hours_worked REAL NOT NULL DEFAULT 0,
		odometer_reading REAL NOT NULL DEFAULT 0,
		cost_center TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trip_records_employee_date
		ON trip_records(employee_id, date);

	CREATE TABLE IF NOT EXISTS receipts (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		category TEXT,
		amount REAL NOT NULL DEFAULT 0,
		cost_center TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_receipts_employee_date
		ON receipts(employee_id, date);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		hours REAL NOT NULL DEFAULT 0,
		cost_center TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_time_entries_employee_date
		ON time_entries(employee_id, date);

	CREATE TABLE IF NOT EXISTS profiles (
		employee_id TEXT PRIMARY KEY,
		base_address TEXT,
		default_cost_center TEXT,
		cost_centers TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS perdiem_rules (
		cost_center TEXT PRIMARY KEY,
		max_amount_per_day TEXT NOT NULL,
		min_hours REAL NOT NULL DEFAULT 0,
		min_miles REAL NOT NULL DEFAULT 0,
		min_distance_from_base REAL NOT NULL DEFAULT 0,
		monthly_cap TEXT NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS screen_recency (
		employee_id TEXT NOT NULL,
		screen TEXT NOT NULL,
		cost_center TEXT NOT NULL,
		PRIMARY KEY (employee_id, screen)
	);

	CREATE TABLE IF NOT EXISTS prompt_log (
		employee_id TEXT PRIMARY KEY,
		prompted_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// timeLayout is fixed-width: the fractional part is always nine digits
// and the zone is always the literal Z (every write formats in UTC).
// Range filtering and ORDER BY compare these TEXT columns bytewise, so a
// variable-width layout like RFC3339Nano would break chronological order
// within a second.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func rangeClause(r trips.DateRange) (string, []any) {
	clause := ""
	var args []any
	if !r.From.IsZero() {
		clause += " AND date >= ?"
		args = append(args, r.From.UTC().Format(timeLayout))
	}
	if !r.To.IsZero() {
		clause += " AND date <= ?"
		args = append(args, r.To.UTC().Format(timeLayout))
	}
	return clause, args
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// =============================================================================
// HISTORY STORE
// =============================================================================

func (s *Store) Trips(ctx context.Context, employee trips.EmployeeID, r trips.DateRange) ([]trips.TripRecord, error) {
	clause, args := rangeClause(r)
	query := `SELECT id, employee_id, date, start_location, end_location, purpose,
		miles, hours_worked, odometer_reading, COALESCE(cost_center, ''), created_at
		FROM trip_records WHERE employee_id = ?` + clause + ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, append([]any{string(employee)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var out []trips.TripRecord
	for rows.Next() {
		var tr trips.TripRecord
		var date, createdAt string
		if err := rows.Scan(&tr.ID, &tr.EmployeeID, &date, &tr.StartLocation, &tr.EndLocation,
			&tr.Purpose, &tr.Miles, &tr.HoursWorked, &tr.OdometerReading, &tr.CostCenter, &createdAt); err != nil {
			return nil, err
		}
		if tr.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("trip %s: bad date: %w", tr.ID, err)
		}
		if tr.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("trip %s: bad created_at: %w", tr.ID, err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (s *Store) Receipts(ctx context.Context, employee trips.EmployeeID, r trips.DateRange) ([]trips.Receipt, error) {
	clause, args := rangeClause(r)
	query := `SELECT id, employee_id, date, category, amount, COALESCE(cost_center, ''), created_at
		FROM receipts WHERE employee_id = ?` + clause + ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, append([]any{string(employee)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var out []trips.Receipt
	for rows.Next() {
		var rc trips.Receipt
		var date, createdAt string
		if err := rows.Scan(&rc.ID, &rc.EmployeeID, &date, &rc.Category, &rc.Amount, &rc.CostCenter, &createdAt); err != nil {
			return nil, err
		}
		if rc.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("receipt %s: bad date: %w", rc.ID, err)
		}
		if rc.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("receipt %s: bad created_at: %w", rc.ID, err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (s *Store) TimeEntries(ctx context.Context, employee trips.EmployeeID, r trips.DateRange) ([]trips.TimeEntry, error) {
	clause, args := rangeClause(r)
	query := `SELECT id, employee_id, date, hours, COALESCE(cost_center, ''), created_at
		FROM time_entries WHERE employee_id = ?` + clause + ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, append([]any{string(employee)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query time entries: %w", err)
	}
	defer rows.Close()

	var out []trips.TimeEntry
	for rows.Next() {
		var te trips.TimeEntry
		var date, createdAt string
		if err := rows.Scan(&te.ID, &te.EmployeeID, &date, &te.Hours, &te.CostCenter, &createdAt); err != nil {
			return nil, err
		}
		if te.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("time entry %s: bad date: %w", te.ID, err)
		}
		if te.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("time entry %s: bad created_at: %w", te.ID, err)
		}
		out = append(out, te)
	}
	return out, rows.Err()
}

func (s *Store) Profile(ctx context.Context, employee trips.EmployeeID) (trips.EmployeeProfile, error) {
	p := trips.EmployeeProfile{ID: employee}
	var costCenters string
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(base_address, ''), COALESCE(default_cost_center, ''), cost_centers
		 FROM profiles WHERE employee_id = ?`, string(employee)).
		Scan(&p.BaseAddress, &p.DefaultCostCenter, &costCenters)
	if err == sql.ErrNoRows {
		return p, nil
	}
	if err != nil {
		return trips.EmployeeProfile{}, fmt.Errorf("query profile: %w", err)
	}
	if err := json.Unmarshal([]byte(costCenters), &p.CostCenters); err != nil {
		return trips.EmployeeProfile{}, fmt.Errorf("profile %s: bad cost_centers: %w", employee, err)
	}
	return p, nil
}

func (s *Store) SaveTrip(ctx context.Context, trip trips.TripRecord) error {
	createdAt := trip.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trip_records
			(id, employee_id, date, start_location, end_location, purpose,
			 miles, hours_worked, odometer_reading, cost_center, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trip.ID, string(trip.EmployeeID), trip.Date.UTC().Format(timeLayout),
		trip.StartLocation, trip.EndLocation, trip.Purpose,
		trip.Miles, trip.HoursWorked, trip.OdometerReading,
		string(trip.CostCenter), createdAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// SaveReceipt persists a receipt.
func (s *Store) SaveReceipt(ctx context.Context, rc trips.Receipt) error {
	createdAt := rc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO receipts (id, employee_id, date, category, amount, cost_center, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rc.ID, string(rc.EmployeeID), rc.Date.UTC().Format(timeLayout),
		rc.Category, rc.Amount, string(rc.CostCenter), createdAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// SaveTimeEntry persists a time-tracking entry.
func (s *Store) SaveTimeEntry(ctx context.Context, te trips.TimeEntry) error {
	createdAt := te.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO time_entries (id, employee_id, date, hours, cost_center, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		te.ID, string(te.EmployeeID), te.Date.UTC().Format(timeLayout),
		te.Hours, string(te.CostCenter), createdAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert time entry: %w", err)
	}
	return nil
}

// SaveProfile upserts an employee profile.
func (s *Store) SaveProfile(ctx context.Context, p trips.EmployeeProfile) error {
	ccs, err := json.Marshal(p.CostCenters)
	if err != nil {
		return fmt.Errorf("marshal cost centers: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (employee_id, base_address, default_cost_center, cost_centers)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(employee_id) DO UPDATE SET
			base_address = excluded.base_address,
			default_cost_center = excluded.default_cost_center,
			cost_centers = excluded.cost_centers`,
		string(p.ID), p.BaseAddress, string(p.DefaultCostCenter), string(ccs))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// =============================================================================
// RULE STORE
// =============================================================================

func (s *Store) Rule(ctx context.Context, cc trips.CostCenter) (perdiem.PerDiemRule, bool, error) {
	rule, err := s.scanRule(s.db.QueryRowContext(ctx,
		`SELECT cost_center, max_amount_per_day, min_hours, min_miles,
			min_distance_from_base, monthly_cap
		 FROM perdiem_rules WHERE cost_center = ?`, string(cc)))
	if err == sql.ErrNoRows {
		return perdiem.PerDiemRule{}, false, nil
	}
	if err != nil {
		return perdiem.PerDiemRule{}, false, err
	}
	return rule, true, nil
}

func (s *Store) DefaultRule(ctx context.Context) (perdiem.PerDiemRule, error) {
	rule, err := s.scanRule(s.db.QueryRowContext(ctx,
		`SELECT cost_center, max_amount_per_day, min_hours, min_miles,
			min_distance_from_base, monthly_cap
		 FROM perdiem_rules WHERE is_default = 1 LIMIT 1`))
	if err == sql.ErrNoRows {
		return perdiem.PerDiemRule{}, perdiem.ErrNoDefaultRule
	}
	return rule, err
}

func (s *Store) scanRule(row *sql.Row) (perdiem.PerDiemRule, error) {
	var rule perdiem.PerDiemRule
	var daily, monthly string
	if err := row.Scan(&rule.CostCenter, &daily, &rule.MinHours, &rule.MinMiles,
		&rule.MinDistanceFromBase, &monthly); err != nil {
		return perdiem.PerDiemRule{}, err
	}
	var err error
	if rule.MaxAmountPerDay, err = decimal.NewFromString(daily); err != nil {
		return perdiem.PerDiemRule{}, fmt.Errorf("rule %s: bad max_amount_per_day: %w", rule.CostCenter, err)
	}
	if rule.MonthlyCap, err = decimal.NewFromString(monthly); err != nil {
		return perdiem.PerDiemRule{}, fmt.Errorf("rule %s: bad monthly_cap: %w", rule.CostCenter, err)
	}
	return rule, nil
}

// SaveRule upserts a rule. isDefault designates it as the default; the
// previous default is cleared.
func (s *Store) SaveRule(ctx context.Context, rule perdiem.PerDiemRule, isDefault bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if isDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE perdiem_rules SET is_default = 0`); err != nil {
			return fmt.Errorf("clear default rule: %w", err)
		}
	}
	flag := 0
	if isDefault {
		flag = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO perdiem_rules
			(cost_center, max_amount_per_day, min_hours, min_miles,
			 min_distance_from_base, monthly_cap, is_default)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cost_center) DO UPDATE SET
			max_amount_per_day = excluded.max_amount_per_day,
			min_hours = excluded.min_hours,
			min_miles = excluded.min_miles,
			min_distance_from_base = excluded.min_distance_from_base,
			monthly_cap = excluded.monthly_cap,
			is_default = excluded.is_default`,
		string(rule.CostCenter), rule.MaxAmountPerDay.String(),
		rule.MinHours, rule.MinMiles, rule.MinDistanceFromBase,
		rule.MonthlyCap.String(), flag)
	if err != nil {
		return fmt.Errorf("upsert rule: %w", err)
	}
	return tx.Commit()
}

// =============================================================================
// RECENCY CACHE
// =============================================================================

// LastCostCenter implements trips.RecencyCache. The cache contract is
// advisory, so lookup errors degrade to "no entry".
func (s *Store) LastCostCenter(employee trips.EmployeeID, screen trips.Screen) (trips.CostCenter, bool) {
	var cc string
	err := s.db.QueryRow(
		`SELECT cost_center FROM screen_recency WHERE employee_id = ? AND screen = ?`,
		string(employee), string(screen)).Scan(&cc)
	if err != nil || cc == "" {
		return "", false
	}
	return trips.CostCenter(cc), true
}

func (s *Store) SetLastCostCenter(employee trips.EmployeeID, screen trips.Screen, cc trips.CostCenter) {
	_, _ = s.db.Exec(
		`INSERT INTO screen_recency (employee_id, screen, cost_center)
		 VALUES (?, ?, ?)
		 ON CONFLICT(employee_id, screen) DO UPDATE SET cost_center = excluded.cost_center`,
		string(employee), string(screen), string(cc))
}

// =============================================================================
// PROMPT LOG
// =============================================================================

func (s *Store) LastPrompt(ctx context.Context, employee trips.EmployeeID) (time.Time, bool, error) {
	var at string
	err := s.db.QueryRowContext(ctx,
		`SELECT prompted_at FROM prompt_log WHERE employee_id = ?`, string(employee)).Scan(&at)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query prompt log: %w", err)
	}
	t, err := parseTime(at)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("prompt log %s: bad timestamp: %w", employee, err)
	}
	return t, true, nil
}

func (s *Store) RecordPrompt(ctx context.Context, employee trips.EmployeeID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompt_log (employee_id, prompted_at) VALUES (?, ?)
		 ON CONFLICT(employee_id) DO UPDATE SET prompted_at = excluded.prompted_at`,
		string(employee), at.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record prompt: %w", err)
	}
	return nil
}
