/*
Package sqlite provides a SQLite-backed implementation of leave.Store and
leave.AuditLog.

PURPOSE:
  Same contract as store/memory, backed by SQL tables. The default path is
  ":memory:", so state still lives only for the process lifetime; pointing
  it at a file is an operator choice.

KEY TABLES:
  employees:      profile rows, seq preserves insertion order
  balances:       (employee_id, category) -> days
  leave_entries:  history rows, position preserves history order
  audit_log:      append-only workflow actions

ATOMIC UPDATES:
  Update loads the record, runs fn and writes it back inside one SQL
  transaction while holding the store mutex. If fn fails the transaction
  is rolled back and nothing is written.

CONNECTIONS:
  The pool is capped at one connection. An in-memory SQLite database exists
  per connection, so a second connection would see an empty schema.

USAGE:
  store, err := sqlite.New(":memory:")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  svc := leave.NewService(store, logger)

SEE ALSO:
  - leave/store.go: interface definitions
  - store/memory:   in-memory implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/leave-ledger/leave"
)

// Store implements leave.Store and leave.AuditLog using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ leave.Store    = (*Store)(nil)
	_ leave.AuditLog = (*Store)(nil)
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (and migrates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

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

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		department TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS balances (
		employee_id TEXT NOT NULL REFERENCES employees(id),
		category TEXT NOT NULL,
		days INTEGER NOT NULL,
		PRIMARY KEY (employee_id, category)
	);

	CREATE TABLE IF NOT EXISTS leave_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		position INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		category TEXT NOT NULL,
		status TEXT NOT NULL,
		days INTEGER NOT NULL,
		reason TEXT,
		applied_on TEXT,
		reject_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_leave_entries_employee
		ON leave_entries(employee_id, position);
	CREATE INDEX IF NOT EXISTS idx_leave_entries_status_start
		ON leave_entries(status, start_date);

	CREATE TABLE IF NOT EXISTS audit_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		timestamp TEXT NOT NULL,
		action TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_employee
		ON audit_log(employee_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// leave.Store
// =============================================================================

func (s *Store) Get(ctx context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadEmployee(ctx, s.db, id)
}

func (s *Store) Create(ctx context.Context, emp *leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM employees WHERE id = ?`, string(emp.ID)).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check employee: %w", err)
		}
		if exists > 0 {
			return leave.ErrAlreadyExists
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO employees (id, name, department, created_at) VALUES (?, ?, ?, ?)`,
			string(emp.ID), emp.Name, emp.Department, time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert employee: %w", err)
		}
		return saveEmployee(ctx, tx, emp)
	})
}

// All reads every employee inside one transaction, in insertion order.
func (s *Store) All(ctx context.Context) ([]*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*leave.Employee
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM employees ORDER BY seq`)
		if err != nil {
			return err
		}
		var ids []leave.EmployeeID
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, leave.EmployeeID(id))
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		result = make([]*leave.Employee, 0, len(ids))
		for _, id := range ids {
			emp, err := loadEmployee(ctx, tx, id)
			if err != nil {
				return err
			}
			result = append(result, emp)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return result, nil
}

func (s *Store) Update(ctx context.Context, id leave.EmployeeID, fn func(*leave.Employee) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		emp, err := loadEmployee(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(emp); err != nil {
			return err
		}
		emp.ID = id
		return saveEmployee(ctx, tx, emp)
	})
}

// withTx runs fn in a transaction, rolling back on any error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func loadEmployee(ctx context.Context, q querier, id leave.EmployeeID) (*leave.Employee, error) {
	emp := &leave.Employee{ID: id, Balance: leave.Balance{}, History: []leave.Entry{}}

	err := q.QueryRowContext(ctx,
		`SELECT name, department FROM employees WHERE id = ?`, string(id),
	).Scan(&emp.Name, &emp.Department)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}

	rows, err := q.QueryContext(ctx, `SELECT category, days FROM balances WHERE employee_id = ?`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}
	for rows.Next() {
		var cat string
		var days int
		if err := rows.Scan(&cat, &days); err != nil {
			rows.Close()
			return nil, err
		}
		emp.Balance[leave.Category(cat)] = days
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx, `
		SELECT id, start_date, end_date, category, status, days, reason, applied_on, reject_reason
		FROM leave_entries WHERE employee_id = ? ORDER BY position`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		emp.History = append(emp.History, entry)
	}
	return emp, rows.Err()
}

func scanEntry(rows *sql.Rows) (leave.Entry, error) {
	var (
		id, start, end, cat, status string
		days                        int
		reason, appliedOn, rejected sql.NullString
	)
	if err := rows.Scan(&id, &start, &end, &cat, &status, &days, &reason, &appliedOn, &rejected); err != nil {
		return leave.Entry{}, err
	}
	// Unparseable stored dates load as the zero Day; readers skip them.
	startDay, _ := leave.ParseDay(start)
	endDay, _ := leave.ParseDay(end)
	appliedDay, _ := leave.ParseDay(appliedOn.String)

	return leave.Entry{
		ID:           leave.EntryID(id),
		StartDate:    startDay,
		EndDate:      endDay,
		Category:     leave.Category(cat),
		Status:       leave.Status(status),
		Days:         days,
		Reason:       reason.String,
		AppliedOn:    appliedDay,
		RejectReason: rejected.String,
	}, nil
}

// saveEmployee writes balances and history. Entries are upserted by id so
// status transitions update rows in place; nothing is ever deleted.
func saveEmployee(ctx context.Context, q querier, emp *leave.Employee) error {
	_, err := q.ExecContext(ctx,
		`UPDATE employees SET name = ?, department = ? WHERE id = ?`,
		emp.Name, emp.Department, string(emp.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}

	for cat, days := range emp.Balance {
		_, err := q.ExecContext(ctx, `
			INSERT INTO balances (employee_id, category, days) VALUES (?, ?, ?)
			ON CONFLICT(employee_id, category) DO UPDATE SET days = excluded.days`,
			string(emp.ID), string(cat), days,
		)
		if err != nil {
			return fmt.Errorf("failed to save balance: %w", err)
		}
	}

	for i, e := range emp.History {
		_, err := q.ExecContext(ctx, `
			INSERT INTO leave_entries
				(id, employee_id, position, start_date, end_date, category, status, days, reason, applied_on, reject_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				status = excluded.status,
				reject_reason = excluded.reject_reason`,
			string(e.ID), string(emp.ID), i,
			e.StartDate.String(), e.EndDate.String(),
			string(e.Category), string(e.Status), e.Days,
			nullString(e.Reason), nullString(e.AppliedOn.String()), nullString(e.RejectReason),
		)
		if err != nil {
			return fmt.Errorf("failed to save leave entry: %w", err)
		}
	}
	return nil
}

// =============================================================================
// leave.AuditLog
// =============================================================================

func (s *Store) Append(ctx context.Context, entry leave.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, timestamp, action, employee_id, payload_json) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UTC().Format(time.RFC3339Nano), string(entry.Action),
		string(entry.EmployeeID), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, filter leave.AuditFilter) ([]leave.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, timestamp, action, employee_id, payload_json FROM audit_log`
	var (
		where []string
		args  []any
	)
	if filter.EmployeeID != nil {
		where = append(where, "employee_id = ?")
		args = append(args, string(*filter.EmployeeID))
	}
	if len(filter.Actions) > 0 {
		placeholders := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			placeholders[i] = "?"
			args = append(args, string(a))
		}
		where = append(where, "action IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var result []leave.AuditEntry
	for rows.Next() {
		var (
			e                 leave.AuditEntry
			ts, action, empID string
			payload           sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &action, &empID, &payload); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.Action = leave.AuditAction(action)
		e.EmployeeID = leave.EmployeeID(empID)
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload: %w", err)
			}
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
