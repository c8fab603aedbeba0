/*
store.go - Persistence contract for the leave ledger

PURPOSE:
  Defines the interface between the workflow and wherever employee records
  live. The workflow never mutates a record it obtained from Get; all
  writes go through Update.

KEY INTERFACES:
  Store:    employee records (get, create, list, locked update)
  AuditLog: append-only trail of committed workflow actions

ATOMIC UPDATES:
  Update is the per-record critical section. The store holds exclusive
  access for the full read -> decide -> mutate cycle, hands fn a working
  copy, and commits only if fn returns nil. A failing fn leaves the stored
  record exactly as it was.

IMPLEMENTATIONS:
  - store/memory: in-memory (default)
  - store/sqlite: SQLite, ":memory:" unless a file path is configured
*/
package leave

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Employee records
// =============================================================================

type Store interface {
	// Get returns a copy of the record, or ErrEmployeeNotFound.
	Get(ctx context.Context, id EmployeeID) (*Employee, error)

	// Create inserts a new record, or returns ErrAlreadyExists and leaves
	// the existing record untouched.
	Create(ctx context.Context, emp *Employee) error

	// All returns copies of every record in insertion order, taken as one
	// consistent snapshot.
	All(ctx context.Context) ([]*Employee, error)

	// Update runs fn with exclusive access to the record. Changes made by fn
	// are committed only when fn returns nil.
	Update(ctx context.Context, id EmployeeID, fn func(*Employee) error) error
}

// =============================================================================
// AUDIT LOG - Who did what when
// =============================================================================

type AuditAction string

const (
	AuditLeaveApplied    AuditAction = "leave_applied"
	AuditLeaveApproved   AuditAction = "leave_approved"
	AuditLeaveRejected   AuditAction = "leave_rejected"
	AuditLeaveCancelled  AuditAction = "leave_cancelled"
	AuditEmployeeAdded   AuditAction = "employee_added"
	AuditBalanceAdjusted AuditAction = "balance_adjusted"
)

type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	Action     AuditAction
	EmployeeID EmployeeID
	Payload    map[string]any
}

type AuditFilter struct {
	EmployeeID *EmployeeID
	Actions    []AuditAction
	Limit      int
}

// Matches reports whether entry passes the filter. Limit is applied by callers.
func (f AuditFilter) Matches(entry AuditEntry) bool {
	if f.EmployeeID != nil && entry.EmployeeID != *f.EmployeeID {
		return false
	}
	if len(f.Actions) == 0 {
		return true
	}
	for _, a := range f.Actions {
		if entry.Action == a {
			return true
		}
	}
	return false
}

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}
