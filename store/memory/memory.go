// Package memory provides the in-memory leave.Store and leave.AuditLog.
package memory

import (
	"context"
	"sync"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// MEMORY STORE - Process-lifetime employee table
// =============================================================================

// Store keeps employee records in a map guarded by one RWMutex. Reads return
// copies; Update works on a copy and swaps it in only when fn succeeds.
type Store struct {
	mu        sync.RWMutex
	employees map[leave.EmployeeID]*leave.Employee
	order     []leave.EmployeeID
}

var _ leave.Store = (*Store)(nil)

func New() *Store {
	return &Store{employees: make(map[leave.EmployeeID]*leave.Employee)}
}

func (m *Store) Get(_ context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emp, ok := m.employees[id]
	if !ok {
		return nil, leave.ErrEmployeeNotFound
	}
	return emp.Clone(), nil
}

func (m *Store) Create(_ context.Context, emp *leave.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[emp.ID]; ok {
		return leave.ErrAlreadyExists
	}
	stored := emp.Clone()
	if stored.Balance == nil {
		stored.Balance = leave.Balance{}
	}
	m.employees[emp.ID] = stored
	m.order = append(m.order, emp.ID)
	return nil
}

// All copies every record under one read lock, so a concurrent Update is
// either fully visible or not at all.
func (m *Store) All(_ context.Context) ([]*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*leave.Employee, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.employees[id].Clone())
	}
	return result, nil
}

func (m *Store) Update(_ context.Context, id leave.EmployeeID, fn func(*leave.Employee) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.employees[id]
	if !ok {
		return leave.ErrEmployeeNotFound
	}

	// Work on a copy; the stored record is only replaced on success.
	working := current.Clone()
	if err := fn(working); err != nil {
		return err
	}
	working.ID = current.ID
	m.employees[id] = working
	return nil
}

// Len returns the number of stored employees.
func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// =============================================================================
// MEMORY AUDIT LOG
// =============================================================================

type AuditLog struct {
	mu      sync.RWMutex
	entries []leave.AuditEntry
}

var _ leave.AuditLog = (*AuditLog)(nil)

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Append(_ context.Context, entry leave.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

// Query returns matching entries oldest first, capped at filter.Limit when set.
func (a *AuditLog) Query(_ context.Context, filter leave.AuditFilter) ([]leave.AuditEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []leave.AuditEntry
	for _, e := range a.entries {
		if !filter.Matches(e) {
			continue
		}
		result = append(result, e)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}
