/*
Package leave implements the employee leave ledger.

PURPOSE:
  Tracks leave entitlements per category, a chronological request history
  per employee, and the state transitions that debit and credit balances.
  Every other package in this module is an adapter around this one.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category: closed set of leave categories (casual, sick, ...)
  - Status:   lifecycle state of a leave entry
  - Balance:  remaining days per category for one employee
  - Entry:    one leave request in an employee's history
  - Employee: profile + balance + history, the unit of locking

STATE MACHINE:
  pending --approve--> approved --cancel--> cancelled
  pending --reject---> rejected

  Balance is debited when a request is applied (pending) and credited back
  on reject or cancel. Approve never touches the balance.

INVARIANTS:
  1. balance[c] >= 0 after every operation except AdjustBalance
  2. History is append-only; entries only change status
  3. Entry.Days is computed once at apply time, never recomputed

SEE ALSO:
  - workflow.go: operations over the ledger
  - store.go:    persistence contract
  - calendar.go: dates and business-day counting
*/
package leave

import (
	"sort"
	"strings"
)

// =============================================================================
// CATEGORY - Closed enumeration of leave categories
// =============================================================================

type Category string

const (
	CategoryCasual    Category = "casual"
	CategorySick      Category = "sick"
	CategoryEarned    Category = "earned"
	CategoryMaternity Category = "maternity"
	CategoryPaternity Category = "paternity"
	CategoryUnpaid    Category = "unpaid"
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	CategoryCasual,
	CategorySick,
	CategoryEarned,
	CategoryMaternity,
	CategoryPaternity,
	CategoryUnpaid,
}

func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// order is the position of c in AllCategories; unknown values sort last.
func (c Category) order() int {
	for i, known := range AllCategories {
		if c == known {
			return i
		}
	}
	return len(AllCategories)
}

// ParseCategory converts a lowercase token into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.Valid() {
		return "", &CategoryError{Category: s, Valid: AllCategories}
	}
	return c, nil
}

// =============================================================================
// STATUS - Leave entry lifecycle
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

var AllStatuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus converts a lowercase token into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !st.Valid() {
		return "", &RequestError{Field: "status", Reason: "must be one of pending, approved, rejected, cancelled"}
	}
	return st, nil
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusCancelled
	default:
		return false
	}
}

// =============================================================================
// BALANCE - Remaining days per category
// =============================================================================

// Balance maps a category to remaining days. The keys present define which
// categories are valid for the employee.
type Balance map[Category]int

// Has reports whether c is a valid category for this balance.
func (b Balance) Has(c Category) bool {
	_, ok := b[c]
	return ok
}

// Categories returns the keys in AllCategories order.
func (b Balance) Categories() []Category {
	cats := make([]Category, 0, len(b))
	for c := range b {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].order() < cats[j].order() })
	return cats
}

func (b Balance) Clone() Balance {
	out := make(Balance, len(b))
	for c, d := range b {
		out[c] = d
	}
	return out
}

// DefaultBalance is the starter entitlement given to newly registered employees.
func DefaultBalance() Balance {
	return Balance{
		CategoryCasual:    12,
		CategorySick:      10,
		CategoryEarned:    15,
		CategoryMaternity: 0,
		CategoryPaternity: 0,
	}
}

// =============================================================================
// ENTRY - One leave request in an employee's history
// =============================================================================

type EntryID string

type Entry struct {
	ID           EntryID
	StartDate    Day
	EndDate      Day
	Category     Category
	Status       Status
	Days         int
	Reason       string
	AppliedOn    Day
	RejectReason string // set only on transition to rejected
}

// Ranged reports whether the entry spans more than one calendar day.
func (e Entry) Ranged() bool {
	return !e.EndDate.IsZero() && !e.EndDate.Equal(e.StartDate)
}

// =============================================================================
// EMPLOYEE - Profile, balance and history
// =============================================================================

type EmployeeID string

type Employee struct {
	ID         EmployeeID
	Name       string
	Department string
	Balance    Balance
	History    []Entry
}

// Clone returns a deep copy so callers never share balance maps or history.
func (e *Employee) Clone() *Employee {
	if e == nil {
		return nil
	}
	out := *e
	out.Balance = e.Balance.Clone()
	out.History = append([]Entry(nil), e.History...)
	return &out
}

// findEntry returns the index of the first entry starting on date with the
// given status, or -1. When several entries share a start date only the
// first match in history order is considered.
func (e *Employee) findEntry(date string, status Status) int {
	for i, entry := range e.History {
		if entry.StartDate.String() == date && entry.Status == status {
			return i
		}
	}
	return -1
}
