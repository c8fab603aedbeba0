/*
contract.go - Shared behavior tests for leave.Store and leave.AuditLog

PURPOSE:
  Every backend must behave identically: copies out, insertion order,
  all-or-nothing Update. Backends call RunStoreContract and
  RunAuditLogContract from their own _test.go files.

USAGE:
  func TestStoreContract(t *testing.T) {
      storetest.RunStoreContract(t, func(t *testing.T) leave.Store { return memory.New() })
  }
*/
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-ledger/leave"
)

// StoreFactory returns an empty store; cleanup is registered on t.
type StoreFactory func(t *testing.T) leave.Store

// AuditFactory returns an empty audit log; cleanup is registered on t.
type AuditFactory func(t *testing.T) leave.AuditLog

func sampleEmployee(id string) *leave.Employee {
	return &leave.Employee{
		ID:         leave.EmployeeID(id),
		Name:       "Employee " + id,
		Department: "Engineering",
		Balance:    leave.DefaultBalance(),
		History: []leave.Entry{{
			ID:        leave.EntryID("entry-" + id),
			StartDate: leave.NewDay(2025, time.June, 2),
			EndDate:   leave.NewDay(2025, time.June, 3),
			Category:  leave.CategoryCasual,
			Status:    leave.StatusPending,
			Days:      2,
			Reason:    "Trip",
			AppliedOn: leave.NewDay(2025, time.May, 20),
		}},
	}
}

// RunStoreContract exercises the leave.Store contract against newStore.
func RunStoreContract(t *testing.T, newStore StoreFactory) {
	t.Run("CreateThenGetRoundTrips", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		emp := sampleEmployee("E1")

		require.NoError(t, s.Create(ctx, emp))

		got, err := s.Get(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, emp.Name, got.Name)
		assert.Equal(t, emp.Department, got.Department)
		assert.Equal(t, emp.Balance, got.Balance)
		require.Len(t, got.History, 1)
		assert.Equal(t, emp.History[0], got.History[0])
	})

	t.Run("GetUnknownIsEmployeeNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
	})

	t.Run("CreateDuplicateIsAlreadyExists", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Create(ctx, sampleEmployee("E1")))

		dup := sampleEmployee("E1")
		dup.Name = "Impostor"
		assert.ErrorIs(t, s.Create(ctx, dup), leave.ErrAlreadyExists)

		got, err := s.Get(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, "Employee E1", got.Name)
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Create(ctx, sampleEmployee("E1")))

		got, err := s.Get(ctx, "E1")
		require.NoError(t, err)
		got.Balance[leave.CategoryCasual] = -99
		got.History[0].Status = leave.StatusApproved

		again, err := s.Get(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, 12, again.Balance[leave.CategoryCasual])
		assert.Equal(t, leave.StatusPending, again.History[0].Status)
	})

	t.Run("AllPreservesInsertionOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ids := []string{"E3", "E1", "E2"}
		for _, id := range ids {
			require.NoError(t, s.Create(ctx, sampleEmployee(id)))
		}

		all, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i, id := range ids {
			assert.Equal(t, leave.EmployeeID(id), all[i].ID)
		}
	})

	t.Run("UpdateCommitsOnSuccess", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Create(ctx, sampleEmployee("E1")))

		err := s.Update(ctx, "E1", func(emp *leave.Employee) error {
			emp.Balance[leave.CategoryCasual] -= 3
			emp.History[0].Status = leave.StatusRejected
			emp.History[0].RejectReason = "Busy"
			emp.History = append(emp.History, leave.Entry{
				ID:        "entry-2",
				StartDate: leave.NewDay(2025, time.July, 7),
				EndDate:   leave.NewDay(2025, time.July, 7),
				Category:  leave.CategorySick,
				Status:    leave.StatusPending,
				Days:      1,
			})
			return nil
		})
		require.NoError(t, err)

		got, err := s.Get(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, 9, got.Balance[leave.CategoryCasual])
		require.Len(t, got.History, 2)
		assert.Equal(t, leave.StatusRejected, got.History[0].Status)
		assert.Equal(t, "Busy", got.History[0].RejectReason)
		assert.Equal(t, leave.EntryID("entry-2"), got.History[1].ID)
	})

	t.Run("UpdateDiscardsOnError", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Create(ctx, sampleEmployee("E1")))

		boom := errors.New("boom")
		err := s.Update(ctx, "E1", func(emp *leave.Employee) error {
			emp.Balance[leave.CategoryCasual] = 0
			emp.History = nil
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.Get(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, 12, got.Balance[leave.CategoryCasual])
		assert.Len(t, got.History, 1)
	})

	t.Run("UpdateUnknownIsEmployeeNotFound", func(t *testing.T) {
		s := newStore(t)
		called := false
		err := s.Update(context.Background(), "missing", func(*leave.Employee) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
		assert.False(t, called)
	})

	t.Run("ConcurrentUpdatesSerialize", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Create(ctx, sampleEmployee("E1")))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.Update(ctx, "E1", func(emp *leave.Employee) error {
					emp.Balance[leave.CategoryEarned]++
					return nil
				})
			}()
		}
		wg.Wait()

		got, err := s.Get(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, 25, got.Balance[leave.CategoryEarned])
	})
}

// RunAuditLogContract exercises the leave.AuditLog contract against newLog.
func RunAuditLogContract(t *testing.T, newLog AuditFactory) {
	ts := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, log leave.AuditLog) {
		t.Helper()
		entries := []struct {
			action leave.AuditAction
			emp    leave.EmployeeID
		}{
			{leave.AuditEmployeeAdded, "E1"},
			{leave.AuditLeaveApplied, "E1"},
			{leave.AuditLeaveApplied, "E2"},
			{leave.AuditLeaveApproved, "E1"},
		}
		for i, e := range entries {
			require.NoError(t, log.Append(context.Background(), leave.AuditEntry{
				ID:         fmt.Sprintf("audit-%d", i+1),
				Timestamp:  ts.Add(time.Duration(i) * time.Minute),
				Action:     e.action,
				EmployeeID: e.emp,
				Payload:    map[string]any{"n": i + 1},
			}))
		}
	}

	t.Run("QueryAllOldestFirst", func(t *testing.T) {
		log := newLog(t)
		seed(t, log)

		got, err := log.Query(context.Background(), leave.AuditFilter{})
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "audit-1", got[0].ID)
		assert.Equal(t, "audit-4", got[3].ID)
		assert.True(t, got[0].Timestamp.Equal(ts))
	})

	t.Run("QueryByEmployeeAndAction", func(t *testing.T) {
		log := newLog(t)
		seed(t, log)
		e1 := leave.EmployeeID("E1")

		got, err := log.Query(context.Background(), leave.AuditFilter{
			EmployeeID: &e1,
			Actions:    []leave.AuditAction{leave.AuditLeaveApplied, leave.AuditLeaveApproved},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, leave.AuditLeaveApplied, got[0].Action)
		assert.Equal(t, leave.AuditLeaveApproved, got[1].Action)
	})

	t.Run("QueryLimit", func(t *testing.T) {
		log := newLog(t)
		seed(t, log)

		got, err := log.Query(context.Background(), leave.AuditFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "audit-2", got[1].ID)
	})

	t.Run("PayloadSurvives", func(t *testing.T) {
		log := newLog(t)
		seed(t, log)

		got, err := log.Query(context.Background(), leave.AuditFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		// JSON-backed logs return numbers as float64
		assert.EqualValues(t, 1, toFloat(got[0].Payload["n"]))
	})
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return -1
	}
}
