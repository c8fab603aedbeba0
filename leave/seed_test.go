package leave_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/store/memory"
)

func TestSeed_LoadsFixturesOnce(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	n, err := leave.Seed(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = leave.Seed(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "existing employees are skipped")
	assert.Equal(t, 10, store.Len())

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, leave.EmployeeID("E001"), all[0].ID)
	assert.Equal(t, leave.EmployeeID("E010"), all[9].ID)
}

func TestSeed_FixtureShape(t *testing.T) {
	emps := leave.SeedEmployees()
	require.Len(t, emps, 10)

	john := emps[0]
	assert.Equal(t, "John Smith", john.Name)
	assert.Equal(t, 5, john.Balance[leave.CategoryPaternity])
	require.Len(t, john.History, 2)
	assert.Equal(t, "2024-12-25", john.History[0].StartDate.String())
	assert.Equal(t, john.History[0].StartDate, john.History[0].EndDate)
	assert.Equal(t, leave.EntryID("seed-E001-1"), john.History[0].ID)

	sarah := emps[3]
	assert.Empty(t, sarah.History)

	lisa := emps[9]
	require.Len(t, lisa.History, 1)
	assert.Equal(t, leave.StatusPending, lisa.History[0].Status)
	assert.Equal(t, 3, lisa.History[0].Days)

	// fresh copies each call
	emps[0].Balance[leave.CategoryCasual] = 0
	assert.Equal(t, 12, leave.SeedEmployees()[0].Balance[leave.CategoryCasual])
}

func TestSeed_SeededPendingEntryCanBeRejected(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, err := leave.Seed(ctx, store)
	require.NoError(t, err)
	svc := leave.NewService(store, nil)

	res, err := svc.Reject(ctx, leave.TransitionRequest{EmployeeID: "E006", LeaveDate: "2025-01-26"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Restored)
	assert.Equal(t, 22, res.Remaining)
}
