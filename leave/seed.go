package leave

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SEED FIXTURES - Initial employees loaded at startup
// =============================================================================

type seedEntry struct {
	date     Day
	category Category
	status   Status
	days     int
	reason   string
}

type seedEmployee struct {
	id         EmployeeID
	name       string
	department string
	balance    Balance
	history    []seedEntry
}

func bal(casual, sick, earned, maternity, paternity int) Balance {
	return Balance{
		CategoryCasual:    casual,
		CategorySick:      sick,
		CategoryEarned:    earned,
		CategoryMaternity: maternity,
		CategoryPaternity: paternity,
	}
}

func approved(y int, m time.Month, d int, c Category, days int, reason string) seedEntry {
	return seedEntry{date: NewDay(y, m, d), category: c, status: StatusApproved, days: days, reason: reason}
}

func pending(y int, m time.Month, d int, c Category, days int, reason string) seedEntry {
	return seedEntry{date: NewDay(y, m, d), category: c, status: StatusPending, days: days, reason: reason}
}

var seedData = []seedEmployee{
	{"E001", "John Smith", "Engineering", bal(12, 10, 15, 0, 5), []seedEntry{
		approved(2024, time.December, 25, CategoryCasual, 1, "Christmas"),
		approved(2025, time.January, 1, CategoryCasual, 1, "New Year"),
	}},
	{"E002", "Emily Johnson", "Marketing", bal(15, 8, 20, 12, 0), []seedEntry{
		approved(2025, time.February, 14, CategoryCasual, 1, "Valentine's Day"),
	}},
	{"E003", "Michael Brown", "Sales", bal(10, 12, 18, 0, 5), []seedEntry{
		approved(2025, time.January, 15, CategorySick, 2, "Flu"),
		approved(2025, time.March, 1, CategoryEarned, 5, "Vacation"),
	}},
	{"E004", "Sarah Davis", "HR", bal(18, 15, 22, 0, 0), nil},
	{"E005", "Robert Wilson", "Engineering", bal(8, 10, 12, 0, 0), []seedEntry{
		approved(2024, time.December, 24, CategoryCasual, 1, "Christmas Eve"),
		approved(2025, time.January, 2, CategoryCasual, 1, "Holiday"),
		approved(2025, time.March, 15, CategorySick, 3, "Medical procedure"),
	}},
	{"E006", "Jennifer Miller", "Finance", bal(20, 12, 25, 0, 0), []seedEntry{
		pending(2025, time.January, 26, CategoryCasual, 2, "Family event"),
	}},
	{"E007", "David Taylor", "Operations", bal(14, 10, 15, 0, 0), []seedEntry{
		approved(2025, time.February, 28, CategoryCasual, 1, "Weekend getaway"),
		approved(2025, time.March, 1, CategoryCasual, 1, "Weekend getaway"),
		approved(2025, time.April, 18, CategorySick, 1, "Doctor appointment"),
	}},
	{"E008", "Jessica Anderson", "Engineering", bal(16, 12, 18, 0, 0), []seedEntry{
		approved(2025, time.March, 8, CategoryCasual, 1, "Women's Day"),
	}},
	{"E009", "Thomas Martinez", "Sales", bal(10, 8, 12, 0, 0), []seedEntry{
		approved(2025, time.January, 10, CategorySick, 1, "Cold"),
		approved(2025, time.February, 15, CategoryCasual, 1, "Personal"),
		approved(2025, time.April, 5, CategorySick, 2, "Fever"),
	}},
	{"E010", "Lisa Robinson", "Marketing", bal(18, 15, 20, 0, 0), []seedEntry{
		pending(2025, time.May, 15, CategoryCasual, 3, "Summer vacation"),
	}},
}

// SeedEmployees returns fresh copies of the fixture employees. Seeded entries
// carry their recorded day counts; they are not recomputed.
func SeedEmployees() []*Employee {
	out := make([]*Employee, 0, len(seedData))
	for _, se := range seedData {
		emp := &Employee{
			ID:         se.id,
			Name:       se.name,
			Department: se.department,
			Balance:    se.balance.Clone(),
			History:    make([]Entry, 0, len(se.history)),
		}
		for i, h := range se.history {
			emp.History = append(emp.History, Entry{
				ID:        EntryID(fmt.Sprintf("seed-%s-%d", se.id, i+1)),
				StartDate: h.date,
				EndDate:   h.date,
				Category:  h.category,
				Status:    h.status,
				Days:      h.days,
				Reason:    h.reason,
			})
		}
		out = append(out, emp)
	}
	return out
}

// Seed loads the fixture employees into store. Employees that already exist
// are left untouched.
func Seed(ctx context.Context, store Store) (int, error) {
	loaded := 0
	for _, emp := range SeedEmployees() {
		err := store.Create(ctx, emp)
		if errors.Is(err, ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return loaded, fmt.Errorf("seed employee %s: %w", emp.ID, err)
		}
		loaded++
	}
	return loaded, nil
}
