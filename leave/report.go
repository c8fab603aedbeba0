package leave

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// USAGE REPORT - Consumed vs remaining days per employee
// =============================================================================

// CategoryUsage summarizes one category for one employee. Consumed counts
// pending and approved entries, i.e. days currently debited by requests.
type CategoryUsage struct {
	Category    Category
	Consumed    int
	Remaining   int
	Utilization decimal.Decimal // percent of consumed + remaining, one decimal place
}

type EmployeeUsage struct {
	EmployeeID EmployeeID
	Name       string
	Department string
	Categories []CategoryUsage
	Total      CategoryUsage // Category is empty
}

var hundred = decimal.NewFromInt(100)

// Utilization returns consumed / (consumed + remaining) as a percentage
// rounded to one decimal place. A non-positive entitlement reports zero.
func Utilization(consumed, remaining int) decimal.Decimal {
	entitlement := consumed + remaining
	if entitlement <= 0 || consumed <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(consumed)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(entitlement))).
		Round(1)
}

// UsageReport returns per-employee usage, optionally restricted to one
// department, in store insertion order.
func (s *Service) UsageReport(ctx context.Context, req UsageQuery) (res []EmployeeUsage, err error) {
	defer func() { s.observe("usage_report", err) }()

	employees, err := s.Store.All(ctx)
	if err != nil {
		return nil, err
	}
	department := strings.TrimSpace(req.Department)

	res = []EmployeeUsage{}
	for _, emp := range employees {
		if department != "" && emp.Department != department {
			continue
		}
		res = append(res, usageFor(emp))
	}
	return res, nil
}

func usageFor(emp *Employee) EmployeeUsage {
	consumed := make(map[Category]int)
	for _, entry := range emp.History {
		if entry.Status == StatusPending || entry.Status == StatusApproved {
			consumed[entry.Category] += entry.Days
		}
	}

	u := EmployeeUsage{EmployeeID: emp.ID, Name: emp.Name, Department: emp.Department}
	for _, cat := range emp.Balance.Categories() {
		cu := CategoryUsage{Category: cat, Consumed: consumed[cat], Remaining: emp.Balance[cat]}
		cu.Utilization = Utilization(cu.Consumed, cu.Remaining)
		u.Categories = append(u.Categories, cu)
		u.Total.Consumed += cu.Consumed
		u.Total.Remaining += cu.Remaining
	}
	u.Total.Utilization = Utilization(u.Total.Consumed, u.Total.Remaining)
	return u
}
