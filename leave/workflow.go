/*
workflow.go - Leave request lifecycle and balance operations

PURPOSE:
  Implements every ledger operation: balance query, apply, approve, reject,
  cancel, history, upcoming leave, registration and administrative
  adjustment. Each operation validates its typed request first, then
  performs at most one Store.Update, so it either commits fully or leaves
  the record untouched.

REQUEST FLOW:
  ┌──────────────────────────────────────────────────────────────────┐
  │                                                                  │
  │  typed request ──▶ validate ──▶ Store.Update(fn) ──▶ audit + log  │
  │                                       │                          │
  │                         fn error ─────┴──▶ nothing committed      │
  │                                                                  │
  └──────────────────────────────────────────────────────────────────┘

BALANCE MOVEMENT:
  apply   : balance[c] -= days, entry pending
  approve : no balance change, entry approved
  reject  : balance[c] += days, entry rejected (reason recorded)
  cancel  : balance[c] += days, entry cancelled (approved entries only)
  adjust  : balance[c] += delta, no floor check

ENTRY LOOKUP:
  approve/reject/cancel locate the FIRST entry in history order whose start
  date equals leave_date and whose status is the required source status.
  "No such entry" and "entry in another status" both yield ErrNotFound.

EXAMPLE:
  svc := leave.NewService(memory.New(), logger)
  res, err := svc.Apply(ctx, leave.ApplyRequest{
      EmployeeID: "E001", StartDate: "2025-06-02", EndDate: "2025-06-03",
  })
  // res.Entry.Days == 2, res.Remaining == 10
*/
package leave

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// SERVICE
// =============================================================================

// OperationObserver receives the outcome of every workflow operation.
type OperationObserver interface {
	ObserveOperation(op string, err error)
}

type Service struct {
	Store    Store
	AuditLog AuditLog          // optional
	Metrics  OperationObserver // optional
	Logger   *zap.Logger
	Validate *validator.Validate

	defaults sync.Once

	// Now supplies the clock for applied_on stamps and the upcoming window.
	Now func() time.Time
}

// NewService wires a service around store with default validator and clock.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:    store,
		Logger:   logger,
		Validate: NewValidator(),
		Now:      time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// ensureDefaults fills in the validator and logger for a Service built
// without NewService.
func (s *Service) ensureDefaults() {
	s.defaults.Do(func() {
		if s.Validate == nil {
			s.Validate = NewValidator()
		}
		if s.Logger == nil {
			s.Logger = zap.NewNop()
		}
	})
}

func (s *Service) validate(req any) error {
	s.ensureDefaults()
	return validateRequest(s.Validate, req)
}

func (s *Service) observe(op string, err error) {
	s.ensureDefaults()
	if s.Metrics != nil {
		s.Metrics.ObserveOperation(op, err)
	}
	if err != nil && IsClientError(err) {
		s.Logger.Debug("leave operation rejected", zap.String("op", op), zap.Error(err))
	}
}

func (s *Service) audit(ctx context.Context, action AuditAction, id EmployeeID, payload map[string]any) {
	if s.AuditLog == nil {
		return
	}
	entry := AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  s.now().UTC(),
		Action:     action,
		EmployeeID: id,
		Payload:    payload,
	}
	if err := s.AuditLog.Append(ctx, entry); err != nil {
		s.Logger.Warn("audit append failed", zap.String("action", string(action)), zap.Error(err))
	}
}

// =============================================================================
// BALANCE QUERY
// =============================================================================

type BalanceResult struct {
	EmployeeID EmployeeID
	Name       string
	// Category is set when a single category was requested; Days then holds
	// its remaining days. Otherwise Balance holds the full mapping.
	Category Category
	Days     int
	Balance  Balance
}

func (s *Service) QueryBalance(ctx context.Context, req BalanceQuery) (res *BalanceResult, err error) {
	defer func() { s.observe("query_balance", err) }()

	if err := s.validate(req); err != nil {
		return nil, err
	}
	cat, err := optionalCategory(req.Category)
	if err != nil {
		return nil, err
	}

	emp, err := s.Store.Get(ctx, employeeID(req.EmployeeID))
	if err != nil {
		return nil, err
	}

	res = &BalanceResult{EmployeeID: emp.ID, Name: emp.Name, Balance: emp.Balance}
	if cat != "" {
		if !emp.Balance.Has(cat) {
			return nil, &CategoryError{Category: string(cat), Valid: emp.Balance.Categories()}
		}
		res.Category = cat
		res.Days = emp.Balance[cat]
	}
	return res, nil
}

// =============================================================================
// APPLY
// =============================================================================

type ApplyResult struct {
	EmployeeID EmployeeID
	Name       string
	Entry      Entry
	Remaining  int // balance of Entry.Category after the debit
}

// Apply creates a pending entry and debits its business days from the
// category balance.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (res *ApplyResult, err error) {
	defer func() { s.observe("apply", err) }()

	if err := s.validate(req); err != nil {
		return nil, err
	}

	cat := CategoryCasual
	if strings.TrimSpace(req.Category) != "" {
		if cat, err = ParseCategory(req.Category); err != nil {
			return nil, err
		}
	}

	start, err := ParseDay(req.StartDate)
	if err != nil {
		return nil, err
	}
	end := start
	if strings.TrimSpace(req.EndDate) != "" {
		if end, err = ParseDay(req.EndDate); err != nil {
			return nil, err
		}
	}
	if start.After(end) {
		return nil, ErrDateOrder
	}

	days := BusinessDays(start, end)
	entry := Entry{
		ID:        EntryID(uuid.NewString()),
		StartDate: start,
		EndDate:   end,
		Category:  cat,
		Status:    StatusPending,
		Days:      days,
		Reason:    req.Reason,
		AppliedOn: DayOf(s.now()),
	}

	id := employeeID(req.EmployeeID)
	err = s.Store.Update(ctx, id, func(emp *Employee) error {
		if !emp.Balance.Has(cat) {
			return &CategoryError{Category: string(cat), Valid: emp.Balance.Categories()}
		}
		available := emp.Balance[cat]
		if days > available {
			return &InsufficientBalanceError{EmployeeID: id, Category: cat, Requested: days, Available: available}
		}
		emp.Balance[cat] = available - days
		emp.History = append(emp.History, entry)
		res = &ApplyResult{EmployeeID: emp.ID, Name: emp.Name, Entry: entry, Remaining: emp.Balance[cat]}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("leave applied",
		zap.String("employee_id", string(id)),
		zap.String("category", string(cat)),
		zap.String("start_date", start.String()),
		zap.String("end_date", end.String()),
		zap.Int("days", days),
		zap.Int("remaining", res.Remaining))
	s.audit(ctx, AuditLeaveApplied, id, map[string]any{
		"entry_id":   string(entry.ID),
		"category":   string(cat),
		"start_date": start.String(),
		"end_date":   end.String(),
		"days":       days,
	})
	return res, nil
}

// =============================================================================
// TRANSITIONS - approve, reject, cancel
// =============================================================================

type TransitionResult struct {
	EmployeeID EmployeeID
	Name       string
	Entry      Entry
	Restored   int // days credited back; 0 for approve
	Remaining  int // balance of Entry.Category after the transition
}

// Approve moves the first pending entry on leave_date to approved. The
// balance was already debited at apply time and is not touched.
func (s *Service) Approve(ctx context.Context, req TransitionRequest) (res *TransitionResult, err error) {
	defer func() { s.observe("approve", err) }()
	return s.transition(ctx, req, StatusPending, StatusApproved, AuditLeaveApproved)
}

// Reject moves the first pending entry on leave_date to rejected and credits
// its days back.
func (s *Service) Reject(ctx context.Context, req TransitionRequest) (res *TransitionResult, err error) {
	defer func() { s.observe("reject", err) }()
	if strings.TrimSpace(req.Reason) == "" {
		req.Reason = DefaultRejectReason
	}
	return s.transition(ctx, req, StatusPending, StatusRejected, AuditLeaveRejected)
}

// Cancel moves the first approved entry on leave_date to cancelled and
// credits its days back. Pending entries cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, req TransitionRequest) (res *TransitionResult, err error) {
	defer func() { s.observe("cancel", err) }()
	return s.transition(ctx, req, StatusApproved, StatusCancelled, AuditLeaveCancelled)
}

func (s *Service) transition(ctx context.Context, req TransitionRequest, from, to Status, action AuditAction) (*TransitionResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	id := employeeID(req.EmployeeID)
	date := strings.TrimSpace(req.LeaveDate)

	var res *TransitionResult
	err := s.Store.Update(ctx, id, func(emp *Employee) error {
		i := emp.findEntry(date, from)
		if i < 0 {
			return &TransitionError{EmployeeID: id, Date: date, Required: from}
		}
		entry := &emp.History[i]
		if !CanTransition(entry.Status, to) {
			return &TransitionError{EmployeeID: id, Date: date, Required: from}
		}

		restored := 0
		if to == StatusRejected || to == StatusCancelled {
			restored = entry.Days
			emp.Balance[entry.Category] += restored
		}
		entry.Status = to
		if to == StatusRejected {
			entry.RejectReason = req.Reason
		}

		res = &TransitionResult{
			EmployeeID: emp.ID,
			Name:       emp.Name,
			Entry:      *entry,
			Restored:   restored,
			Remaining:  emp.Balance[entry.Category],
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("leave status changed",
		zap.String("employee_id", string(id)),
		zap.String("leave_date", date),
		zap.String("status", string(to)),
		zap.Int("restored", res.Restored))
	payload := map[string]any{
		"entry_id":   string(res.Entry.ID),
		"leave_date": date,
		"category":   string(res.Entry.Category),
		"restored":   res.Restored,
	}
	if to == StatusRejected {
		payload["reason"] = req.Reason
	}
	s.audit(ctx, action, id, payload)
	return res, nil
}

// =============================================================================
// HISTORY
// =============================================================================

type HistoryResult struct {
	EmployeeID EmployeeID
	Name       string
	Entries    []Entry
	// NoHistory is true when the employee has never applied for leave, as
	// opposed to having entries that the filters excluded.
	NoHistory bool
}

// Empty is the explicit no-match signal. It is not an error.
func (r *HistoryResult) Empty() bool { return len(r.Entries) == 0 }

// ListHistory returns entries matching every supplied filter, in stored order.
// Year matches the leading four characters of the start date.
func (s *Service) ListHistory(ctx context.Context, req HistoryQuery) (res *HistoryResult, err error) {
	defer func() { s.observe("list_history", err) }()

	if err := s.validate(req); err != nil {
		return nil, err
	}
	cat, err := optionalCategory(req.Category)
	if err != nil {
		return nil, err
	}
	var status Status
	if strings.TrimSpace(req.Status) != "" {
		if status, err = ParseStatus(req.Status); err != nil {
			return nil, err
		}
	}
	year := strings.TrimSpace(req.Year)

	emp, err := s.Store.Get(ctx, employeeID(req.EmployeeID))
	if err != nil {
		return nil, err
	}

	res = &HistoryResult{
		EmployeeID: emp.ID,
		Name:       emp.Name,
		Entries:    []Entry{},
		NoHistory:  len(emp.History) == 0,
	}
	for _, entry := range emp.History {
		if cat != "" && entry.Category != cat {
			continue
		}
		if status != "" && entry.Status != status {
			continue
		}
		if year != "" && !strings.HasPrefix(entry.StartDate.String(), year) {
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

// =============================================================================
// UPCOMING
// =============================================================================

type UpcomingGroup struct {
	EmployeeID EmployeeID
	Name       string
	Department string
	Entries    []Entry
}

type UpcomingResult struct {
	From      Day
	To        Day
	DaysAhead int
	Groups    []UpcomingGroup
}

func (r *UpcomingResult) Empty() bool { return len(r.Groups) == 0 }

// ListUpcoming scans approved entries starting within [today, today+daysAhead]
// across all employees. Groups follow store insertion order. Entries with an
// unusable start date are skipped.
func (s *Service) ListUpcoming(ctx context.Context, req UpcomingQuery) (res *UpcomingResult, err error) {
	defer func() { s.observe("list_upcoming", err) }()

	if err := s.validate(req); err != nil {
		return nil, err
	}
	cat, err := optionalCategory(req.Category)
	if err != nil {
		return nil, err
	}
	daysAhead := DefaultDaysAhead
	if req.DaysAhead != nil {
		daysAhead = *req.DaysAhead
	}
	department := strings.TrimSpace(req.Department)

	employees, err := s.Store.All(ctx)
	if err != nil {
		return nil, err
	}

	today := DayOf(s.now())
	res = &UpcomingResult{From: today, To: today.AddDays(daysAhead), DaysAhead: daysAhead}
	for _, emp := range employees {
		if department != "" && emp.Department != department {
			continue
		}
		var matched []Entry
		for _, entry := range emp.History {
			if entry.Status != StatusApproved || entry.StartDate.IsZero() {
				continue
			}
			if cat != "" && entry.Category != cat {
				continue
			}
			if entry.StartDate.Within(res.From, res.To) {
				matched = append(matched, entry)
			}
		}
		if len(matched) > 0 {
			res.Groups = append(res.Groups, UpcomingGroup{
				EmployeeID: emp.ID,
				Name:       emp.Name,
				Department: emp.Department,
				Entries:    matched,
			})
		}
	}
	return res, nil
}

// =============================================================================
// REGISTRATION
// =============================================================================

// RegisterEmployee creates an employee with DefaultBalance and no history.
func (s *Service) RegisterEmployee(ctx context.Context, req RegisterRequest) (emp *Employee, err error) {
	defer func() { s.observe("register_employee", err) }()

	if err := s.validate(req); err != nil {
		return nil, err
	}

	emp = &Employee{
		ID:         employeeID(req.EmployeeID),
		Name:       strings.TrimSpace(req.Name),
		Department: strings.TrimSpace(req.Department),
		Balance:    DefaultBalance(),
		History:    []Entry{},
	}
	if err := s.Store.Create(ctx, emp); err != nil {
		return nil, err
	}

	s.Logger.Info("employee registered",
		zap.String("employee_id", string(emp.ID)),
		zap.String("department", emp.Department))
	s.audit(ctx, AuditEmployeeAdded, emp.ID, map[string]any{
		"name":       emp.Name,
		"department": emp.Department,
	})
	return emp.Clone(), nil
}

// GetEmployee returns a copy of one employee record.
func (s *Service) GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error) {
	return s.Store.Get(ctx, employeeID(string(id)))
}

// ListEmployees returns every employee in insertion order.
func (s *Service) ListEmployees(ctx context.Context) ([]*Employee, error) {
	return s.Store.All(ctx)
}

// =============================================================================
// ADMINISTRATIVE ADJUSTMENT
// =============================================================================

type AdjustResult struct {
	EmployeeID EmployeeID
	Name       string
	Category   Category
	Delta      int
	Balance    int
}

// AdjustBalance adds a signed delta to one category. This is the only
// operation allowed to drive a balance negative.
func (s *Service) AdjustBalance(ctx context.Context, req AdjustRequest) (res *AdjustResult, err error) {
	defer func() { s.observe("adjust_balance", err) }()

	if err := s.validate(req); err != nil {
		return nil, err
	}
	cat, err := ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}
	delta := *req.Days

	id := employeeID(req.EmployeeID)
	err = s.Store.Update(ctx, id, func(emp *Employee) error {
		if !emp.Balance.Has(cat) {
			return &CategoryError{Category: string(cat), Valid: emp.Balance.Categories()}
		}
		emp.Balance[cat] += delta
		res = &AdjustResult{EmployeeID: emp.ID, Name: emp.Name, Category: cat, Delta: delta, Balance: emp.Balance[cat]}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("balance adjusted",
		zap.String("employee_id", string(id)),
		zap.String("category", string(cat)),
		zap.Int("delta", delta),
		zap.Int("balance", res.Balance))
	s.audit(ctx, AuditBalanceAdjusted, id, map[string]any{
		"category": string(cat),
		"delta":    delta,
		"balance":  res.Balance,
	})
	return res, nil
}

// AuditTrail returns audit entries matching filter, or nil when no audit log
// is configured.
func (s *Service) AuditTrail(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	if s.AuditLog == nil {
		return nil, nil
	}
	return s.AuditLog.Query(ctx, filter)
}
