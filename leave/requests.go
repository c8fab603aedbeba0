package leave

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// =============================================================================
// REQUESTS - One typed request per operation, validated once at the boundary
// =============================================================================

// DefaultDaysAhead is the upcoming-leave window when none is given.
const DefaultDaysAhead = 30

// MaxDaysAhead bounds the upcoming-leave window; kept in step with the
// days_ahead max tag on UpcomingQuery.
const MaxDaysAhead = 3650

// DefaultRejectReason is recorded when a rejection carries no reason.
const DefaultRejectReason = "Not specified"

type BalanceQuery struct {
	EmployeeID string `json:"employee_id" mapstructure:"employee_id" validate:"required,notblank"`
	Category   string `json:"leave_type,omitempty" mapstructure:"leave_type"`
}

// ApplyRequest asks for leave over [StartDate, EndDate]. EndDate defaults to
// StartDate and Category defaults to casual.
type ApplyRequest struct {
	EmployeeID string `json:"employee_id" mapstructure:"employee_id" validate:"required,notblank"`
	StartDate  string `json:"start_date" mapstructure:"start_date" validate:"required"`
	EndDate    string `json:"end_date,omitempty" mapstructure:"end_date"`
	Category   string `json:"leave_type,omitempty" mapstructure:"leave_type"`
	Reason     string `json:"reason,omitempty" mapstructure:"reason"`
}

// TransitionRequest identifies an entry by employee and start date. Reason is
// only used by reject.
type TransitionRequest struct {
	EmployeeID string `json:"employee_id" mapstructure:"employee_id" validate:"required,notblank"`
	LeaveDate  string `json:"leave_date" mapstructure:"leave_date" validate:"required"`
	Reason     string `json:"reason,omitempty" mapstructure:"reason"`
}

type HistoryQuery struct {
	EmployeeID string `json:"employee_id" mapstructure:"employee_id" validate:"required,notblank"`
	Category   string `json:"leave_type,omitempty" mapstructure:"leave_type"`
	Status     string `json:"status,omitempty" mapstructure:"status"`
	Year       string `json:"year,omitempty" mapstructure:"year"`
}

type UpcomingQuery struct {
	Department string `json:"department,omitempty" mapstructure:"department"`
	Category   string `json:"leave_type,omitempty" mapstructure:"leave_type"`
	DaysAhead  *int   `json:"days_ahead,omitempty" mapstructure:"days_ahead" validate:"omitempty,min=0,max=3650"`
}

type RegisterRequest struct {
	EmployeeID string `json:"employee_id" mapstructure:"employee_id" validate:"required,notblank"`
	Name       string `json:"name" mapstructure:"name" validate:"required,notblank"`
	Department string `json:"department" mapstructure:"department" validate:"required,notblank"`
}

// AdjustRequest adds a signed number of days to one category.
type AdjustRequest struct {
	EmployeeID string `json:"employee_id" mapstructure:"employee_id" validate:"required,notblank"`
	Category   string `json:"leave_type" mapstructure:"leave_type" validate:"required"`
	Days       *int   `json:"days" mapstructure:"days" validate:"required"`
}

type UsageQuery struct {
	Department string `json:"department,omitempty" mapstructure:"department"`
}

// =============================================================================
// VALIDATION
// =============================================================================

// NewValidator returns a validator that reports fields by their json name.
// notblank rejects whitespace-only strings.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateRequest converts validator failures into a RequestError for the
// first offending field.
func validateRequest(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &RequestError{Field: "request", Reason: err.Error()}
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return &RequestError{Field: fe.Field(), Reason: "field is required"}
	case "min":
		return &RequestError{Field: fe.Field(), Reason: "must be at least " + fe.Param()}
	case "max":
		return &RequestError{Field: fe.Field(), Reason: "must be at most " + fe.Param()}
	default:
		return &RequestError{Field: fe.Field(), Reason: "failed " + fe.Tag() + " validation"}
	}
}

// employeeID is the stored form of a caller-supplied id. Every operation
// looks employees up through it.
func employeeID(s string) EmployeeID {
	return EmployeeID(strings.TrimSpace(s))
}

// optionalCategory parses s, returning "" for an empty token.
func optionalCategory(s string) (Category, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return ParseCategory(s)
}
