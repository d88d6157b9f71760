// Package validation provides pot and pledge input validation
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/pkg/allocation"
	"github.com/moneypot/moneypot/pkg/types"
)

const (
	maxTitleLength   = 120
	maxNameLength    = 80
	farFutureHorizon = 5 * 365 * 24 * time.Hour
)

// ErrInvalidInput is wrapped by every error returned from ValidationResult.Err
var ErrInvalidInput = errors.New("invalid input")

// ValidationLevel represents error severity
type ValidationLevel string

const (
	ValidationLevelError   ValidationLevel = "error"
	ValidationLevelWarning ValidationLevel = "warning"
	ValidationLevelInfo    ValidationLevel = "info"
)

// ValidationError represents a single validation issue
type ValidationError struct {
	Field   string
	Message string
	Level   ValidationLevel
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Level, e.Field, e.Message)
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// AddError adds an issue to the validation result
func (r *ValidationResult) AddError(field, message string, level ValidationLevel) {
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Message: message,
		Level:   level,
	})
	if level == ValidationLevelError {
		r.Valid = false
	}
}

// Warnings returns the non-fatal issues
func (r *ValidationResult) Warnings() []ValidationError {
	var out []ValidationError
	for _, e := range r.Errors {
		if e.Level != ValidationLevelError {
			out = append(out, e)
		}
	}
	return out
}

// Err folds every error-level issue into one error wrapping ErrInvalidInput.
// It returns nil when the result is valid.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	var msgs []string
	for _, e := range r.Errors {
		if e.Level == ValidationLevelError {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

// PotValidator validates pot creation and join requests
type PotValidator struct {
	now func() time.Time
}

// NewPotValidator creates a validator. A nil clock means time.Now.
func NewPotValidator(now func() time.Time) *PotValidator {
	if now == nil {
		now = time.Now
	}
	return &PotValidator{now: now}
}

// ValidateCreate validates the input for a new pot
func (v *PotValidator) ValidateCreate(data types.CreatePotData) *ValidationResult {
	result := &ValidationResult{Valid: true}

	title := strings.TrimSpace(data.Title)
	switch {
	case title == "":
		result.AddError("title", "title is required", ValidationLevelError)
	case utf8.RuneCountInString(title) > maxTitleLength:
		result.AddError("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength), ValidationLevelError)
	}

	v.validateAmount(result, "target_amount", data.TargetAmount)

	if data.ExpirationDate != nil {
		now := v.now()
		switch {
		case !data.ExpirationDate.After(now):
			result.AddError("expiration_date", "expiration date must be in the future", ValidationLevelError)
		case data.ExpirationDate.Sub(now) > farFutureHorizon:
			result.AddError("expiration_date", "expiration date is more than five years away", ValidationLevelWarning)
		}
	}

	return result
}

// ValidateJoin validates the input for joining a pot
func (v *PotValidator) ValidateJoin(data types.JoinPotData) *ValidationResult {
	result := &ValidationResult{Valid: true}

	name := strings.TrimSpace(data.Name)
	switch {
	case name == "":
		result.AddError("name", "name is required", ValidationLevelError)
	case utf8.RuneCountInString(name) > maxNameLength:
		result.AddError("name", fmt.Sprintf("name must be at most %d characters", maxNameLength), ValidationLevelError)
	}

	v.validateAmount(result, "max_pledge", data.MaxPledge)

	return result
}

func (v *PotValidator) validateAmount(result *ValidationResult, field string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		result.AddError(field, "amount must be greater than zero", ValidationLevelError)
		return
	}
	if !allocation.RoundAmount(amount).Equal(amount) {
		result.AddError(field,
			fmt.Sprintf("amount has more than %d decimal places and will be rounded", allocation.CurrencyPlaces),
			ValidationLevelWarning)
	}
}
