package validation_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/pkg/types"
	"github.com/moneypot/moneypot/pkg/validation"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func timePtr(t time.Time) *time.Time { return &t }

func TestPotValidator_ValidateCreate(t *testing.T) {
	validator := validation.NewPotValidator(clock)

	tests := []struct {
		name          string
		data          types.CreatePotData
		expectInvalid bool
		expectIssue   bool
		field         string
		errorLevel    validation.ValidationLevel
	}{
		{
			name: "valid pot",
			data: types.CreatePotData{
				Title:        "Team gift",
				TargetAmount: decimal.RequireFromString("120"),
			},
		},
		{
			name: "missing title",
			data: types.CreatePotData{
				Title:        "   ",
				TargetAmount: decimal.RequireFromString("120"),
			},
			expectInvalid: true,
			expectIssue:   true,
			field:         "title",
			errorLevel:    validation.ValidationLevelError,
		},
		{
			name: "title too long",
			data: types.CreatePotData{
				Title:        strings.Repeat("x", 121),
				TargetAmount: decimal.RequireFromString("120"),
			},
			expectInvalid: true,
			expectIssue:   true,
			field:         "title",
			errorLevel:    validation.ValidationLevelError,
		},
		{
			name: "zero target",
			data: types.CreatePotData{
				Title:        "Team gift",
				TargetAmount: decimal.Zero,
			},
			expectInvalid: true,
			expectIssue:   true,
			field:         "target_amount",
			errorLevel:    validation.ValidationLevelError,
		},
		{
			name: "sub-cent target warns",
			data: types.CreatePotData{
				Title:        "Team gift",
				TargetAmount: decimal.RequireFromString("10.005"),
			},
			expectIssue: true,
			field:       "target_amount",
			errorLevel:  validation.ValidationLevelWarning,
		},
		{
			name: "expired at creation",
			data: types.CreatePotData{
				Title:          "Team gift",
				TargetAmount:   decimal.RequireFromString("120"),
				ExpirationDate: timePtr(fixedNow.Add(-time.Hour)),
			},
			expectInvalid: true,
			expectIssue:   true,
			field:         "expiration_date",
			errorLevel:    validation.ValidationLevelError,
		},
		{
			name: "far future expiration warns",
			data: types.CreatePotData{
				Title:          "Team gift",
				TargetAmount:   decimal.RequireFromString("120"),
				ExpirationDate: timePtr(fixedNow.AddDate(10, 0, 0)),
			},
			expectIssue: true,
			field:       "expiration_date",
			errorLevel:  validation.ValidationLevelWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.ValidateCreate(tt.data)

			if result.Valid == tt.expectInvalid {
				t.Errorf("expected valid=%v, got %v (%v)", !tt.expectInvalid, result.Valid, result.Errors)
			}
			if !tt.expectIssue {
				if len(result.Errors) > 0 {
					t.Errorf("expected no issues, got %v", result.Errors)
				}
				return
			}

			found := false
			for _, e := range result.Errors {
				if e.Field == tt.field && e.Level == tt.errorLevel {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %s issue on %s, got %v", tt.errorLevel, tt.field, result.Errors)
			}
		})
	}
}

func TestPotValidator_ValidateJoin(t *testing.T) {
	validator := validation.NewPotValidator(clock)

	tests := []struct {
		name          string
		data          types.JoinPotData
		expectInvalid bool
		field         string
	}{
		{
			name: "valid pledge",
			data: types.JoinPotData{Name: "Alice", MaxPledge: decimal.RequireFromString("25.50")},
		},
		{
			name:          "missing name",
			data:          types.JoinPotData{MaxPledge: decimal.RequireFromString("25")},
			expectInvalid: true,
			field:         "name",
		},
		{
			name:          "name too long",
			data:          types.JoinPotData{Name: strings.Repeat("n", 81), MaxPledge: decimal.RequireFromString("25")},
			expectInvalid: true,
			field:         "name",
		},
		{
			name:          "negative pledge",
			data:          types.JoinPotData{Name: "Bob", MaxPledge: decimal.RequireFromString("-3")},
			expectInvalid: true,
			field:         "max_pledge",
		},
		{
			name:          "zero pledge",
			data:          types.JoinPotData{Name: "Bob", MaxPledge: decimal.Zero},
			expectInvalid: true,
			field:         "max_pledge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.ValidateJoin(tt.data)

			if result.Valid == tt.expectInvalid {
				t.Fatalf("expected valid=%v, got %v (%v)", !tt.expectInvalid, result.Valid, result.Errors)
			}
			if !tt.expectInvalid {
				return
			}

			err := result.Err()
			if !errors.Is(err, validation.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %s, got %v", tt.field, err)
			}
		})
	}
}

func TestValidationResult_ErrNilWhenOnlyWarnings(t *testing.T) {
	result := &validation.ValidationResult{Valid: true}
	result.AddError("max_pledge", "will be rounded", validation.ValidationLevelWarning)

	if err := result.Err(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if len(result.Warnings()) != 1 {
		t.Errorf("expected 1 warning, got %d", len(result.Warnings()))
	}
}
