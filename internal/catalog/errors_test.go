package catalog

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		min     int
		max     int
		wantErr bool
	}{
		{"in range", 500, 1, 1000, false},
		{"lower bound", 1, 1, 1000, false},
		{"upper bound", 1000, 1, 1000, false},
		{"below min", 0, 1, 1000, true},
		{"above max", 1001, 1, 1000, true},
		{"negative", -5, 1, 1000, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRange("size", tc.value, tc.min, tc.max)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateRange(%d) error = %v; wantErr %v", tc.value, err, tc.wantErr)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("expected a ValidationError, got %T", err)
			}
		})
	}
}

func TestIsValidationWrapped(t *testing.T) {
	err := fmt.Errorf("search failed: %w", &ValidationError{Field: "size", Value: 0, Reason: "must be positive"})
	if !IsValidation(err) {
		t.Error("IsValidation should see through wrapping")
	}
	if IsValidation(errors.New("plain")) {
		t.Error("plain error misclassified as validation")
	}
}

func TestConstraintErrorUnwrap(t *testing.T) {
	cause := errors.New("duplicate key value")
	err := fmt.Errorf("create asset: %w", &ConstraintError{
		Table:      "assets",
		Constraint: "assets_owner_checksum_uq",
		Err:        cause,
	})
	if !IsConstraint(err) {
		t.Error("IsConstraint should see through wrapping")
	}
	if !errors.Is(err, cause) {
		t.Error("ConstraintError should unwrap to the driver error")
	}
}

func TestIsConfiguration(t *testing.T) {
	err := &ConfigurationError{Key: "smart_search.embedding", Reason: "dimension not set"}
	if !IsConfiguration(fmt.Errorf("upsert: %w", err)) {
		t.Error("IsConfiguration should see through wrapping")
	}
	if IsConfiguration(errors.New("plain")) {
		t.Error("plain error misclassified as configuration")
	}
}
