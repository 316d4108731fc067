package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("tbs")
	cv.Required("binary", "")

	if !cv.HasErrors() {
		t.Error("Expected error for empty required field")
	}

	cv2 := NewConfigValidator("tbs")
	cv2.Required("binary", "tbs")

	if cv2.HasErrors() {
		t.Error("Expected no error for non-empty required field")
	}
}

func TestConfigValidator_Ints(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(*ConfigValidator)
		wantErr bool
	}{
		{"min ok", func(cv *ConfigValidator) { cv.MinInt("cores", 2, 1) }, false},
		{"min below", func(cv *ConfigValidator) { cv.MinInt("cores", 0, 1) }, true},
		{"positive", func(cv *ConfigValidator) { cv.Positive("max_vms", 1) }, false},
		{"positive zero", func(cv *ConfigValidator) { cv.Positive("max_vms", 0) }, true},
		{"non-negative zero", func(cv *ConfigValidator) { cv.NonNegative("fixed_vm_count", 0) }, false},
		{"non-negative below", func(cv *ConfigValidator) { cv.NonNegative("fixed_vm_count", -1) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("machine")
			tt.apply(cv)
			if cv.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v (%v)", cv.HasErrors(), tt.wantErr, cv.Errors())
			}
		})
	}
}

func TestConfigValidator_Floats(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(*ConfigValidator)
		wantErr bool
	}{
		{"positive", func(cv *ConfigValidator) { cv.PositiveFloat("memory_gb", 64) }, false},
		{"positive zero", func(cv *ConfigValidator) { cv.PositiveFloat("memory_gb", 0) }, true},
		{"positive NaN", func(cv *ConfigValidator) { cv.PositiveFloat("memory_gb", math.NaN()) }, true},
		{"positive Inf", func(cv *ConfigValidator) { cv.PositiveFloat("memory_gb", math.Inf(1)) }, true},
		{"min equal", func(cv *ConfigValidator) { cv.MinFloat("over_subscription", 1, 1) }, false},
		{"min below", func(cv *ConfigValidator) { cv.MinFloat("over_subscription", 0.5, 1) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("experiment")
			tt.apply(cv)
			if cv.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v", cv.HasErrors(), tt.wantErr)
			}
		})
	}
}

func TestConfigValidator_NonNegativeDuration(t *testing.T) {
	cv := NewConfigValidator("fleet")
	cv.NonNegativeDuration("task_timeout", 0)
	cv.NonNegativeDuration("task_timeout", time.Minute)
	if cv.HasErrors() {
		t.Errorf("unexpected errors: %v", cv.Errors())
	}
	cv.NonNegativeDuration("task_timeout", -time.Second)
	if !cv.HasErrors() {
		t.Error("Expected error for negative duration")
	}
}

func TestConfigValidator_OneOf(t *testing.T) {
	allowed := []string{"sn", "mvs"}

	cv := NewConfigValidator("experiment")
	cv.OneOf("variant", "mvs", allowed)
	if cv.HasErrors() {
		t.Error("Expected no error for allowed value")
	}

	cv.OneOf("variant", "other", allowed)
	if !cv.HasErrors() {
		t.Error("Expected error for value not in allowed list")
	}
}

func TestConfigValidator_UniqueInts(t *testing.T) {
	cv := NewConfigValidator("config")
	cv.UniqueInts("machines", []int{0, 1, 2})
	if cv.HasErrors() {
		t.Error("Expected no error for unique ids")
	}

	cv.UniqueInts("machines", []int{0, 1, 0, 1})
	if got := len(cv.Errors()); got != 2 {
		t.Errorf("Errors() = %d, want one per duplicate", got)
	}
}

func TestConfigValidator_CustomWraps(t *testing.T) {
	sentinel := errors.New("bad theta")
	cv := NewConfigValidator("platforms")
	cv.Custom("amd64", func() error { return sentinel })

	if err := cv.Validate(); !errors.Is(err, sentinel) {
		t.Errorf("Validate() = %v, want wrapping %v", err, sentinel)
	}
	if !strings.HasPrefix(cv.Errors()[0].Error(), "platforms.amd64:") {
		t.Errorf("error %q lacks field prefix", cv.Errors()[0])
	}
}

func TestConfigValidator_When(t *testing.T) {
	cv := NewConfigValidator("tbs")
	cv.When(false, func(v *ConfigValidator) { v.Required("binary", "") })
	if cv.HasErrors() {
		t.Error("When(false) should skip validations")
	}
	cv.When(true, func(v *ConfigValidator) { v.Required("binary", "") })
	if !cv.HasErrors() {
		t.Error("When(true) should apply validations")
	}
}

func TestConfigValidator_Validate(t *testing.T) {
	cv := NewConfigValidator("machine")
	if err := cv.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	sentinel := errors.New("second")
	cv.Positive("cores", 0).Custom("params", func() error { return sentinel })
	err := cv.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !strings.Contains(err.Error(), "2 errors") {
		t.Errorf("Validate() = %q, want error count", err)
	}
	if !errors.Is(err, sentinel) {
		t.Error("Validate() should keep every error reachable")
	}
}

func TestDefaultOr(t *testing.T) {
	if got := DefaultOr("", "gpmetis"); got != "gpmetis" {
		t.Errorf("DefaultOr(\"\") = %q", got)
	}
	if got := DefaultOr("/opt/gpmetis", "gpmetis"); got != "/opt/gpmetis" {
		t.Errorf("DefaultOr() = %q", got)
	}
	if got := DefaultOrInt(-3, 20); got != 20 {
		t.Errorf("DefaultOrInt(-3) = %d", got)
	}
	if got := DefaultOrInt(5, 20); got != 5 {
		t.Errorf("DefaultOrInt(5) = %d", got)
	}
}
