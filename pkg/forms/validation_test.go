package forms

import (
	"testing"
)

func TestKenyanPhoneValidator(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+254712345678", true},
		{"+254112345678", true},
		{"0712345678", true},
		{"0112345678", true},
		{"0712 345 678", true},
		{"12345", false},
		{"+254812345678", false},
		{"071234567", false},
		{"07123456789", false},
		{"254712345678", false},
		{"", true}, // emptiness is Required's job
	}

	v := KenyanPhone()
	for _, tt := range tests {
		err := v.Validate(tt.phone)
		if tt.valid && err != nil {
			t.Errorf("expected %q to be valid, got %v", tt.phone, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("expected %q to be invalid", tt.phone)
		}
	}
}

func TestEmailValidator(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"rider@oshocks.co.ke", true},
		{"a@b.c", true},
		{"no-at-sign.com", false},
		{"spaces in@mail.com", false},
		{"missing@tld", false},
	}

	v := Email()
	for _, tt := range tests {
		err := v.Validate(tt.email)
		if tt.valid != (err == nil) {
			t.Errorf("email %q: expected valid=%v, got err=%v", tt.email, tt.valid, err)
		}
	}
}

func TestRequiredValidator(t *testing.T) {
	v := Required()

	empty := []any{nil, "", "   ", false, []string{}, map[string]any{}}
	for _, value := range empty {
		if v.Validate(value) == nil {
			t.Errorf("expected %#v to be treated as empty", value)
		}
	}

	present := []any{"x", true, []string{"a"}, 0, 3.5}
	for _, value := range present {
		if err := v.Validate(value); err != nil {
			t.Errorf("expected %#v to be present, got %v", value, err)
		}
	}
}

func TestOneOfValidator(t *testing.T) {
	v := OneOf("Bicycle", "Motorcycle")

	if err := v.Validate("Bicycle"); err != nil {
		t.Errorf("expected Bicycle to be allowed, got %v", err)
	}
	if err := v.Validate("Truck"); err == nil {
		t.Error("expected Truck to be rejected")
	}
	if err := v.Validate([]string{"Bicycle", "Motorcycle"}); err != nil {
		t.Errorf("expected list of allowed values to pass, got %v", err)
	}
	if err := v.Validate([]string{"Bicycle", "Boat"}); err == nil {
		t.Error("expected list with unknown value to fail")
	}
}

func TestNumericAndMinValidators(t *testing.T) {
	if err := Numeric().Validate("12.50"); err != nil {
		t.Errorf("expected numeric string to pass, got %v", err)
	}
	if err := Numeric().Validate("twelve"); err == nil {
		t.Error("expected non-numeric string to fail")
	}
	if err := GreaterThan(0).Validate("0"); err == nil {
		t.Error("expected 0 to fail GreaterThan(0)")
	}
	if err := Min(0).Validate("0"); err != nil {
		t.Errorf("expected 0 to pass Min(0), got %v", err)
	}
}

func TestDateValidator(t *testing.T) {
	if err := Date().Validate("1999-12-31"); err != nil {
		t.Errorf("expected valid date, got %v", err)
	}
	if err := Date().Validate("31/12/1999"); err == nil {
		t.Error("expected day-first date to fail")
	}
}
