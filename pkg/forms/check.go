package forms

import (
	"fmt"
	"regexp"
	"strings"
)

// Values is a read-only view over form field values.
type Values interface {
	Get(name string) any
}

// Map adapts a plain map to Values.
type Map map[string]any

// Get returns the value of name.
func (m Map) Get(name string) any {
	return m[name]
}

// Check accumulates per-field results over a set of values, changeset style.
// The first failure recorded for a field wins; later rules on the same field
// are still evaluated but cannot turn it valid again.
type Check struct {
	values  Values
	results Results
}

// NewCheck starts a check over v.
func NewCheck(v Values) *Check {
	return &Check{values: v, results: make(Results)}
}

// Results returns the accumulated results.
func (c *Check) Results() Results {
	out := make(Results, len(c.results))
	for k, v := range c.results {
		out[k] = v
	}
	return out
}

// Valid records a passing result unless field already failed.
func (c *Check) Valid(field string) *Check {
	c.set(field, Valid())
	return c
}

// Fail records a failure for field.
func (c *Check) Fail(field, reason string) *Check {
	c.set(field, Invalid(reason))
	return c
}

// Required fails field when it is empty.
func (c *Check) Required(field, msg string) *Check {
	if isEmpty(c.values.Get(field)) {
		return c.Fail(field, msg)
	}
	return c.Valid(field)
}

// RequiredIf applies Required only when cond holds. Otherwise the field is
// recorded as valid.
func (c *Check) RequiredIf(field string, cond bool, msg string) *Check {
	if cond {
		return c.Required(field, msg)
	}
	return c.Valid(field)
}

// Format fails field when it is non-empty and does not match re.
func (c *Check) Format(field string, re *regexp.Regexp, msg string) *Check {
	s, _ := c.values.Get(field).(string)
	if strings.TrimSpace(s) != "" && !re.MatchString(strings.TrimSpace(s)) {
		return c.Fail(field, msg)
	}
	return c.Valid(field)
}

// Confirm fails field when its value differs from other's, whatever the
// validity of either field on its own.
func (c *Check) Confirm(field, other, msg string) *Check {
	if fmt.Sprint(c.values.Get(field)) != fmt.Sprint(c.values.Get(other)) {
		return c.Fail(field, msg)
	}
	return c.Valid(field)
}

// Validate runs validators on field, failing with the first one's message.
func (c *Check) Validate(field string, validators ...Validator) *Check {
	value := c.values.Get(field)
	for _, v := range validators {
		if err := v.Validate(value); err != nil {
			return c.Fail(field, v.Message())
		}
	}
	return c.Valid(field)
}

// Assert fails field with msg unless ok.
func (c *Check) Assert(field string, ok bool, msg string) *Check {
	if !ok {
		return c.Fail(field, msg)
	}
	return c.Valid(field)
}

// Fields checks field definitions: required first, then their validators.
func (c *Check) Fields(fields ...Field) *Check {
	for _, f := range fields {
		value := c.values.Get(f.Name)
		if f.Required && isEmpty(value) {
			c.Fail(f.Name, requiredMessage(f))
			continue
		}
		c.Validate(f.Name, f.Validators...)
	}
	return c
}

func (c *Check) set(field string, r Result) {
	if prev, ok := c.results[field]; ok && !prev.OK() {
		return
	}
	c.results[field] = r
}

func requiredMessage(f Field) string {
	label := f.Label
	if label == "" {
		label = f.Name
	}
	switch f.Type {
	case FieldCheckbox:
		return label + " must be accepted"
	case FieldFile:
		return label + " is required"
	case FieldSelect, FieldRadio:
		return "Please select " + strings.ToLower(label)
	}
	return label + " is required"
}
