// Package forms holds the field store and validation rules shared by every
// multi-step shop form.
package forms

import (
	"sort"
	"strings"
)

// Result is the outcome of checking one field: valid, or invalid with a
// reason. The zero value is valid.
type Result struct {
	reason  string
	invalid bool
}

// Valid returns a passing result.
func Valid() Result {
	return Result{}
}

// Invalid returns a failing result with a human readable reason.
func Invalid(reason string) Result {
	return Result{reason: reason, invalid: true}
}

// OK reports whether the field passed.
func (r Result) OK() bool {
	return !r.invalid
}

// Reason returns the failure message, or "" for a valid result.
func (r Result) Reason() string {
	return r.reason
}

func (r Result) String() string {
	if r.invalid {
		return "invalid(" + r.reason + ")"
	}
	return "valid"
}

// Results maps every checked field to its result. A field missing from the
// map was not checked at all.
type Results map[string]Result

// OK reports whether every checked field passed.
func (rs Results) OK() bool {
	for _, r := range rs {
		if !r.OK() {
			return false
		}
	}
	return true
}

// Checked reports whether field has a result.
func (rs Results) Checked(field string) bool {
	_, ok := rs[field]
	return ok
}

// Reason returns the failure message for field.
func (rs Results) Reason(field string) string {
	return rs[field].Reason()
}

// Invalid returns the failing fields and their messages.
func (rs Results) Invalid() map[string]string {
	out := make(map[string]string)
	for field, r := range rs {
		if !r.OK() {
			out[field] = r.Reason()
		}
	}
	return out
}

// InvalidFields returns the failing field names, sorted.
func (rs Results) InvalidFields() []string {
	var fields []string
	for field, r := range rs {
		if !r.OK() {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Merge combines two result sets. A failure on either side wins.
func (rs Results) Merge(other Results) Results {
	out := make(Results, len(rs)+len(other))
	for field, r := range rs {
		out[field] = r
	}
	for field, r := range other {
		if prev, ok := out[field]; ok && !prev.OK() {
			continue
		}
		out[field] = r
	}
	return out
}

// Without returns a copy of rs without field.
func (rs Results) Without(field string) Results {
	out := make(Results, len(rs))
	for f, r := range rs {
		if f != field {
			out[f] = r
		}
	}
	return out
}

// Error renders the failures as "field: reason" pairs.
func (rs Results) Error() string {
	var parts []string
	for _, field := range rs.InvalidFields() {
		parts = append(parts, field+": "+rs[field].Reason())
	}
	return strings.Join(parts, ", ")
}
