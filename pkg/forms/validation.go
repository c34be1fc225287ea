package forms

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Shared formats.
var (
	EmailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	KenyanPhonePattern = regexp.MustCompile(`^(?:\+254|0)[17]\d{8}$`)
)

// Validator validates a field value.
type Validator interface {
	// Validate checks if the value is valid.
	Validate(value any) error

	// Message returns the error message.
	Message() string
}

// RequiredValidator validates that a field is not empty.
type RequiredValidator struct{}

func (v RequiredValidator) Validate(value any) error {
	if isEmpty(value) {
		return errors.New("required")
	}
	return nil
}

func (v RequiredValidator) Message() string {
	return "This field is required"
}

// EmailValidator validates email format.
type EmailValidator struct{}

func (v EmailValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil // Required handles emptiness
	}
	if !EmailPattern.MatchString(strings.TrimSpace(str)) {
		return errors.New("invalid email")
	}
	return nil
}

func (v EmailValidator) Message() string {
	return "Please enter a valid email address"
}

// KenyanPhoneValidator accepts +2547XXXXXXXX, +2541XXXXXXXX, 07XXXXXXXX and 01XXXXXXXX.
type KenyanPhoneValidator struct{}

func (v KenyanPhoneValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}
	if !KenyanPhonePattern.MatchString(NormalizePhone(str)) {
		return errors.New("invalid phone")
	}
	return nil
}

func (v KenyanPhoneValidator) Message() string {
	return "Please enter a valid Kenyan phone number (e.g. +254712345678 or 0712345678)"
}

// NormalizePhone removes spaces and dashes users type between digit groups.
func NormalizePhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}

// MinLengthValidator validates minimum string length.
type MinLengthValidator struct {
	Min int
}

func (v MinLengthValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}
	if utf8.RuneCountInString(str) < v.Min {
		return fmt.Errorf("too short (min %d)", v.Min)
	}
	return nil
}

func (v MinLengthValidator) Message() string {
	return fmt.Sprintf("Must be at least %d characters", v.Min)
}

// MaxLengthValidator validates maximum string length.
type MaxLengthValidator struct {
	Max int
}

func (v MaxLengthValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok {
		return nil
	}
	if utf8.RuneCountInString(str) > v.Max {
		return fmt.Errorf("too long (max %d)", v.Max)
	}
	return nil
}

func (v MaxLengthValidator) Message() string {
	return fmt.Sprintf("Must be at most %d characters", v.Max)
}

// PatternValidator validates against a regex pattern.
type PatternValidator struct {
	Pattern *regexp.Regexp
	Msg     string
}

func (v PatternValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}
	if !v.Pattern.MatchString(str) {
		return errors.New("pattern mismatch")
	}
	return nil
}

func (v PatternValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Invalid format"
}

// OneOfValidator validates that value is one of the allowed strings.
type OneOfValidator struct {
	Values []string
}

func (v OneOfValidator) Validate(value any) error {
	if isEmpty(value) {
		return nil
	}
	check := func(s string) error {
		for _, allowed := range v.Values {
			if s == allowed {
				return nil
			}
		}
		return fmt.Errorf("invalid option %q", s)
	}
	switch val := value.(type) {
	case string:
		return check(val)
	case []string:
		for _, s := range val {
			if err := check(s); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.New("invalid option")
	}
}

func (v OneOfValidator) Message() string {
	return "Invalid selection"
}

// NumericValidator validates that a value parses as a number.
type NumericValidator struct{}

func (v NumericValidator) Validate(value any) error {
	if isEmpty(value) {
		return nil
	}
	if _, ok := toFloat64(value); !ok {
		return errors.New("not a number")
	}
	return nil
}

func (v NumericValidator) Message() string {
	return "Must be a number"
}

// MinValidator validates a minimum numeric value.
type MinValidator struct {
	Min       float64
	Exclusive bool
}

func (v MinValidator) Validate(value any) error {
	if isEmpty(value) {
		return nil
	}
	num, ok := toFloat64(value)
	if !ok {
		return errors.New("not a number")
	}
	if num < v.Min || (v.Exclusive && num == v.Min) {
		return fmt.Errorf("must be at least %v", v.Min)
	}
	return nil
}

func (v MinValidator) Message() string {
	if v.Exclusive {
		return fmt.Sprintf("Must be greater than %v", v.Min)
	}
	return fmt.Sprintf("Must be at least %v", v.Min)
}

// DateValidator validates YYYY-MM-DD dates.
type DateValidator struct{}

func (v DateValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}
	_, err := time.Parse(time.DateOnly, str)
	return err
}

func (v DateValidator) Message() string {
	return "Please enter a date as YYYY-MM-DD"
}

// CustomValidator allows custom validation functions.
type CustomValidator struct {
	Fn  func(value any) error
	Msg string
}

func (v CustomValidator) Validate(value any) error {
	return v.Fn(value)
}

func (v CustomValidator) Message() string {
	return v.Msg
}

// Convenience constructors

// Required returns a required validator.
func Required() Validator {
	return RequiredValidator{}
}

// Email returns an email validator.
func Email() Validator {
	return EmailValidator{}
}

// KenyanPhone returns a Kenyan phone number validator.
func KenyanPhone() Validator {
	return KenyanPhoneValidator{}
}

// MinLength returns a minimum length validator.
func MinLength(n int) Validator {
	return MinLengthValidator{Min: n}
}

// MaxLength returns a maximum length validator.
func MaxLength(n int) Validator {
	return MaxLengthValidator{Max: n}
}

// Pattern returns a pattern validator. It panics if pattern does not compile.
func Pattern(pattern string, msg ...string) Validator {
	v := PatternValidator{Pattern: regexp.MustCompile(pattern)}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

// OneOf returns a one-of validator.
func OneOf(values ...string) Validator {
	return OneOfValidator{Values: values}
}

// Numeric returns a number validator.
func Numeric() Validator {
	return NumericValidator{}
}

// Min returns an inclusive minimum validator.
func Min(n float64) Validator {
	return MinValidator{Min: n}
}

// GreaterThan returns an exclusive minimum validator.
func GreaterThan(n float64) Validator {
	return MinValidator{Min: n, Exclusive: true}
}

// Date returns a YYYY-MM-DD validator.
func Date() Validator {
	return DateValidator{}
}

// Custom returns a custom validator.
func Custom(fn func(value any) error, msg string) Validator {
	return CustomValidator{Fn: fn, Msg: msg}
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// isEmpty treats nil, blank strings, false and empty collections as empty.
func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return !v
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
