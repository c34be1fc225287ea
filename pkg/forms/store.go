package forms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// VariantsKey is the store key under which Get exposes the color variants.
const VariantsKey = "variants"

// Store errors.
var (
	ErrUnknownAction  = errors.New("forms: unknown action")
	ErrVariantMissing = errors.New("forms: variant not found")
	ErrImageMissing   = errors.New("forms: image not found on variant")
	ErrReservedField  = errors.New("forms: field name is reserved")
)

// Variant is one color option of a product, with the IDs of its staged
// images in display order.
type Variant struct {
	ID        string   `json:"id"`
	Color     string   `json:"color"`
	ColorCode string   `json:"color_code,omitempty"`
	Stock     int      `json:"stock"`
	Images    []string `json:"images,omitempty"`
}

func (v Variant) clone() Variant {
	v.Images = append([]string(nil), v.Images...)
	return v
}

// Store is an immutable snapshot of a form session's values. Every change
// goes through Dispatch, which returns a new snapshot and leaves the
// receiver untouched.
type Store struct {
	fields   map[string]any
	variants []Variant
	version  int
}

// NewStore creates a store seeded with values.
func NewStore(values map[string]any) *Store {
	s := &Store{fields: make(map[string]any, len(values))}
	for k, v := range values {
		s.fields[k] = v
	}
	return s
}

// DefaultsFor collects the Default of each field.
func DefaultsFor(fields ...Field) map[string]any {
	out := make(map[string]any)
	for _, f := range fields {
		if f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

// Action is a single change to a store.
type Action interface {
	apply(s *Store) error
}

// SetField sets one field value.
type SetField struct {
	Name  string
	Value any
}

func (a SetField) apply(s *Store) error {
	if a.Name == VariantsKey {
		return ErrReservedField
	}
	if a.Value == nil {
		delete(s.fields, a.Name)
		return nil
	}
	s.fields[a.Name] = a.Value
	return nil
}

// AddVariant appends a variant. An empty ID is filled in.
type AddVariant struct {
	Variant Variant
}

func (a AddVariant) apply(s *Store) error {
	v := a.Variant.clone()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	s.variants = append(s.variants, v)
	return nil
}

// UpdateVariant replaces the color, code and stock of a variant, keeping its images.
type UpdateVariant struct {
	ID        string
	Color     string
	ColorCode string
	Stock     int
}

func (a UpdateVariant) apply(s *Store) error {
	i := s.variantIndex(a.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrVariantMissing, a.ID)
	}
	s.variants[i].Color = a.Color
	s.variants[i].ColorCode = a.ColorCode
	s.variants[i].Stock = a.Stock
	return nil
}

// RemoveVariant drops a variant and its image references.
type RemoveVariant struct {
	ID string
}

func (a RemoveVariant) apply(s *Store) error {
	i := s.variantIndex(a.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrVariantMissing, a.ID)
	}
	s.variants = append(s.variants[:i], s.variants[i+1:]...)
	return nil
}

// AddImage attaches a staged upload to a variant.
type AddImage struct {
	VariantID string
	RecordID  string
}

func (a AddImage) apply(s *Store) error {
	i := s.variantIndex(a.VariantID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrVariantMissing, a.VariantID)
	}
	s.variants[i].Images = append(s.variants[i].Images, a.RecordID)
	return nil
}

// RemoveImage detaches an upload from a variant.
type RemoveImage struct {
	VariantID string
	RecordID  string
}

func (a RemoveImage) apply(s *Store) error {
	i := s.variantIndex(a.VariantID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrVariantMissing, a.VariantID)
	}
	imgs := s.variants[i].Images
	for j, id := range imgs {
		if id == a.RecordID {
			s.variants[i].Images = append(imgs[:j], imgs[j+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrImageMissing, a.RecordID)
}

// Dispatch applies a to a copy of the store. On error the copy is discarded
// and the receiver is returned with the error.
func (s *Store) Dispatch(a Action) (*Store, error) {
	if a == nil {
		return s, ErrUnknownAction
	}
	next := s.clone()
	if err := a.apply(next); err != nil {
		return s, err
	}
	next.version++
	return next, nil
}

// Version counts the successful dispatches that produced this snapshot.
func (s *Store) Version() int {
	return s.version
}

// Get returns a field value. VariantsKey returns the variants.
func (s *Store) Get(name string) any {
	if name == VariantsKey {
		return s.Variants()
	}
	return s.fields[name]
}

// String returns a field as a trimmed string.
func (s *Store) String(name string) string {
	switch v := s.fields[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns a field as a bool. "yes", "true", "on" and "1" count as true.
func (s *Store) Bool(name string) bool {
	switch v := s.fields[name].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "true", "on", "1":
			return true
		}
	}
	return false
}

// Strings returns a list field.
func (s *Store) Strings(name string) []string {
	switch v := s.fields[name].(type) {
	case []string:
		return append([]string(nil), v...)
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Float returns a numeric field.
func (s *Store) Float(name string) (float64, bool) {
	return toFloat64(s.fields[name])
}

// Int returns a numeric field truncated to an int.
func (s *Store) Int(name string) int {
	f, _ := toFloat64(s.fields[name])
	return int(f)
}

// Values returns a copy of all field values.
func (s *Store) Values() map[string]any {
	out := make(map[string]any, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// Variants returns a copy of the variants.
func (s *Store) Variants() []Variant {
	out := make([]Variant, len(s.variants))
	for i, v := range s.variants {
		out[i] = v.clone()
	}
	return out
}

// Variant finds a variant by ID.
func (s *Store) Variant(id string) (Variant, bool) {
	if i := s.variantIndex(id); i >= 0 {
		return s.variants[i].clone(), true
	}
	return Variant{}, false
}

// Sanitizer strips unwanted markup from free text.
type Sanitizer interface {
	Sanitize(s string) string
}

// Sanitized returns the field values with fields flagged Sanitize cleaned by san.
func (s *Store) Sanitized(san Sanitizer, fields ...Field) map[string]any {
	out := s.Values()
	if san == nil {
		return out
	}
	for _, f := range fields {
		if !f.Sanitize {
			continue
		}
		if str, ok := out[f.Name].(string); ok {
			out[f.Name] = san.Sanitize(str)
		}
	}
	return out
}

func (s *Store) clone() *Store {
	next := &Store{
		fields:   make(map[string]any, len(s.fields)),
		variants: make([]Variant, len(s.variants)),
		version:  s.version,
	}
	for k, v := range s.fields {
		next.fields[k] = v
	}
	for i, v := range s.variants {
		next.variants[i] = v.clone()
	}
	return next
}

func (s *Store) variantIndex(id string) int {
	for i, v := range s.variants {
		if v.ID == id {
			return i
		}
	}
	return -1
}
