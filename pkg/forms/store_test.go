package forms

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStore_DispatchIsImmutable(t *testing.T) {
	s0 := NewStore(map[string]any{"name": "Hardtail"})

	s1, err := s0.Dispatch(SetField{Name: "name", Value: "Full suspension"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if s0.String("name") != "Hardtail" {
		t.Errorf("expected original snapshot untouched, got %q", s0.String("name"))
	}
	if s1.String("name") != "Full suspension" {
		t.Errorf("expected new value, got %q", s1.String("name"))
	}
	if s1.Version() != s0.Version()+1 {
		t.Errorf("expected version bump, got %d -> %d", s0.Version(), s1.Version())
	}
}

func TestStore_VariantLifecycle(t *testing.T) {
	s := NewStore(nil)

	s, err := s.Dispatch(AddVariant{Variant: Variant{Color: "Red", Stock: 3}})
	if err != nil {
		t.Fatal(err)
	}
	variants := s.Variants()
	if len(variants) != 1 || variants[0].ID == "" {
		t.Fatalf("expected one variant with an ID, got %+v", variants)
	}
	id := variants[0].ID

	before := s
	s, _ = s.Dispatch(AddImage{VariantID: id, RecordID: "img-1"})
	s, _ = s.Dispatch(AddImage{VariantID: id, RecordID: "img-2"})
	s, err = s.Dispatch(RemoveImage{VariantID: id, RecordID: "img-1"})
	if err != nil {
		t.Fatal(err)
	}

	v, _ := s.Variant(id)
	if diff := cmp.Diff([]string{"img-2"}, v.Images); diff != "" {
		t.Errorf("images mismatch (-want +got):\n%s", diff)
	}
	if old, _ := before.Variant(id); len(old.Images) != 0 {
		t.Errorf("expected earlier snapshot to have no images, got %v", old.Images)
	}

	s, err = s.Dispatch(RemoveVariant{ID: id})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Variants()) != 0 {
		t.Error("expected variant removed")
	}
}

func TestStore_DispatchErrorKeepsSnapshot(t *testing.T) {
	s := NewStore(map[string]any{"a": "1"})

	got, err := s.Dispatch(AddImage{VariantID: "missing", RecordID: "x"})
	if !errors.Is(err, ErrVariantMissing) {
		t.Fatalf("expected ErrVariantMissing, got %v", err)
	}
	if got != s {
		t.Error("expected the receiver back on error")
	}

	if _, err := s.Dispatch(SetField{Name: VariantsKey, Value: "x"}); !errors.Is(err, ErrReservedField) {
		t.Errorf("expected ErrReservedField, got %v", err)
	}
}

func TestStore_Accessors(t *testing.T) {
	s := NewStore(map[string]any{
		"hasLicense": "yes",
		"price":      "4500.50",
		"areas":      []string{"Nairobi", "Kiambu"},
		"name":       "  Trek  ",
	})

	if !s.Bool("hasLicense") {
		t.Error("expected 'yes' to read as true")
	}
	if f, ok := s.Float("price"); !ok || f != 4500.50 {
		t.Errorf("expected 4500.50, got %v (%v)", f, ok)
	}
	if s.Int("price") != 4500 {
		t.Errorf("expected 4500, got %d", s.Int("price"))
	}
	if s.String("name") != "Trek" {
		t.Errorf("expected trimmed name, got %q", s.String("name"))
	}
	if len(s.Strings("areas")) != 2 {
		t.Errorf("expected 2 areas, got %v", s.Strings("areas"))
	}
}

type upperSanitizer struct{}

func (upperSanitizer) Sanitize(s string) string { return strings.ToUpper(s) }

func TestStore_Sanitized(t *testing.T) {
	s := NewStore(map[string]any{"bio": "hello", "name": "kim"})
	fields := []Field{
		TextareaField("bio", "Bio", WithSanitize()),
		TextField("name", "Name"),
	}

	got := s.Sanitized(upperSanitizer{}, fields...)
	if got["bio"] != "HELLO" {
		t.Errorf("expected sanitized bio, got %v", got["bio"])
	}
	if got["name"] != "kim" {
		t.Errorf("expected name untouched, got %v", got["name"])
	}
}
