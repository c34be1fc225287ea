package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oshocks/bikeshop/pkg/forms"
	"github.com/oshocks/bikeshop/pkg/submit"
	"github.com/oshocks/bikeshop/pkg/uploads"
	"github.com/oshocks/bikeshop/pkg/wizard"
)

// FieldVariantImages is the upload field holding every variant's images.
// Variants reference their images by record ID.
const FieldVariantImages = "variantImages"

// Product categories.
var Categories = []string{
	"Mountain Bikes", "Road Bikes", "Hybrid Bikes", "Kids Bikes", "E-Bikes",
	"Helmets", "Lights", "Locks", "Apparel", "Spare Parts", "Accessories",
}

// Product creates a catalogue entry with color variants.
var Product = &Flow{
	Name:    "product",
	Title:   "Add a product",
	steps:   productSteps,
	uploads: uploads.ImageConfig(),
	payload: productPayload,
}

func productSteps() []wizard.Step {
	return []wizard.Step{
		{
			Name:  "basics",
			Title: "Basic information",
			Fields: []forms.Field{
				forms.TextField("name", "Product name", forms.WithRequired(), forms.WithMinLength(3), forms.WithMaxLength(150), forms.WithSanitize()),
				forms.SelectField("category", "Category", forms.Options(Categories...), forms.WithRequired()),
				forms.TextField("brand", "Brand", forms.WithMaxLength(60), forms.WithSanitize()),
				forms.TextareaField("description", "Description", forms.WithRequired(), forms.WithMinLength(20), forms.WithSanitize()),
			},
		},
		{
			Name:  "pricing",
			Title: "Pricing",
			Fields: []forms.Field{
				forms.NumberField("price", "Price (KES)", forms.WithRequired(), forms.WithValidator(forms.GreaterThan(0))),
				forms.NumberField("salePrice", "Sale price (KES)", forms.WithValidator(forms.GreaterThan(0))),
				forms.TextField("sku", "SKU", forms.WithValidator(forms.Pattern(`^[A-Za-z0-9-]{3,32}$`, "SKU may only use letters, digits and dashes"))),
				forms.SelectField("condition", "Condition", forms.Options("new", "used", "refurbished"), forms.WithRequired(), forms.WithDefault("new")),
			},
			Validate: func(v forms.Values) forms.Results {
				c := forms.NewCheck(v)
				price, okPrice := number(v.Get("price"))
				sale, okSale := number(v.Get("salePrice"))
				if okPrice && okSale {
					c.Assert("salePrice", sale < price, "Sale price must be below the regular price")
				}
				return c.Results()
			},
		},
		{
			Name:       "variants",
			Title:      "Colors and images",
			FileFields: []string{FieldVariantImages},
			Validate:   validateVariants,
		},
		{
			Name:  "details",
			Title: "Details",
			Fields: []forms.Field{
				forms.SelectField("sizes", "Sizes", forms.Options("XS", "S", "M", "L", "XL", "12\"", "16\"", "20\"", "24\"", "26\"", "27.5\"", "29\""), forms.WithMultiple()),
				forms.TextareaField("specifications", "Specifications", forms.WithHelp("One per line as name: value"), forms.WithSanitize()),
				forms.TextareaField("features", "Features", forms.WithHelp("One per line"), forms.WithSanitize()),
			},
			Validate: func(v forms.Values) forms.Results {
				s, _ := v.Get("specifications").(string)
				_, err := ParseSpecifications(s)
				return forms.NewCheck(v).
					Assert("specifications", err == nil, "Write each specification as name: value").
					Results()
			},
		},
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// validateVariants requires at least one variant, each with a color, a
// non-negative stock and at least one image.
func validateVariants(v forms.Values) forms.Results {
	variants, _ := v.Get(forms.VariantsKey).([]forms.Variant)
	c := forms.NewCheck(v).
		Assert(forms.VariantsKey, len(variants) > 0, "Add at least one color variant")
	for i, vr := range variants {
		prefix := fmt.Sprintf("variants[%d]", i)
		c.Assert(prefix+".color", strings.TrimSpace(vr.Color) != "", "Color is required")
		c.Assert(prefix+".stock", vr.Stock >= 0, "Stock cannot be negative")
		c.Assert(prefix+".images", len(vr.Images) > 0, fmt.Sprintf("Add at least one image for %s", colorLabel(vr, i)))
	}
	return c.Results()
}

func colorLabel(v forms.Variant, i int) string {
	if c := strings.TrimSpace(v.Color); c != "" {
		return c
	}
	return fmt.Sprintf("variant %d", i+1)
}

// ErrSpecFormat is returned for a specification line without a colon.
var ErrSpecFormat = errors.New("flows: specification must be name: value")

// ParseSpecifications reads "name: value" lines. Blank lines are skipped.
func ParseSpecifications(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: %q", ErrSpecFormat, line)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out, nil
}

func lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// AddVariant adds a color variant and returns its ID.
func AddVariant(w *wizard.Wizard, color, colorCode string, stock int) (string, error) {
	before := len(w.Store().Variants())
	err := w.Dispatch(forms.AddVariant{Variant: forms.Variant{
		Color:     strings.TrimSpace(color),
		ColorCode: strings.TrimSpace(colorCode),
		Stock:     stock,
	}})
	if err != nil {
		return "", err
	}
	variants := w.Store().Variants()
	if len(variants) <= before {
		return "", forms.ErrVariantMissing
	}
	return variants[len(variants)-1].ID, nil
}

// RemoveVariant drops a variant and unstages its images.
func RemoveVariant(w *wizard.Wizard, id string) error {
	v, ok := w.Store().Variant(id)
	if !ok {
		return fmt.Errorf("%w: %s", forms.ErrVariantMissing, id)
	}
	if err := w.Dispatch(forms.RemoveVariant{ID: id}); err != nil {
		return err
	}
	var errs []error
	for _, rec := range v.Images {
		errs = append(errs, w.Detach(FieldVariantImages, rec))
	}
	return errors.Join(errs...)
}

// AddVariantImage stages an image and attaches it to a variant.
func AddVariantImage(w *wizard.Wizard, variantID string, f uploads.File) (uploads.Record, error) {
	if _, ok := w.Store().Variant(variantID); !ok {
		return uploads.Record{}, fmt.Errorf("%w: %s", forms.ErrVariantMissing, variantID)
	}
	rec, err := w.Attach(FieldVariantImages, f)
	if err != nil {
		return uploads.Record{}, err
	}
	if err := w.Dispatch(forms.AddImage{VariantID: variantID, RecordID: rec.ID}); err != nil {
		return uploads.Record{}, errors.Join(err, w.Detach(FieldVariantImages, rec.ID))
	}
	return rec, nil
}

// AddVariantImagePaths loads images from disk and attaches them to a variant.
// Either all of them are attached or none.
func AddVariantImagePaths(ctx context.Context, w *wizard.Wizard, variantID string, paths []string) ([]uploads.Record, error) {
	if _, ok := w.Store().Variant(variantID); !ok {
		return nil, fmt.Errorf("%w: %s", forms.ErrVariantMissing, variantID)
	}
	recs, err := w.Tracker().AddPaths(ctx, FieldVariantImages, paths)
	if err != nil {
		return nil, err
	}
	for i, rec := range recs {
		if err := w.Dispatch(forms.AddImage{VariantID: variantID, RecordID: rec.ID}); err != nil {
			return nil, errors.Join(err, unstageImages(w, variantID, recs[:i], recs))
		}
	}
	return recs, nil
}

// unstageImages detaches attached from the variant and removes staged from
// the tracker. Every failure is returned.
func unstageImages(w *wizard.Wizard, variantID string, attached, staged []uploads.Record) error {
	var errs []error
	for _, r := range attached {
		errs = append(errs, w.Dispatch(forms.RemoveImage{VariantID: variantID, RecordID: r.ID}))
	}
	for _, r := range staged {
		errs = append(errs, w.Tracker().Remove(FieldVariantImages, r.ID))
	}
	return errors.Join(errs...)
}

// RemoveVariantImage detaches an image from a variant and unstages it.
func RemoveVariantImage(w *wizard.Wizard, variantID, recordID string) error {
	if err := w.Dispatch(forms.RemoveImage{VariantID: variantID, RecordID: recordID}); err != nil {
		return err
	}
	return w.Detach(FieldVariantImages, recordID)
}

// productPayload always sends multipart: scalars, JSON-encoded
// specifications, sizes and features, and per variant its color, stock and
// images as variants[i][images][] files.
func productPayload(w *wizard.Wizard) (submit.Payload, error) {
	v := sanitized(w, productSteps())
	store := w.Store()
	tracker := w.Tracker()

	m := submit.NewMultipart().
		Add("name", str(v, "name")).
		Add("category", str(v, "category")).
		Add("description", str(v, "description")).
		Add("price", str(v, "price")).
		Add("condition", str(v, "condition"))
	for _, opt := range []struct{ key, field string }{
		{"brand", "brand"},
		{"sale_price", "salePrice"},
		{"sku", "sku"},
	} {
		if s := str(v, opt.field); s != "" {
			m.Add(opt.key, s)
		}
	}

	specs, err := ParseSpecifications(str(v, "specifications"))
	if err != nil {
		return nil, err
	}
	sizes := store.Strings("sizes")
	if sizes == nil {
		sizes = []string{}
	}
	features := lines(str(v, "features"))
	if features == nil {
		features = []string{}
	}
	if err := m.AddJSON("specifications", specs); err != nil {
		return nil, err
	}
	if err := m.AddJSON("sizes", sizes); err != nil {
		return nil, err
	}
	if err := m.AddJSON("features", features); err != nil {
		return nil, err
	}

	for i, vr := range store.Variants() {
		prefix := fmt.Sprintf("variants[%d]", i)
		m.Add(prefix+"[color]", vr.Color)
		if vr.ColorCode != "" {
			m.Add(prefix+"[color_code]", vr.ColorCode)
		}
		m.Add(prefix+"[stock]", strconv.Itoa(vr.Stock))
		for _, id := range vr.Images {
			rec, ok := tracker.Get(id)
			if !ok {
				return nil, fmt.Errorf("%w: %s", uploads.ErrRecordNotFound, id)
			}
			if rec.IsNew && len(rec.Data) > 0 {
				m.AddFile(prefix+"[images][]", rec)
			} else if rec.Source != "" {
				m.Add(prefix+"[existing_images][]", rec.Source)
			}
		}
	}
	return m, nil
}
