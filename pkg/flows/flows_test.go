package flows

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/oshocks/bikeshop/pkg/forms"
	"github.com/oshocks/bikeshop/pkg/submit"
	"github.com/oshocks/bikeshop/pkg/uploads"
	"github.com/oshocks/bikeshop/pkg/wizard"
)

var (
	pdfFile = uploads.File{Name: "id.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 test")}
	pngFile = uploads.File{Name: "red.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\nred")}
)

func newWizard(t *testing.T, f *Flow) *wizard.Wizard {
	t.Helper()
	w, err := f.NewWizard(Config{})
	if err != nil {
		t.Fatalf("NewWizard failed: %v", err)
	}
	return w
}

func fill(t *testing.T, w *wizard.Wizard, values map[string]any) {
	t.Helper()
	for k, v := range values {
		if err := w.Set(k, v); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}
}

func mustNext(t *testing.T, w *wizard.Wizard) {
	t.Helper()
	if rs, err := w.Next(); err != nil {
		t.Fatalf("Next from step %d failed: %v %v", w.Index(), err, rs.Invalid())
	}
}

type multipartBody struct {
	values map[string][]string
	files  map[string][]string
}

func decodeMultipart(t *testing.T, p submit.Payload) multipartBody {
	t.Helper()
	body, err := p.Encode()
	if err != nil {
		t.Fatal(err)
	}
	mt, params, err := mime.ParseMediaType(body.ContentType)
	if err != nil || mt != "multipart/form-data" {
		t.Fatalf("expected multipart, got %q", body.ContentType)
	}
	out := multipartBody{values: map[string][]string{}, files: map[string][]string{}}
	mr := multipart.NewReader(body.Reader, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(part)
		if part.FileName() != "" {
			out.files[part.FormName()] = append(out.files[part.FormName()], part.FileName())
			continue
		}
		out.values[part.FormName()] = append(out.values[part.FormName()], string(data))
	}
	return out
}

func TestByName(t *testing.T) {
	for _, name := range []string{"registration", "seller", "delivery", "product"} {
		f, ok := ByName(name)
		if !ok || f.Name != name {
			t.Errorf("expected flow %q", name)
		}
		if len(f.Steps()) == 0 {
			t.Errorf("flow %q has no steps", name)
		}
	}
	if _, ok := ByName("checkout"); ok {
		t.Error("expected unknown flow to be missing")
	}
}

func TestRegistrationRequiredFieldsBlock(t *testing.T) {
	w := newWizard(t, Registration)

	rs, err := w.Next()
	if !errors.Is(err, wizard.ErrStepInvalid) {
		t.Fatalf("expected ErrStepInvalid, got %v", err)
	}
	for _, f := range []string{"firstName", "lastName", "email"} {
		if rs.Reason(f) == "" {
			t.Errorf("expected error for %s", f)
		}
	}
	if w.Index() != 1 {
		t.Errorf("expected to stay on step 1, got %d", w.Index())
	}
}

func TestRegistrationPhoneFormat(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+254712345678", true},
		{"0712345678", true},
		{"0112345678", true},
		{"0712 345 678", true},
		{"12345", false},
		{"+254812345678", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			w := newWizard(t, Registration)
			fill(t, w, map[string]any{"firstName": "Achieng", "lastName": "Odhiambo", "email": "a@example.com"})
			mustNext(t, w)
			fill(t, w, map[string]any{"phone": tt.phone})

			_, err := w.Next()
			if tt.valid && err != nil {
				t.Errorf("expected %q to pass, got %v", tt.phone, err)
			}
			if !tt.valid && !errors.Is(err, wizard.ErrStepInvalid) {
				t.Errorf("expected %q to be rejected", tt.phone)
			}
		})
	}
}

func TestRegistrationPasswordConfirmation(t *testing.T) {
	w := newWizard(t, Registration)
	fill(t, w, map[string]any{"firstName": "Achieng", "lastName": "Odhiambo", "email": "a@example.com"})
	mustNext(t, w)
	fill(t, w, map[string]any{"phone": "0712345678"})
	mustNext(t, w)

	fill(t, w, map[string]any{"password": "short", "confirmPassword": "other", "acceptTerms": true})
	rs, err := w.Next()
	if !errors.Is(err, wizard.ErrStepInvalid) {
		t.Fatalf("expected ErrStepInvalid, got %v", err)
	}
	if rs.Reason("confirmPassword") != "Passwords do not match" {
		t.Errorf("expected mismatch error, got %q", rs.Reason("confirmPassword"))
	}
	if rs.Reason("password") == "" {
		t.Error("expected length error on password")
	}

	fill(t, w, map[string]any{"password": "longenough1", "confirmPassword": "longenough2"})
	rs, _ = w.Next()
	if rs.Reason("confirmPassword") != "Passwords do not match" {
		t.Errorf("expected mismatch error with valid password, got %q", rs.Reason("confirmPassword"))
	}
}

func TestRegistrationPayload(t *testing.T) {
	w := newWizard(t, Registration)
	fill(t, w, map[string]any{"firstName": " Achieng ", "lastName": "<b>Odhiambo</b>", "email": "a@example.com"})
	mustNext(t, w)
	fill(t, w, map[string]any{"phone": "0712345678", "county": "Kisumu"})
	mustNext(t, w)
	fill(t, w, map[string]any{"password": "longenough1", "confirmPassword": "longenough1", "acceptTerms": true})

	var payload submit.Payload
	_, err := w.Submit(context.Background(), func(ctx context.Context, _ *forms.Store, _ *uploads.Tracker) error {
		var err error
		payload, err = Registration.Payload(w)
		return err
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	body, err := payload.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if body.ContentType != "application/json" {
		t.Fatalf("expected JSON, got %q", body.ContentType)
	}
	var got map[string]any
	if err := json.NewDecoder(body.Reader).Decode(&got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"name":                  "Achieng Odhiambo",
		"email":                 "a@example.com",
		"phone":                 "+254712345678",
		"password":              "longenough1",
		"password_confirmation": "longenough1",
		"county":                "Kisumu",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("expected %s=%v, got %v", k, v, got[k])
		}
	}
	if _, ok := got["firstName"]; ok {
		t.Error("expected firstName not to be sent")
	}
}

func fillDeliveryPersonal(t *testing.T, w *wizard.Wizard) {
	t.Helper()
	fill(t, w, map[string]any{
		"fullName": "Otieno Baraka",
		"phone":    "0722000111",
		"email":    "otieno@example.com",
		"idNumber": "12345678",
		"county":   "Nairobi",
	})
	mustNext(t, w)
}

func TestDeliveryVehicleNumberConditional(t *testing.T) {
	w := newWizard(t, DeliveryAgent)
	fillDeliveryPersonal(t, w)

	fill(t, w, map[string]any{"vehicleType": VehicleMotorcycle, "hasLicense": "yes"})
	rs, err := w.Next()
	if !errors.Is(err, wizard.ErrStepInvalid) || rs.Reason("vehicleNumber") == "" {
		t.Fatalf("expected number plate to be required for motorcycles, got %v %v", err, rs.Invalid())
	}

	fill(t, w, map[string]any{"vehicleType": VehicleBicycle, "hasLicense": "no"})
	if _, err := w.Next(); err != nil {
		t.Errorf("expected bicycle without plate to pass, got %v", err)
	}
}

func TestDeliveryLicenseConditional(t *testing.T) {
	w := newWizard(t, DeliveryAgent)
	fillDeliveryPersonal(t, w)
	fill(t, w, map[string]any{"vehicleType": VehicleMotorcycle, "vehicleNumber": "KMFB 123C", "hasLicense": "yes"})
	mustNext(t, w)

	if _, err := w.Attach(FieldIDDocument, pdfFile); err != nil {
		t.Fatal(err)
	}
	rs, err := w.Next()
	if !errors.Is(err, wizard.ErrStepInvalid) || rs.Reason(FieldLicense) == "" {
		t.Fatalf("expected license to be required, got %v %v", err, rs.Invalid())
	}

	w.Previous()
	fill(t, w, map[string]any{"hasLicense": "no"})
	mustNext(t, w)
	mustNext(t, w)
	if w.Index() != 4 {
		t.Errorf("expected step 4, got %d", w.Index())
	}
}

func TestDeliveryRejectsDisallowedFile(t *testing.T) {
	w := newWizard(t, DeliveryAgent)
	fillDeliveryPersonal(t, w)
	fill(t, w, map[string]any{"vehicleType": VehicleBicycle, "hasLicense": "no"})
	mustNext(t, w)

	exe := uploads.File{Name: "id.exe", ContentType: "application/x-msdownload", Data: []byte("MZ")}
	if _, err := w.Attach(FieldIDDocument, exe); !errors.Is(err, uploads.ErrInvalidFileType) {
		t.Errorf("expected ErrInvalidFileType, got %v", err)
	}
	big := uploads.File{Name: "big.pdf", ContentType: "application/pdf", Data: make([]byte, uploads.DefaultMaxFileSize+1)}
	if _, err := w.Attach(FieldIDDocument, big); !errors.Is(err, uploads.ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
	if n := w.Tracker().Len(FieldIDDocument); n != 0 {
		t.Errorf("expected no staged files, got %d", n)
	}
}

func TestDeliveryPayload(t *testing.T) {
	w := newWizard(t, DeliveryAgent)
	fillDeliveryPersonal(t, w)
	fill(t, w, map[string]any{"vehicleType": VehicleBicycle, "vehicleNumber": "KDA 123A", "hasLicense": "no"})
	mustNext(t, w)
	if _, err := w.Attach(FieldIDDocument, pdfFile); err != nil {
		t.Fatal(err)
	}
	mustNext(t, w)
	fill(t, w, map[string]any{
		"serviceAreas": []string{"Westlands", "Karen"},
		"availability": "weekends",
		"acceptTerms":  true,
	})
	if _, err := w.Submit(context.Background(), func(context.Context, *forms.Store, *uploads.Tracker) error { return nil }); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	p, err := DeliveryAgent.Payload(w)
	if err != nil {
		t.Fatal(err)
	}
	got := decodeMultipart(t, p)
	if _, ok := got.values["vehicle_number"]; ok {
		t.Error("expected no number plate for a bicycle")
	}
	if areas := got.values["service_areas[]"]; len(areas) != 2 {
		t.Errorf("expected 2 service areas, got %v", areas)
	}
	if got.values["has_license"][0] != "0" {
		t.Errorf("expected has_license=0, got %v", got.values["has_license"])
	}
	if len(got.files["id_document"]) != 1 {
		t.Errorf("expected id_document file, got %v", got.files)
	}
	if _, ok := got.files["license_document"]; ok {
		t.Error("expected no license document")
	}
}

func TestSellerPermitNotNeededForIndividuals(t *testing.T) {
	for _, tt := range []struct {
		businessType string
		wantPermit   bool
	}{
		{BusinessIndividual, false},
		{BusinessCompany, true},
	} {
		t.Run(tt.businessType, func(t *testing.T) {
			w := newWizard(t, Seller)
			fill(t, w, map[string]any{
				"businessName": "Spokes & Pedals",
				"businessType": tt.businessType,
				"description":  "Quality bicycles and spares in Nakuru town.",
				"kraPin":       "a123456789b",
			})
			mustNext(t, w)
			fill(t, w, map[string]any{
				"phone":   "+254712345678",
				"email":   "shop@example.com",
				"county":  "Nakuru",
				"address": "Kenyatta Avenue",
			})
			mustNext(t, w)
			if _, err := w.Attach(FieldIDDocument, pdfFile); err != nil {
				t.Fatal(err)
			}
			rs, err := w.Next()
			if tt.wantPermit {
				if !errors.Is(err, wizard.ErrStepInvalid) || rs.Reason(FieldBusinessPermit) == "" {
					t.Fatalf("expected permit to be required, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected documents step to pass, got %v", err)
			}

			fill(t, w, map[string]any{"acceptTerms": true, "confirmAccuracy": true})
			if _, err := w.Submit(context.Background(), func(context.Context, *forms.Store, *uploads.Tracker) error { return nil }); err != nil {
				t.Fatal(err)
			}
			p, err := Seller.Payload(w)
			if err != nil {
				t.Fatal(err)
			}
			got := decodeMultipart(t, p)
			if got.values["kra_pin"][0] != "A123456789B" {
				t.Errorf("expected upper-cased KRA PIN, got %v", got.values["kra_pin"])
			}
			if got.values["business_name"][0] != "Spokes & Pedals" {
				t.Errorf("unexpected business name %v", got.values["business_name"])
			}
		})
	}
}

func TestSellerKRAPinFormat(t *testing.T) {
	w := newWizard(t, Seller)
	fill(t, w, map[string]any{
		"businessName": "Spokes",
		"businessType": BusinessCompany,
		"description":  "Quality bicycles and spares in Nakuru town.",
		"kraPin":       "123456",
	})
	rs, err := w.Next()
	if !errors.Is(err, wizard.ErrStepInvalid) || rs.Reason("kraPin") == "" {
		t.Errorf("expected KRA PIN error, got %v", rs.Invalid())
	}
}

func productToVariants(t *testing.T) *wizard.Wizard {
	t.Helper()
	w := newWizard(t, Product)
	fill(t, w, map[string]any{
		"name":        "Trail 29er",
		"category":    "Mountain Bikes",
		"description": "Hardtail mountain bike with hydraulic brakes.",
	})
	mustNext(t, w)
	fill(t, w, map[string]any{"price": "85000", "salePrice": "79000"})
	mustNext(t, w)
	return w
}

func TestProductSalePriceBelowPrice(t *testing.T) {
	w := newWizard(t, Product)
	fill(t, w, map[string]any{
		"name":        "Trail 29er",
		"category":    "Mountain Bikes",
		"description": "Hardtail mountain bike with hydraulic brakes.",
	})
	mustNext(t, w)
	fill(t, w, map[string]any{"price": "85000", "salePrice": "90000"})
	rs, err := w.Next()
	if !errors.Is(err, wizard.ErrStepInvalid) || rs.Reason("salePrice") == "" {
		t.Errorf("expected sale price error, got %v", rs.Invalid())
	}
}

func TestProductVariantsNeedImages(t *testing.T) {
	w := productToVariants(t)

	rs, err := w.Next()
	if !errors.Is(err, wizard.ErrStepInvalid) || rs.Reason(forms.VariantsKey) == "" {
		t.Fatalf("expected missing variant error, got %v", rs.Invalid())
	}

	id, err := AddVariant(w, "Red", "#ff0000", 4)
	if err != nil {
		t.Fatal(err)
	}
	rs, err = w.Next()
	if !errors.Is(err, wizard.ErrStepInvalid) || rs.Reason("variants[0].images") == "" {
		t.Fatalf("expected missing image error, got %v", rs.Invalid())
	}

	rec, err := AddVariantImage(w, id, pngFile)
	if err != nil {
		t.Fatal(err)
	}
	mustNext(t, w)

	w.Previous()
	if err := RemoveVariantImage(w, id, rec.ID); err != nil {
		t.Fatal(err)
	}
	if n := w.Tracker().Len(FieldVariantImages); n != 0 {
		t.Errorf("expected image unstaged, got %d", n)
	}
	if _, err := w.Next(); !errors.Is(err, wizard.ErrStepInvalid) {
		t.Errorf("expected step to block again, got %v", err)
	}
}

func TestRemoveVariantUnstagesImages(t *testing.T) {
	w := productToVariants(t)
	id, _ := AddVariant(w, "Blue", "", 1)
	AddVariantImage(w, id, pngFile)
	AddVariantImage(w, id, pngFile)

	if err := RemoveVariant(w, id); err != nil {
		t.Fatal(err)
	}
	if len(w.Store().Variants()) != 0 {
		t.Error("expected variant removed")
	}
	if n := w.Tracker().Len(FieldVariantImages); n != 0 {
		t.Errorf("expected images unstaged, got %d", n)
	}
}

func TestAddVariantImagePaths(t *testing.T) {
	w := productToVariants(t)
	id, _ := AddVariant(w, "Green", "", 2)

	dir := t.TempDir()
	good := filepath.Join(dir, "green.png")
	os.WriteFile(good, pngFile.Data, 0o600)
	bad := filepath.Join(dir, "notes.txt")
	os.WriteFile(bad, []byte("plain text"), 0o600)

	if _, err := AddVariantImagePaths(context.Background(), w, id, []string{good, bad}); err == nil {
		t.Fatal("expected text file to be rejected")
	}
	if v, _ := w.Store().Variant(id); len(v.Images) != 0 {
		t.Errorf("expected nothing attached, got %v", v.Images)
	}

	recs, err := AddVariantImagePaths(context.Background(), w, id, []string{good})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := w.Store().Variant(id); len(v.Images) != 1 || v.Images[0] != recs[0].ID {
		t.Errorf("expected image attached, got %v", v.Images)
	}
}

func TestUnstageImagesReportsFailures(t *testing.T) {
	w := productToVariants(t)
	id, _ := AddVariant(w, "Black", "", 3)
	rec, err := AddVariantImage(w, id, pngFile)
	if err != nil {
		t.Fatal(err)
	}
	stale := uploads.Record{ID: "never-staged"}

	err = unstageImages(w, id, []uploads.Record{rec}, []uploads.Record{rec, stale})
	if !errors.Is(err, uploads.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for the stale record, got %v", err)
	}
	if v, _ := w.Store().Variant(id); len(v.Images) != 0 {
		t.Errorf("expected image detached, got %v", v.Images)
	}
	if n := w.Tracker().Len(FieldVariantImages); n != 0 {
		t.Errorf("expected staged image removed, got %d", n)
	}

	err = unstageImages(w, "gone", []uploads.Record{rec}, nil)
	if !errors.Is(err, forms.ErrVariantMissing) {
		t.Errorf("expected ErrVariantMissing, got %v", err)
	}
}

func TestProductPayload(t *testing.T) {
	w := productToVariants(t)
	red, _ := AddVariant(w, "Red", "#ff0000", 4)
	blue, _ := AddVariant(w, "Blue", "", 0)
	AddVariantImage(w, red, pngFile)
	AddVariantImage(w, red, pngFile)
	AddVariantImage(w, blue, pngFile)
	mustNext(t, w)
	fill(t, w, map[string]any{
		"sizes":          []string{"M", "L"},
		"specifications": "Frame: Aluminium\nBrakes: Hydraulic disc",
		"features":       "Tubeless ready\n\nInternal routing",
	})

	if _, err := w.Submit(context.Background(), func(context.Context, *forms.Store, *uploads.Tracker) error { return nil }); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	p, err := Product.Payload(w)
	if err != nil {
		t.Fatal(err)
	}
	got := decodeMultipart(t, p)

	if n := len(got.files["variants[0][images][]"]); n != 2 {
		t.Errorf("expected 2 images on variant 0, got %d", n)
	}
	if n := len(got.files["variants[1][images][]"]); n != 1 {
		t.Errorf("expected 1 image on variant 1, got %d", n)
	}
	if got.values["variants[0][color]"][0] != "Red" || got.values["variants[0][color_code]"][0] != "#ff0000" {
		t.Errorf("unexpected variant 0 %v", got.values)
	}
	if got.values["variants[1][stock]"][0] != "0" {
		t.Errorf("unexpected variant 1 stock %v", got.values["variants[1][stock]"])
	}
	if got.values["sale_price"][0] != "79000" {
		t.Errorf("unexpected sale price %v", got.values["sale_price"])
	}

	var specs map[string]string
	json.Unmarshal([]byte(got.values["specifications"][0]), &specs)
	if specs["Brakes"] != "Hydraulic disc" {
		t.Errorf("unexpected specifications %v", specs)
	}
	var features []string
	json.Unmarshal([]byte(got.values["features"][0]), &features)
	if len(features) != 2 {
		t.Errorf("expected 2 features, got %v", features)
	}
	var sizes []string
	json.Unmarshal([]byte(got.values["sizes"][0]), &sizes)
	if len(sizes) != 2 {
		t.Errorf("expected 2 sizes, got %v", sizes)
	}
}

func TestParseSpecifications(t *testing.T) {
	specs, err := ParseSpecifications("Frame: Steel\n\nWeight: 12 kg")
	if err != nil || len(specs) != 2 || specs["Weight"] != "12 kg" {
		t.Errorf("unexpected result %v, %v", specs, err)
	}
	if _, err := ParseSpecifications("no colon here"); !errors.Is(err, ErrSpecFormat) {
		t.Errorf("expected ErrSpecFormat, got %v", err)
	}
}
