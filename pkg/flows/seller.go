package flows

import (
	"strings"

	"github.com/oshocks/bikeshop/pkg/forms"
	"github.com/oshocks/bikeshop/pkg/submit"
	"github.com/oshocks/bikeshop/pkg/uploads"
	"github.com/oshocks/bikeshop/pkg/wizard"
)

// Business types. Individuals do not need a business permit.
const (
	BusinessIndividual  = "individual"
	BusinessSoleTrader  = "sole_proprietorship"
	BusinessPartnership = "partnership"
	BusinessCompany     = "company"
)

// Seller upload fields.
const (
	FieldIDDocument     = "idDocument"
	FieldBusinessPermit = "businessPermit"
)

// Seller applies for a seller account.
var Seller = &Flow{
	Name:    "seller",
	Title:   "Become a seller",
	steps:   sellerSteps,
	uploads: documentUploads(),
	payload: sellerPayload,
}

func documentUploads() uploads.Config {
	cfg := uploads.DefaultConfig()
	cfg.MaxEntries = 1
	return cfg
}

func sellerSteps() []wizard.Step {
	return []wizard.Step{
		{
			Name:  "business",
			Title: "Business details",
			Fields: []forms.Field{
				forms.TextField("businessName", "Business name", forms.WithRequired(), forms.WithMinLength(2), forms.WithMaxLength(100), forms.WithSanitize()),
				forms.SelectField("businessType", "Business type", []forms.Option{
					{Value: BusinessIndividual, Label: "Individual"},
					{Value: BusinessSoleTrader, Label: "Sole proprietorship"},
					{Value: BusinessPartnership, Label: "Partnership"},
					{Value: BusinessCompany, Label: "Limited company"},
				}, forms.WithRequired()),
				forms.TextareaField("description", "Business description", forms.WithRequired(), forms.WithMinLength(20), forms.WithMaxLength(1000), forms.WithSanitize()),
				forms.TextField("kraPin", "KRA PIN", forms.WithRequired(), forms.WithValidator(kraPIN)),
			},
		},
		{
			Name:  "contact",
			Title: "Contact information",
			Fields: []forms.Field{
				forms.PhoneField("phone", "Business phone", forms.WithRequired()),
				forms.EmailField("email", "Business email", forms.WithRequired()),
				forms.SelectField("county", "County", countyOptions, forms.WithRequired()),
				forms.TextField("address", "Physical address", forms.WithRequired(), forms.WithSanitize()),
			},
		},
		{
			Name:       "documents",
			Title:      "Documents",
			FileFields: []string{FieldIDDocument, FieldBusinessPermit},
			Fields: []forms.Field{
				forms.FileField(FieldIDDocument, "National ID or passport", forms.WithRequired(), forms.WithHelp("PDF or image, up to 5MB")),
				forms.FileField(FieldBusinessPermit, "Business permit", forms.WithHelp("Not needed for individuals")),
			},
			Validate: func(v forms.Values) forms.Results {
				individual := v.Get("businessType") == BusinessIndividual
				return forms.NewCheck(v).
					RequiredIf(FieldBusinessPermit, !individual, "Business permit is required").
					Results()
			},
		},
		{
			Name:  "review",
			Title: "Review and submit",
			Fields: []forms.Field{
				forms.CheckboxField("acceptTerms", "Seller terms", forms.WithRequired(), forms.WithDefault(false)),
				forms.CheckboxField("confirmAccuracy", "I confirm the details are accurate", forms.WithRequired(), forms.WithDefault(false)),
			},
		},
	}
}

// sellerPayload sends multipart with the identity and permit documents.
func sellerPayload(w *wizard.Wizard) (submit.Payload, error) {
	v := sanitized(w, sellerSteps())
	values := map[string]any{
		"business_name":        str(v, "businessName"),
		"business_type":        str(v, "businessType"),
		"business_description": str(v, "description"),
		"kra_pin":              strings.ToUpper(str(v, "kraPin")),
		"phone":                NormalizePhone(str(v, "phone")),
		"email":                str(v, "email"),
		"county":               str(v, "county"),
		"physical_address":     str(v, "address"),
		"terms_accepted":       true,
	}

	pending := w.Tracker().Pending()
	files := map[string][]uploads.Record{
		"id_document": pending[FieldIDDocument],
	}
	if str(v, "businessType") != BusinessIndividual {
		files["business_permit"] = pending[FieldBusinessPermit]
	}
	return submit.For(values, files)
}
