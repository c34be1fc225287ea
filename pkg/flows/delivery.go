package flows

import (
	"strings"

	"github.com/oshocks/bikeshop/pkg/forms"
	"github.com/oshocks/bikeshop/pkg/submit"
	"github.com/oshocks/bikeshop/pkg/uploads"
	"github.com/oshocks/bikeshop/pkg/wizard"
)

// Vehicle types. Bicycles carry no number plate.
const (
	VehicleBicycle    = "Bicycle"
	VehicleMotorcycle = "Motorcycle"
	VehicleCar        = "Car"
	VehicleVan        = "Van"
)

// FieldLicense is the driving license upload field.
const FieldLicense = "licenseDocument"

// ServiceAreas are the zones a delivery agent can cover.
var ServiceAreas = []string{
	"Nairobi CBD", "Westlands", "Kilimani", "Karen", "Eastlands", "Thika Road",
	"Mombasa Road", "Kiambu", "Rongai", "Kitengela",
}

// DeliveryAgent applies for a delivery agent account.
var DeliveryAgent = &Flow{
	Name:    "delivery",
	Title:   "Become a delivery agent",
	steps:   deliverySteps,
	uploads: documentUploads(),
	payload: deliveryPayload,
}

func deliverySteps() []wizard.Step {
	return []wizard.Step{
		{
			Name:  "personal",
			Title: "Personal information",
			Fields: []forms.Field{
				forms.TextField("fullName", "Full name", forms.WithRequired(), forms.WithMinLength(3), forms.WithSanitize()),
				forms.PhoneField("phone", "Phone number", forms.WithRequired()),
				forms.EmailField("email", "Email", forms.WithRequired()),
				forms.TextField("idNumber", "National ID number", forms.WithRequired(), forms.WithValidator(nationalID)),
				forms.SelectField("county", "County", countyOptions, forms.WithRequired()),
			},
		},
		{
			Name:  "vehicle",
			Title: "Vehicle",
			Fields: []forms.Field{
				forms.SelectField("vehicleType", "Vehicle type", forms.Options(VehicleBicycle, VehicleMotorcycle, VehicleCar, VehicleVan), forms.WithRequired()),
				forms.TextField("vehicleNumber", "Number plate", forms.WithValidator(numberPlate), forms.WithHelp("Not needed for bicycles")),
				forms.RadioField("hasLicense", "Do you have a driving license?", []forms.Option{
					{Value: "yes", Label: "Yes"},
					{Value: "no", Label: "No"},
				}, forms.WithRequired()),
			},
			Validate: func(v forms.Values) forms.Results {
				return forms.NewCheck(v).
					RequiredIf("vehicleNumber", v.Get("vehicleType") != VehicleBicycle, "Number plate is required for motor vehicles").
					Results()
			},
		},
		{
			Name:       "documents",
			Title:      "Documents",
			FileFields: []string{FieldIDDocument, FieldLicense},
			Fields: []forms.Field{
				forms.FileField(FieldIDDocument, "National ID", forms.WithRequired(), forms.WithHelp("PDF or image, up to 5MB")),
				forms.FileField(FieldLicense, "Driving license", forms.WithHelp("Only if you have one")),
			},
			Validate: func(v forms.Values) forms.Results {
				return forms.NewCheck(v).
					RequiredIf(FieldLicense, v.Get("hasLicense") == "yes", "Driving license document is required").
					Results()
			},
		},
		{
			Name:  "availability",
			Title: "Availability",
			Fields: []forms.Field{
				forms.SelectField("serviceAreas", "Service areas", forms.Options(ServiceAreas...), forms.WithRequired(), forms.WithMultiple()),
				forms.SelectField("availability", "Availability", []forms.Option{
					{Value: "full_time", Label: "Full time"},
					{Value: "part_time", Label: "Part time"},
					{Value: "weekends", Label: "Weekends only"},
				}, forms.WithRequired()),
				forms.CheckboxField("acceptTerms", "Delivery agent terms", forms.WithRequired(), forms.WithDefault(false)),
			},
		},
	}
}

// deliveryPayload sends multipart. The number plate is dropped for bicycles
// and the license only goes with a "yes".
func deliveryPayload(w *wizard.Wizard) (submit.Payload, error) {
	v := sanitized(w, deliverySteps())
	store := w.Store()
	values := map[string]any{
		"full_name":      str(v, "fullName"),
		"phone":          NormalizePhone(str(v, "phone")),
		"email":          str(v, "email"),
		"id_number":      str(v, "idNumber"),
		"county":         str(v, "county"),
		"vehicle_type":   str(v, "vehicleType"),
		"has_license":    store.Bool("hasLicense"),
		"service_areas":  store.Strings("serviceAreas"),
		"availability":   str(v, "availability"),
		"terms_accepted": true,
	}
	if str(v, "vehicleType") != VehicleBicycle {
		values["vehicle_number"] = strings.ToUpper(str(v, "vehicleNumber"))
	}

	pending := w.Tracker().Pending()
	files := map[string][]uploads.Record{
		"id_document": pending[FieldIDDocument],
	}
	if store.Bool("hasLicense") {
		files["license_document"] = pending[FieldLicense]
	}
	return submit.For(values, files)
}
