package flows

import (
	"github.com/oshocks/bikeshop/pkg/forms"
	"github.com/oshocks/bikeshop/pkg/submit"
	"github.com/oshocks/bikeshop/pkg/uploads"
	"github.com/oshocks/bikeshop/pkg/wizard"
)

// Registration creates a buyer account.
var Registration = &Flow{
	Name:    "registration",
	Title:   "Create your account",
	steps:   registrationSteps,
	uploads: uploads.DefaultConfig(),
	payload: registrationPayload,
}

func registrationSteps() []wizard.Step {
	return []wizard.Step{
		{
			Name:  "account",
			Title: "Account",
			Fields: []forms.Field{
				forms.TextField("firstName", "First name", forms.WithRequired(), forms.WithMaxLength(50), forms.WithSanitize()),
				forms.TextField("lastName", "Last name", forms.WithRequired(), forms.WithMaxLength(50), forms.WithSanitize()),
				forms.EmailField("email", "Email", forms.WithRequired(), forms.WithPlaceholder("you@example.com")),
			},
		},
		{
			Name:  "contact",
			Title: "Contact",
			Fields: []forms.Field{
				forms.PhoneField("phone", "Phone number", forms.WithRequired(), forms.WithPlaceholder("0712345678")),
				forms.SelectField("county", "County", countyOptions),
			},
		},
		{
			Name:  "security",
			Title: "Security",
			Fields: []forms.Field{
				forms.PasswordField("password", "Password", forms.WithRequired(), forms.WithMinLength(8)),
				forms.PasswordField("confirmPassword", "Confirm password", forms.WithRequired()),
				forms.CheckboxField("acceptTerms", "Terms and conditions", forms.WithRequired(), forms.WithDefault(false)),
			},
			Validate: func(v forms.Values) forms.Results {
				return forms.NewCheck(v).
					Confirm("confirmPassword", "password", "Passwords do not match").
					Results()
			},
		},
	}
}

// registrationPayload sends JSON: first and last name are joined into name.
func registrationPayload(w *wizard.Wizard) (submit.Payload, error) {
	v := sanitized(w, registrationSteps())
	body := submit.JSON{
		"name":                  trim(str(v, "firstName") + " " + str(v, "lastName")),
		"email":                 str(v, "email"),
		"phone":                 NormalizePhone(str(v, "phone")),
		"password":              v["password"],
		"password_confirmation": v["confirmPassword"],
	}
	if county := str(v, "county"); county != "" {
		body["county"] = county
	}
	return body, nil
}
