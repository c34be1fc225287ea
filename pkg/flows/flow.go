// Package flows defines the shop's concrete multi-step forms: account
// registration, seller and delivery agent applications, and product creation.
// Each flow knows its steps, the uploads it accepts and how its values map
// onto the backend's request body.
package flows

import (
	"fmt"
	"strconv"

	"github.com/oshocks/bikeshop/pkg/forms"
	"github.com/oshocks/bikeshop/pkg/logging"
	"github.com/oshocks/bikeshop/pkg/security"
	"github.com/oshocks/bikeshop/pkg/submit"
	"github.com/oshocks/bikeshop/pkg/uploads"
	"github.com/oshocks/bikeshop/pkg/wizard"
)

// maxTextLength caps sanitized free text.
const maxTextLength = 5000

var sanitizer = security.NewSanitizer(maxTextLength)

// Config configures a wizard built from a flow.
type Config struct {
	// MaxFileSize overrides the flow's upload ceiling when positive.
	MaxFileSize int64

	// Logger receives wizard events.
	Logger logging.Logger

	// OnStepChange is called after the active step changes.
	OnStepChange func(from, to int)
}

// Flow is one concrete form.
type Flow struct {
	// Name identifies the flow, e.g. "seller".
	Name string

	// Title is shown above the form.
	Title string

	steps   func() []wizard.Step
	uploads uploads.Config
	payload func(w *wizard.Wizard) (submit.Payload, error)
}

// Steps returns fresh step definitions.
func (f *Flow) Steps() []wizard.Step {
	return f.steps()
}

// Uploads returns the upload rules of the flow.
func (f *Flow) Uploads() uploads.Config {
	return f.uploads
}

// NewWizard starts a form session for the flow with field defaults applied.
func (f *Flow) NewWizard(cfg Config) (*wizard.Wizard, error) {
	uc := f.uploads
	if cfg.MaxFileSize > 0 {
		uc.MaxFileSize = cfg.MaxFileSize
	}
	opts := []wizard.Option{
		wizard.WithDefaults(),
		wizard.WithTracker(uploads.NewTracker(uc)),
	}
	if cfg.Logger != nil {
		opts = append(opts, wizard.WithLogger(cfg.Logger.With(logging.String("flow", f.Name))))
	}
	if cfg.OnStepChange != nil {
		opts = append(opts, wizard.OnStepChange(cfg.OnStepChange))
	}
	return wizard.New(f.steps(), opts...)
}

// Payload builds the request body from a finished session.
func (f *Flow) Payload(w *wizard.Wizard) (submit.Payload, error) {
	return f.payload(w)
}

// All returns every flow.
func All() []*Flow {
	return []*Flow{Registration, Seller, DeliveryAgent, Product}
}

// ByName finds a flow.
func ByName(name string) (*Flow, bool) {
	for _, f := range All() {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// allFields collects the field definitions of steps.
func allFields(steps []wizard.Step) []forms.Field {
	var out []forms.Field
	for _, s := range steps {
		out = append(out, s.Fields...)
	}
	return out
}

// sanitized returns the store values with free text cleaned.
func sanitized(w *wizard.Wizard, steps []wizard.Step) forms.Map {
	return forms.Map(w.Store().Sanitized(sanitizer, allFields(steps)...))
}

// str reads a value from m as trimmed text.
func str(m forms.Map, name string) string {
	switch v := m[name].(type) {
	case nil:
		return ""
	case string:
		return trim(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return trim(fmt.Sprint(v))
	}
}
