package forms

// FieldType identifies the type of form field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPassword FieldType = "password"
	FieldTel      FieldType = "tel"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldFile     FieldType = "file"
	FieldDate     FieldType = "date"
)

// Field describes one input of a form step.
type Field struct {
	// Name is the field name used in the store.
	Name string

	// Type is the field type.
	Type FieldType

	// Label is the display label. Error messages are built from it.
	Label string

	// Placeholder is the placeholder text.
	Placeholder string

	// Help is help text shown below the field.
	Help string

	// Required indicates if the field is required.
	Required bool

	// Validators run after the required check passes.
	Validators []Validator

	// Options are the available options (for select/radio fields).
	Options []Option

	// Multiple allows several values (select) or several files (file).
	Multiple bool

	// Default is the initial value.
	Default any

	// Sanitize strips markup from the value before submission.
	Sanitize bool
}

// Option represents a select/radio option.
type Option struct {
	Value string
	Label string
}

// Options builds options whose label equals their value.
func Options(values ...string) []Option {
	opts := make([]Option, len(values))
	for i, v := range values {
		opts[i] = Option{Value: v, Label: v}
	}
	return opts
}

// OptionValues returns the values of opts.
func OptionValues(opts []Option) []string {
	values := make([]string, len(opts))
	for i, o := range opts {
		values[i] = o.Value
	}
	return values
}

// FieldOption is a function that configures a field.
type FieldOption func(*Field)

// NewField creates a new field.
func NewField(name string, fieldType FieldType, label string, opts ...FieldOption) Field {
	field := Field{
		Name:  name,
		Type:  fieldType,
		Label: label,
	}
	for _, opt := range opts {
		opt(&field)
	}
	return field
}

// WithRequired marks the field as required.
func WithRequired() FieldOption {
	return func(f *Field) {
		f.Required = true
	}
}

// WithPlaceholder sets the placeholder text.
func WithPlaceholder(placeholder string) FieldOption {
	return func(f *Field) {
		f.Placeholder = placeholder
	}
}

// WithHelp sets the help text.
func WithHelp(help string) FieldOption {
	return func(f *Field) {
		f.Help = help
	}
}

// WithDefault sets the default value.
func WithDefault(value any) FieldOption {
	return func(f *Field) {
		f.Default = value
	}
}

// WithValidator adds a validator.
func WithValidator(v Validator) FieldOption {
	return func(f *Field) {
		f.Validators = append(f.Validators, v)
	}
}

// WithMinLength adds a minimum length validator.
func WithMinLength(n int) FieldOption {
	return WithValidator(MinLength(n))
}

// WithMaxLength adds a maximum length validator.
func WithMaxLength(n int) FieldOption {
	return WithValidator(MaxLength(n))
}

// WithOptions sets the select/radio options.
func WithOptions(options ...Option) FieldOption {
	return func(f *Field) {
		f.Options = options
	}
}

// WithMultiple allows multiple values.
func WithMultiple() FieldOption {
	return func(f *Field) {
		f.Multiple = true
	}
}

// WithSanitize strips markup from the value before it is submitted.
func WithSanitize() FieldOption {
	return func(f *Field) {
		f.Sanitize = true
	}
}

// TextField creates a text field.
func TextField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldText, label, opts...)
}

// EmailField creates an email field.
func EmailField(name, label string, opts ...FieldOption) Field {
	field := NewField(name, FieldEmail, label, opts...)
	field.Validators = append(field.Validators, Email())
	return field
}

// PhoneField creates a Kenyan phone number field.
func PhoneField(name, label string, opts ...FieldOption) Field {
	field := NewField(name, FieldTel, label, opts...)
	field.Validators = append(field.Validators, KenyanPhone())
	return field
}

// PasswordField creates a password field.
func PasswordField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldPassword, label, opts...)
}

// NumberField creates a number field.
func NumberField(name, label string, opts ...FieldOption) Field {
	field := NewField(name, FieldNumber, label, opts...)
	field.Validators = append([]Validator{Numeric()}, field.Validators...)
	return field
}

// TextareaField creates a textarea field.
func TextareaField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldTextarea, label, opts...)
}

// SelectField creates a select field. The value must be one of options.
func SelectField(name, label string, options []Option, opts ...FieldOption) Field {
	field := NewField(name, FieldSelect, label, opts...)
	field.Options = options
	field.Validators = append(field.Validators, OneOf(OptionValues(options)...))
	return field
}

// RadioField creates a radio field. The value must be one of options.
func RadioField(name, label string, options []Option, opts ...FieldOption) Field {
	field := NewField(name, FieldRadio, label, opts...)
	field.Options = options
	field.Validators = append(field.Validators, OneOf(OptionValues(options)...))
	return field
}

// CheckboxField creates a checkbox field. A required checkbox must be ticked.
func CheckboxField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldCheckbox, label, opts...)
}

// DateField creates a date field (YYYY-MM-DD).
func DateField(name, label string, opts ...FieldOption) Field {
	field := NewField(name, FieldDate, label, opts...)
	field.Validators = append(field.Validators, Date())
	return field
}

// FileField creates a file field. Its value is the list of staged uploads.
func FileField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldFile, label, opts...)
}
