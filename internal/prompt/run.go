package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshocks/bikeshop/pkg/forms"
	"github.com/oshocks/bikeshop/pkg/wizard"
)

// Back typed at a text prompt returns to the previous step.
const Back = "<"

const (
	noneOption = "(none)"
	backOption = "« Previous step"
)

var errBack = errors.New("prompt: back")

// StepHandler fills a step the generic field prompts cannot, such as the
// product variant editor. Returning GoBack() moves to the previous step.
type StepHandler func(ctx context.Context, d Driver, w *wizard.Wizard) error

// GoBack is returned by a StepHandler to move to the previous step.
func GoBack() error {
	return errBack
}

// Option configures a Runner.
type Option func(*Runner)

// WithStepHandler replaces the prompts of the named step.
func WithStepHandler(step string, h StepHandler) Option {
	return func(r *Runner) {
		r.handlers[step] = h
	}
}

// Runner drives a wizard from a Driver.
type Runner struct {
	driver   Driver
	handlers map[string]StepHandler
}

// NewRunner creates a runner. The product variant step is handled by
// EditVariants unless overridden.
func NewRunner(d Driver, opts ...Option) *Runner {
	r := &Runner{
		driver:   d,
		handlers: map[string]StepHandler{"variants": EditVariants},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run asks for every step from the active one. Invalid fields are reported
// and asked again until the step passes. It returns nil once the last step
// is valid; submitting is left to the caller.
func (r *Runner) Run(ctx context.Context, w *wizard.Wizard) error {
	var retry map[string]bool
	for {
		step := w.Current()
		last := w.IsLast()
		if retry == nil {
			if err := r.driver.Info(ctx, fmt.Sprintf("\nStep %d of %d: %s", w.Index(), w.Total(), step.Title)); err != nil {
				return err
			}
		}

		err := r.fill(ctx, w, step, retry)
		if errors.Is(err, errBack) {
			w.Previous()
			retry = nil
			continue
		}
		if err != nil {
			return err
		}

		rs, err := w.Next()
		if errors.Is(err, wizard.ErrStepInvalid) {
			if err := r.Report(ctx, step, rs); err != nil {
				return err
			}
			retry = make(map[string]bool)
			for _, name := range rs.InvalidFields() {
				retry[name] = true
			}
			continue
		}
		if err != nil {
			return err
		}
		retry = nil
		if last {
			return nil
		}
	}
}

// Report prints the failing fields of rs with their labels.
func (r *Runner) Report(ctx context.Context, step wizard.Step, rs forms.Results) error {
	for _, name := range rs.InvalidFields() {
		label := name
		if f, ok := step.Field(name); ok {
			label = f.Label
		}
		if err := r.driver.Info(ctx, fmt.Sprintf("  ✗ %s: %s", label, rs.Reason(name))); err != nil {
			return err
		}
	}
	return nil
}

// fill asks the fields of step. A non-nil retry limits the questions to the
// fields it names; failures the fields cannot explain go to the step handler.
func (r *Runner) fill(ctx context.Context, w *wizard.Wizard, step wizard.Step, retry map[string]bool) error {
	handled := make(map[string]bool)
	for _, f := range step.Fields {
		handled[f.Name] = true
		if retry != nil && !retry[f.Name] {
			continue
		}
		if err := r.ask(ctx, w, f); err != nil {
			return err
		}
	}

	h, ok := r.handlers[step.Name]
	if !ok {
		return nil
	}
	if retry != nil {
		unexplained := false
		for name := range retry {
			if !handled[name] {
				unexplained = true
				break
			}
		}
		if !unexplained {
			return nil
		}
	}
	return h(ctx, r.driver, w)
}

func (r *Runner) ask(ctx context.Context, w *wizard.Wizard, f forms.Field) error {
	cur := w.Store().Get(f.Name)
	msg := f.Label
	if f.Required {
		msg += " *"
	}

	switch f.Type {
	case forms.FieldPassword:
		s, err := r.driver.Password(ctx, InputConfig{Message: msg, Help: f.Help})
		if err != nil {
			return err
		}
		if s == Back {
			return errBack
		}
		return w.Set(f.Name, s)

	case forms.FieldTextarea:
		s, err := r.driver.Multiline(ctx, InputConfig{Message: msg, Default: w.Store().String(f.Name), Help: f.Help})
		if err != nil {
			return err
		}
		if strings.TrimSpace(s) == Back {
			return errBack
		}
		return w.Set(f.Name, s)

	case forms.FieldCheckbox:
		b, _ := cur.(bool)
		ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: msg, Default: b, Help: f.Help})
		if err != nil {
			return err
		}
		return w.Set(f.Name, ok)

	case forms.FieldSelect, forms.FieldRadio:
		if f.Multiple {
			return r.askMulti(ctx, w, f, msg)
		}
		return r.askOne(ctx, w, f, msg)

	case forms.FieldFile:
		return r.askFiles(ctx, w, f, msg)
	}

	s, err := r.driver.Input(ctx, InputConfig{
		Message: msg,
		Default: w.Store().String(f.Name),
		Help:    joinHelp(f.Help, f.Placeholder),
	})
	if err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == Back {
		return errBack
	}
	return w.Set(f.Name, s)
}

func (r *Runner) askOne(ctx context.Context, w *wizard.Wizard, f forms.Field, msg string) error {
	values := forms.OptionValues(f.Options)
	labels := optionLabels(f.Options)
	if !f.Required {
		values = append([]string{""}, values...)
		labels = append([]string{noneOption}, labels...)
	}
	if !w.IsFirst() {
		labels = append(labels, backOption)
	}

	def := -1
	cur := w.Store().String(f.Name)
	for i, v := range values {
		if v == cur && (cur != "" || !f.Required) {
			def = i
			break
		}
	}

	i, err := r.driver.Select(ctx, SelectConfig{Message: msg, Options: labels, Default: def, Help: f.Help})
	if err != nil {
		return err
	}
	if i == len(values) && !w.IsFirst() {
		return errBack
	}
	if i < 0 || i >= len(values) {
		return fmt.Errorf("prompt: option %d out of range for %s", i, f.Name)
	}
	return w.Set(f.Name, values[i])
}

func (r *Runner) askMulti(ctx context.Context, w *wizard.Wizard, f forms.Field, msg string) error {
	values := forms.OptionValues(f.Options)
	selected := make(map[string]bool)
	for _, s := range w.Store().Strings(f.Name) {
		selected[s] = true
	}
	var defs []int
	for i, v := range values {
		if selected[v] {
			defs = append(defs, i)
		}
	}

	idx, err := r.driver.MultiSelect(ctx, SelectConfig{Message: msg, Options: optionLabels(f.Options), Defaults: defs, Help: f.Help})
	if err != nil {
		return err
	}
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(values) {
			out = append(out, values[i])
		}
	}
	return w.Set(f.Name, out)
}

// askFiles reads comma separated paths. A blank answer keeps what is staged;
// a single file field replaces its file.
func (r *Runner) askFiles(ctx context.Context, w *wizard.Wizard, f forms.Field, msg string) error {
	staged := w.Tracker().Records(f.Name)
	if len(staged) > 0 {
		names := make([]string, len(staged))
		for i, rec := range staged {
			names[i] = rec.FileName
		}
		msg += " [" + strings.Join(names, ", ") + "]"
	}

	s, err := r.driver.Input(ctx, InputConfig{
		Message: msg,
		Help:    joinHelp(f.Help, "File paths separated by commas. Leave blank to keep the current files."),
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(s) == Back {
		return errBack
	}
	paths := SplitPaths(s)
	if len(paths) == 0 {
		return nil
	}
	if !f.Multiple {
		paths = paths[:1]
		for _, rec := range staged {
			if err := w.Detach(f.Name, rec.ID); err != nil {
				return err
			}
		}
	}
	if _, err := w.Tracker().AddPaths(ctx, f.Name, paths); err != nil {
		return r.driver.Info(ctx, "  ✗ "+err.Error())
	}
	return nil
}

// SplitPaths splits a comma separated list of paths, dropping blanks.
func SplitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func optionLabels(opts []forms.Option) []string {
	labels := make([]string, len(opts))
	for i, o := range opts {
		labels[i] = o.Label
		if labels[i] == "" {
			labels[i] = o.Value
		}
	}
	return labels
}

func joinHelp(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
