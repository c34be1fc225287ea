// Package wizard implements the step controller shared by every multi-step
// form: an ordered list of steps, a gated forward edge, an ungated backward
// edge and a terminal submitted state reachable only from the last step.
package wizard

import (
	"context"
	"errors"
	"sync"

	"github.com/oshocks/bikeshop/pkg/forms"
	"github.com/oshocks/bikeshop/pkg/logging"
	"github.com/oshocks/bikeshop/pkg/uploads"
)

// Wizard errors.
var (
	ErrNoSteps     = errors.New("wizard: no steps")
	ErrStepInvalid = errors.New("wizard: step has invalid fields")
	ErrNotLastStep = errors.New("wizard: submit is only allowed from the last step")
	ErrNotVisited  = errors.New("wizard: step has not been reached yet")
	ErrSubmitted   = errors.New("wizard: form already submitted")
	ErrSubmitting  = errors.New("wizard: submission in progress")
)

// State is the lifecycle state of a wizard.
type State int

const (
	// Editing means a step is active and accepts input.
	Editing State = iota
	// Submitted is terminal.
	Submitted
)

func (s State) String() string {
	if s == Submitted {
		return "submitted"
	}
	return "editing"
}

// Step is one page of a form.
type Step struct {
	// Name identifies the step.
	Name string

	// Title is shown to the user.
	Title string

	// Fields are the inputs of the step, checked by their own rules.
	Fields []forms.Field

	// FileFields are the upload fields the step declares on the tracker.
	FileFields []string

	// Validate adds cross-field rules on top of the field rules.
	Validate func(v forms.Values) forms.Results
}

// Check runs the field rules and then the step's own rules.
func (s Step) Check(v forms.Values) forms.Results {
	rs := forms.NewCheck(v).Fields(s.Fields...).Results()
	if s.Validate != nil {
		rs = rs.Merge(s.Validate(v))
	}
	return rs
}

// Field finds a field definition by name.
func (s Step) Field(name string) (forms.Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return forms.Field{}, false
}

// SubmitFunc sends the final values. It runs without the wizard lock held.
type SubmitFunc func(ctx context.Context, store *forms.Store, tracker *uploads.Tracker) error

// Option configures a Wizard.
type Option func(*Wizard)

// WithTracker sets the upload tracker.
func WithTracker(t *uploads.Tracker) Option {
	return func(w *Wizard) {
		w.tracker = t
	}
}

// WithStore seeds the field store.
func WithStore(s *forms.Store) Option {
	return func(w *Wizard) {
		w.initial = s
	}
}

// WithDefaults seeds the field store from the field defaults of every step.
func WithDefaults() Option {
	return func(w *Wizard) {
		var fields []forms.Field
		for _, s := range w.steps {
			fields = append(fields, s.Fields...)
		}
		w.initial = forms.NewStore(forms.DefaultsFor(fields...))
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Wizard) {
		w.logger = l
	}
}

// OnStepChange registers a hook called after the active step changes, with
// 1-based indexes. It is called with the wizard lock released.
func OnStepChange(fn func(from, to int)) Option {
	return func(w *Wizard) {
		w.onChange = fn
	}
}

// Wizard drives a form session through its steps. It is safe for
// concurrent use.
type Wizard struct {
	mu sync.Mutex

	steps      []Step
	current    int
	reached    int
	state      State
	submitting bool

	initial *forms.Store
	store   *forms.Store
	tracker *uploads.Tracker
	errors  forms.Results

	fileFields map[string]bool
	onChange   func(from, to int)
	logger     logging.Logger
}

// New creates a wizard positioned on the first step.
func New(steps []Step, opts ...Option) (*Wizard, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	w := &Wizard{
		steps:      steps,
		fileFields: make(map[string]bool),
		logger:     logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.initial == nil {
		w.initial = forms.NewStore(nil)
	}
	if w.tracker == nil {
		w.tracker = uploads.NewTracker(uploads.DefaultConfig())
	}
	for _, s := range steps {
		for _, f := range s.FileFields {
			w.fileFields[f] = true
		}
	}
	w.reset()
	return w, nil
}

func (w *Wizard) reset() {
	w.current = 0
	w.reached = 0
	w.state = Editing
	w.store = w.initial
	w.errors = make(forms.Results)
	w.tracker.Reset()
	w.tracker.Declare(w.steps[0].FileFields...)
}

// Current returns the active step.
func (w *Wizard) Current() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.steps[w.current]
}

// Index returns the 1-based position of the active step.
func (w *Wizard) Index() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current + 1
}

// Total returns the number of steps.
func (w *Wizard) Total() int {
	return len(w.steps)
}

// Steps returns the step definitions.
func (w *Wizard) Steps() []Step {
	return append([]Step(nil), w.steps...)
}

// IsFirst reports whether the active step is the first one.
func (w *Wizard) IsFirst() bool {
	return w.Index() == 1
}

// IsLast reports whether the active step is the last one.
func (w *Wizard) IsLast() bool {
	return w.Index() == len(w.steps)
}

// State returns the lifecycle state.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// Errors returns the failures recorded by the last transition attempt,
// minus fields edited since.
func (w *Wizard) Errors() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errors.Invalid()
}

// Results returns the full result set of the last transition attempt.
func (w *Wizard) Results() forms.Results {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errors.Merge(nil)
}

// Store returns the current field store snapshot.
func (w *Wizard) Store() *forms.Store {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store
}

// Tracker returns the upload tracker.
func (w *Wizard) Tracker() *uploads.Tracker {
	return w.tracker
}

// Values returns a view over the store in which file fields resolve to
// their staged upload records.
func (w *Wizard) Values() forms.Values {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view()
}

func (w *Wizard) view() forms.Values {
	return view{store: w.store, tracker: w.tracker, files: w.fileFields}
}

type view struct {
	store   *forms.Store
	tracker *uploads.Tracker
	files   map[string]bool
}

func (v view) Get(name string) any {
	if v.files[name] {
		if recs := v.tracker.Records(name); len(recs) > 0 {
			return recs
		}
		return nil
	}
	return v.store.Get(name)
}

// Set stores a field value and clears any error recorded for it.
func (w *Wizard) Set(name string, value any) error {
	return w.Dispatch(forms.SetField{Name: name, Value: value})
}

// Dispatch applies a store action.
func (w *Wizard) Dispatch(a forms.Action) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	next, err := w.store.Dispatch(a)
	if err != nil {
		return err
	}
	w.store = next
	if sf, ok := a.(forms.SetField); ok {
		w.errors = w.errors.Without(sf.Name)
	}
	return nil
}

// Attach stages a file on a field of the active step and clears its error.
func (w *Wizard) Attach(field string, f uploads.File) (uploads.Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return uploads.Record{}, err
	}
	rec, err := w.tracker.Add(field, f)
	if err != nil {
		return uploads.Record{}, err
	}
	w.errors = w.errors.Without(field)
	return rec, nil
}

// Detach removes a staged file.
func (w *Wizard) Detach(field, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	return w.tracker.Remove(field, id)
}

func (w *Wizard) editable() error {
	if w.state == Submitted {
		return ErrSubmitted
	}
	if w.submitting {
		return ErrSubmitting
	}
	return nil
}

// Validate checks the active step without moving.
func (w *Wizard) Validate() forms.Results {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.steps[w.current].Check(w.view())
}

// Next validates the active step and advances on success. On failure the
// results are kept for display and ErrStepInvalid is returned. On the last
// step a successful Next stays in place.
func (w *Wizard) Next() (forms.Results, error) {
	w.mu.Lock()
	if err := w.editable(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	from := w.current
	rs := w.steps[from].Check(w.view())
	w.errors = rs
	if !rs.OK() {
		w.mu.Unlock()
		w.logger.Debug("step blocked",
			logging.String("step", w.steps[from].Name),
			logging.Any("fields", rs.InvalidFields()))
		return rs, ErrStepInvalid
	}
	if from < len(w.steps)-1 {
		w.moveTo(from + 1)
		w.errors = make(forms.Results)
	}
	to := w.current
	w.mu.Unlock()
	w.changed(from, to)
	return rs, nil
}

// Previous moves back one step without validating. It reports false at the
// first step.
func (w *Wizard) Previous() bool {
	w.mu.Lock()
	if w.editable() != nil || w.current == 0 {
		w.mu.Unlock()
		return false
	}
	from := w.current
	w.moveTo(from - 1)
	w.errors = make(forms.Results)
	w.mu.Unlock()
	w.changed(from, from-1)
	return true
}

// GoTo jumps to a 1-based step that has already been reached.
func (w *Wizard) GoTo(index int) error {
	w.mu.Lock()
	if err := w.editable(); err != nil {
		w.mu.Unlock()
		return err
	}
	i := index - 1
	if i < 0 || i > w.reached {
		w.mu.Unlock()
		return ErrNotVisited
	}
	from := w.current
	w.moveTo(i)
	w.errors = make(forms.Results)
	w.mu.Unlock()
	w.changed(from, i)
	return nil
}

// Submit validates every step and, when all pass, calls fn. If a step fails
// the wizard moves to the first failing step and returns ErrStepInvalid with
// its results. A nil error from fn makes the wizard Submitted.
func (w *Wizard) Submit(ctx context.Context, fn SubmitFunc) (forms.Results, error) {
	w.mu.Lock()
	if err := w.editable(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.current != len(w.steps)-1 {
		w.mu.Unlock()
		return nil, ErrNotLastStep
	}

	v := w.view()
	all := make(forms.Results)
	for i, s := range w.steps {
		rs := s.Check(v)
		if !rs.OK() {
			from := w.current
			w.moveTo(i)
			w.errors = rs
			w.mu.Unlock()
			w.logger.Info("submit blocked",
				logging.String("step", s.Name),
				logging.Any("fields", rs.InvalidFields()))
			w.changed(from, i)
			return rs, ErrStepInvalid
		}
		all = all.Merge(rs)
	}
	w.errors = make(forms.Results)
	w.submitting = true
	store := w.store
	w.mu.Unlock()

	err := fn(ctx, store, w.tracker)

	w.mu.Lock()
	w.submitting = false
	if err == nil {
		w.state = Submitted
	}
	w.mu.Unlock()
	if err != nil {
		w.logger.Warn("submit failed", logging.Err(err))
	}
	return all, err
}

// Reset returns the wizard to the first step with the initial values and no
// staged files.
func (w *Wizard) Reset() {
	w.mu.Lock()
	from := w.current
	w.reset()
	w.submitting = false
	w.mu.Unlock()
	w.changed(from, 0)
}

// moveTo must be called with the lock held.
func (w *Wizard) moveTo(i int) {
	w.current = i
	if i > w.reached {
		w.reached = i
	}
	w.tracker.Declare(w.steps[i].FileFields...)
}

func (w *Wizard) changed(from, to int) {
	if from == to || w.onChange == nil {
		return
	}
	w.onChange(from+1, to+1)
}
