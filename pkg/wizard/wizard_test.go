package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oshocks/bikeshop/pkg/forms"
	"github.com/oshocks/bikeshop/pkg/uploads"
)

func testSteps() []Step {
	return []Step{
		{
			Name: "account",
			Fields: []forms.Field{
				forms.TextField("firstName", "First name", forms.WithRequired()),
				forms.EmailField("email", "Email", forms.WithRequired()),
			},
		},
		{
			Name:       "documents",
			FileFields: []string{"id_document"},
			Fields: []forms.Field{
				forms.FileField("id_document", "ID document", forms.WithRequired()),
			},
		},
		{
			Name: "security",
			Fields: []forms.Field{
				forms.PasswordField("password", "Password", forms.WithRequired(), forms.WithMinLength(8)),
				forms.PasswordField("confirmPassword", "Confirm password", forms.WithRequired()),
			},
			Validate: func(v forms.Values) forms.Results {
				return forms.NewCheck(v).
					Confirm("confirmPassword", "password", "Passwords do not match").
					Results()
			},
		},
	}
}

func newTestWizard(t *testing.T, opts ...Option) *Wizard {
	t.Helper()
	w, err := New(testSteps(), opts...)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return w
}

func pdf() uploads.File {
	return uploads.File{Name: "id.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}
}

func TestNew_NoSteps(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoSteps) {
		t.Errorf("expected ErrNoSteps, got %v", err)
	}
}

func TestWizard_NextBlockedByRequiredFields(t *testing.T) {
	w := newTestWizard(t)

	rs, err := w.Next()
	if !errors.Is(err, ErrStepInvalid) {
		t.Fatalf("expected ErrStepInvalid, got %v", err)
	}
	if w.Index() != 1 {
		t.Errorf("expected to stay on step 1, got %d", w.Index())
	}
	for _, field := range []string{"firstName", "email"} {
		if rs[field].OK() {
			t.Errorf("expected %s to be invalid", field)
		}
		if _, ok := w.Errors()[field]; !ok {
			t.Errorf("expected stored error for %s", field)
		}
	}
}

func TestWizard_SetClearsFieldError(t *testing.T) {
	w := newTestWizard(t)
	w.Next()

	if err := w.Set("firstName", "Achieng"); err != nil {
		t.Fatal(err)
	}
	errs := w.Errors()
	if _, ok := errs["firstName"]; ok {
		t.Error("expected firstName error cleared after edit")
	}
	if _, ok := errs["email"]; !ok {
		t.Error("expected email error to remain")
	}
}

func TestWizard_NextAdvancesAndClamps(t *testing.T) {
	var changes [][2]int
	w := newTestWizard(t, OnStepChange(func(from, to int) {
		changes = append(changes, [2]int{from, to})
	}))

	w.Set("firstName", "Achieng")
	w.Set("email", "achieng@example.com")
	if _, err := w.Next(); err != nil {
		t.Fatalf("expected step 1 to pass, got %v", err)
	}
	if w.Index() != 2 {
		t.Fatalf("expected step 2, got %d", w.Index())
	}

	if _, err := w.Attach("id_document", pdf()); err != nil {
		t.Fatalf("expected attach to succeed, got %v", err)
	}
	if _, err := w.Next(); err != nil {
		t.Fatalf("expected step 2 to pass, got %v", err)
	}

	w.Set("password", "longenough")
	w.Set("confirmPassword", "longenough")
	if _, err := w.Next(); err != nil {
		t.Fatalf("expected last step to validate, got %v", err)
	}
	if w.Index() != 3 {
		t.Errorf("expected to stay on last step, got %d", w.Index())
	}

	want := [][2]int{{1, 2}, {2, 3}}
	if len(changes) != len(want) {
		t.Fatalf("expected %v step changes, got %v", want, changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d: expected %v, got %v", i, want[i], changes[i])
		}
	}
}

func TestWizard_PreviousIsUngated(t *testing.T) {
	w := newTestWizard(t)

	if w.Previous() {
		t.Error("expected Previous to be a no-op on step 1")
	}
	if w.Index() != 1 {
		t.Errorf("expected step 1, got %d", w.Index())
	}

	w.Set("firstName", "Achieng")
	w.Set("email", "achieng@example.com")
	w.Next()

	// step 2 is invalid (no document) but going back must still work
	if !w.Previous() {
		t.Error("expected Previous to succeed from step 2")
	}
	if w.Index() != 1 {
		t.Errorf("expected step 1, got %d", w.Index())
	}
}

func TestWizard_GoToOnlyReachedSteps(t *testing.T) {
	w := newTestWizard(t)

	if err := w.GoTo(2); !errors.Is(err, ErrNotVisited) {
		t.Errorf("expected ErrNotVisited, got %v", err)
	}

	w.Set("firstName", "Achieng")
	w.Set("email", "achieng@example.com")
	w.Next()
	w.Previous()

	if err := w.GoTo(2); err != nil {
		t.Errorf("expected to jump back to reached step, got %v", err)
	}
	if w.Index() != 2 {
		t.Errorf("expected step 2, got %d", w.Index())
	}
}

func TestWizard_UploadsOnlyForActiveStepFields(t *testing.T) {
	w := newTestWizard(t)

	if _, err := w.Attach("id_document", pdf()); !errors.Is(err, uploads.ErrUndeclaredField) {
		t.Errorf("expected ErrUndeclaredField on step 1, got %v", err)
	}
	if w.Tracker().Len("id_document") != 0 {
		t.Error("expected no staged file")
	}
}

func TestWizard_SubmitOnlyFromLastStep(t *testing.T) {
	w := newTestWizard(t)

	_, err := w.Submit(context.Background(), func(context.Context, *forms.Store, *uploads.Tracker) error {
		t.Error("submit func should not run")
		return nil
	})
	if !errors.Is(err, ErrNotLastStep) {
		t.Errorf("expected ErrNotLastStep, got %v", err)
	}
}

func fillAll(t *testing.T, w *Wizard) {
	t.Helper()
	w.Set("firstName", "Achieng")
	w.Set("email", "achieng@example.com")
	if _, err := w.Next(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Attach("id_document", pdf()); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Next(); err != nil {
		t.Fatal(err)
	}
	w.Set("password", "longenough")
	w.Set("confirmPassword", "longenough")
}

func TestWizard_SubmitJumpsToFirstFailingStep(t *testing.T) {
	w := newTestWizard(t)
	fillAll(t, w)

	w.GoTo(1)
	w.Set("email", "broken")
	w.GoTo(3)

	rs, err := w.Submit(context.Background(), func(context.Context, *forms.Store, *uploads.Tracker) error {
		t.Error("submit func should not run")
		return nil
	})
	if !errors.Is(err, ErrStepInvalid) {
		t.Fatalf("expected ErrStepInvalid, got %v", err)
	}
	if w.Index() != 1 {
		t.Errorf("expected jump to step 1, got %d", w.Index())
	}
	if rs["email"].OK() {
		t.Error("expected email failure in results")
	}
}

func TestWizard_SubmitSuccessIsTerminal(t *testing.T) {
	w := newTestWizard(t)
	fillAll(t, w)

	var got string
	_, err := w.Submit(context.Background(), func(_ context.Context, s *forms.Store, tr *uploads.Tracker) error {
		got = s.String("firstName")
		if len(tr.Pending()["id_document"]) != 1 {
			t.Error("expected one pending document")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "Achieng" {
		t.Errorf("expected submitted firstName, got %q", got)
	}
	if w.State() != Submitted {
		t.Errorf("expected Submitted, got %s", w.State())
	}
	if err := w.Set("firstName", "x"); !errors.Is(err, ErrSubmitted) {
		t.Errorf("expected ErrSubmitted after submission, got %v", err)
	}
}

func TestWizard_SubmitFailureStaysEditing(t *testing.T) {
	w := newTestWizard(t)
	fillAll(t, w)

	boom := errors.New("backend down")
	_, err := w.Submit(context.Background(), func(context.Context, *forms.Store, *uploads.Tracker) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if w.State() != Editing {
		t.Errorf("expected Editing after failure, got %s", w.State())
	}
	if w.Submitting() {
		t.Error("expected submitting flag cleared")
	}
}

func TestWizard_EditsBlockedWhileSubmitting(t *testing.T) {
	w := newTestWizard(t)
	fillAll(t, w)

	started := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Submit(context.Background(), func(context.Context, *forms.Store, *uploads.Tracker) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	if err := w.Set("firstName", "x"); !errors.Is(err, ErrSubmitting) {
		t.Errorf("expected ErrSubmitting, got %v", err)
	}
	if _, err := w.Submit(context.Background(), nil); !errors.Is(err, ErrSubmitting) {
		t.Errorf("expected second submit to be refused, got %v", err)
	}
	close(release)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submit did not return")
	}
}

func TestWizard_Reset(t *testing.T) {
	w := newTestWizard(t, WithStore(forms.NewStore(map[string]any{"firstName": "Seed"})))
	fillAll(t, w)

	w.Reset()

	if w.Index() != 1 {
		t.Errorf("expected step 1, got %d", w.Index())
	}
	if w.Store().String("firstName") != "Seed" {
		t.Errorf("expected seeded value back, got %q", w.Store().String("firstName"))
	}
	if w.Tracker().Len("id_document") != 0 {
		t.Error("expected staged files dropped")
	}
}
