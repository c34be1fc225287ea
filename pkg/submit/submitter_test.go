package submit

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestSubmitter_Success(t *testing.T) {
	s := New(WithKeyFunc(func() string { return "key-1" }))

	var got string
	err := s.Submit(context.Background(), func(_ context.Context, key string) error {
		got = key
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "key-1" {
		t.Errorf("expected key-1, got %s", got)
	}
	if s.Status() != Success {
		t.Errorf("expected Success, got %s", s.Status())
	}
	if s.Key() != "" {
		t.Errorf("expected key cleared after success, got %s", s.Key())
	}
}

func TestSubmitter_KeyReusedAfterFailure(t *testing.T) {
	n := 0
	s := New(WithKeyFunc(func() string {
		n++
		return "key-" + strconv.Itoa(n)
	}))

	var keys []string
	boom := errors.New("503")
	send := func(_ context.Context, key string) error {
		keys = append(keys, key)
		if len(keys) == 1 {
			return boom
		}
		return nil
	}

	if err := s.Submit(context.Background(), send); !errors.Is(err, boom) {
		t.Fatalf("expected failure, got %v", err)
	}
	if s.Status() != Failure || !errors.Is(s.Err(), boom) {
		t.Errorf("expected Failure with error, got %s / %v", s.Status(), s.Err())
	}
	if err := s.Submit(context.Background(), send); err != nil {
		t.Fatalf("expected resubmit to succeed, got %v", err)
	}
	if keys[0] != keys[1] {
		t.Errorf("expected the same key on resubmit, got %v", keys)
	}
}

func TestSubmitter_RejectsConcurrentSubmit(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New()
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Submit(context.Background(), func(context.Context, string) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	calls := 0
	err := s.Submit(context.Background(), func(context.Context, string) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrInFlight) {
		t.Errorf("expected ErrInFlight, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no duplicate request, got %d", calls)
	}
	if s.Status() != InFlight {
		t.Errorf("expected InFlight, got %s", s.Status())
	}

	close(release)
	wg.Wait()
	if s.Status() != Success {
		t.Errorf("expected Success, got %s", s.Status())
	}
}

func TestSubmitter_CancelDiscardsOutcome(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(WithKeyFunc(func() string { return "stable" }))
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Submit(ctx, func(ctx context.Context, _ string) error {
		cancel()
		<-ctx.Done()
		return nil
	})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if s.Status() != Idle {
		t.Errorf("expected Idle after cancel, got %s", s.Status())
	}
	if s.Key() != "stable" {
		t.Errorf("expected key kept for retry, got %q", s.Key())
	}
}

func TestSubmitter_Reset(t *testing.T) {
	s := New()
	s.Submit(context.Background(), func(context.Context, string) error { return errors.New("x") })

	s.Reset()
	if s.Status() != Idle || s.Key() != "" || s.Err() != nil {
		t.Errorf("expected clean idle submitter, got %s %q %v", s.Status(), s.Key(), s.Err())
	}
}
