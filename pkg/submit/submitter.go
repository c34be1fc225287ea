package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/oshocks/bikeshop/pkg/logging"
)

// Submitter errors.
var (
	ErrInFlight = errors.New("submit: a submission is already in flight")
	ErrCanceled = errors.New("submit: submission canceled")
)

// Status is the lifecycle state of a submission.
type Status int

const (
	Idle Status = iota
	InFlight
	Success
	Failure
)

func (s Status) String() string {
	switch s {
	case InFlight:
		return "in-flight"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "idle"
	}
}

// SendFunc performs the request. key is the idempotency key for this payload.
type SendFunc func(ctx context.Context, key string) error

// Option configures a Submitter.
type Option func(*Submitter)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Submitter) {
		s.logger = l
	}
}

// WithKeyFunc replaces the idempotency key generator.
func WithKeyFunc(fn func() string) Option {
	return func(s *Submitter) {
		s.newKey = fn
	}
}

// Submitter guards one form's submission. Only one request runs at a time,
// and the idempotency key survives failures so a manual resubmit of the same
// form is recognisable server-side.
type Submitter struct {
	mu     sync.Mutex
	status Status
	key    string
	err    error

	newKey func() string
	logger logging.Logger
}

// New creates an idle submitter.
func New(opts ...Option) *Submitter {
	s := &Submitter{
		newKey: uuid.NewString,
		logger: logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs send unless another submission is in flight. If ctx is done by
// the time send returns, the outcome is discarded: the submitter goes back to
// Idle and ErrCanceled is returned.
func (s *Submitter) Submit(ctx context.Context, send SendFunc) error {
	s.mu.Lock()
	if s.status == InFlight {
		s.mu.Unlock()
		return ErrInFlight
	}
	if s.key == "" {
		s.key = s.newKey()
	}
	key := s.key
	s.status = InFlight
	s.err = nil
	s.mu.Unlock()

	s.logger.Debug("submitting", logging.String("idempotency_key", key))
	err := send(ctx, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		s.status = Idle
		s.logger.Info("submission discarded", logging.String("idempotency_key", key), logging.Err(ctxErr))
		return fmt.Errorf("%w: %w", ErrCanceled, ctxErr)
	}
	if err != nil {
		s.status = Failure
		s.err = err
		s.logger.Warn("submission failed", logging.String("idempotency_key", key), logging.Err(err))
		return err
	}
	s.status = Success
	s.key = ""
	return nil
}

// Status returns the current state.
func (s *Submitter) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the error of the last failed attempt.
func (s *Submitter) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Key returns the idempotency key the next attempt will use, or "" if none
// has been issued yet.
func (s *Submitter) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Reset forgets the current key and returns to Idle. It has no effect while
// a submission is in flight.
func (s *Submitter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == InFlight {
		return
	}
	s.status = Idle
	s.key = ""
	s.err = nil
}
