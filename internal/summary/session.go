package summary

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-carbon/internal/analytics"
	"github.com/ukydev/fleet-carbon/internal/models"
)

// Status is the lifecycle stage of the summary shown to the user.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ErrSuperseded is reported to a caller whose request was replaced by a newer one.
var ErrSuperseded = errors.New("superseded by a newer summary request")

// State is a snapshot of the summary lifecycle. Text is set only on success
// and Reason only on failure.
type State struct {
	Status    Status    `json:"status"`
	RequestID string    `json:"request_id,omitempty"`
	Text      string    `json:"text,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Err       error     `json:"-"`
}

// Outcome labels passed to the session observer.
const (
	OutcomeSuccess     = "success"
	OutcomeConfigError = "config_error"
	OutcomeRemoteError = "remote_error"
	OutcomeSuperseded  = "superseded"
	OutcomeError       = "error"
)

// Observer receives the outcome and duration of each completed request.
type Observer func(outcome string, elapsed time.Duration)

// Session tracks the summary shown to the user. Starting a request clears the
// previous answer and cancels any request still in flight, so the displayed
// state always belongs to the latest request.
type Session struct {
	completer Completer
	analyzer  *analytics.Analyzer
	observer  Observer

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	state  State
}

// NewSession creates an idle session.
func NewSession(completer Completer, analyzer *analytics.Analyzer, observer Observer) *Session {
	if analyzer == nil {
		analyzer = analytics.New(nil)
	}
	return &Session{
		completer: completer,
		analyzer:  analyzer,
		observer:  observer,
		state:     State{Status: StatusIdle, UpdatedAt: time.Now()},
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset cancels any in-flight request and returns to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	s.state = State{Status: StatusIdle, UpdatedAt: time.Now()}
}

// Generate builds the prompt for fleet, calls the endpoint and records the
// result. It blocks until the request finishes and returns the state that
// request produced. A request replaced by a newer one returns a failure with
// ErrSuperseded and leaves the shared state untouched.
func (s *Session) Generate(ctx context.Context, fleet []models.VehicleRecord) State {
	prompt := BuildPrompt(s.analyzer, fleet, s.analyzer.KPIs(fleet))

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	s.cancel = cancel
	requestID := uuid.NewString()
	s.state = State{Status: StatusLoading, RequestID: requestID, UpdatedAt: time.Now()}
	s.mu.Unlock()

	start := time.Now()
	text, err := s.completer.Complete(reqCtx, SystemInstruction, prompt)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		s.observe(OutcomeSuperseded, elapsed)
		return State{Status: StatusFailure, RequestID: requestID, Reason: ErrSuperseded.Error(), Err: ErrSuperseded, UpdatedAt: time.Now()}
	}
	s.cancel = nil

	next := State{RequestID: requestID, UpdatedAt: time.Now()}
	if err != nil {
		next.Status = StatusFailure
		next.Reason = err.Error()
		next.Err = err
		s.observe(outcomeOf(err), elapsed)
		log.WithError(err).WithField("request_id", requestID).Warn("AI summary failed")
	} else {
		next.Status = StatusSuccess
		next.Text = text
		s.observe(OutcomeSuccess, elapsed)
		log.WithFields(log.Fields{"request_id": requestID, "elapsed": elapsed}).Info("AI summary generated")
	}
	s.state = next
	return next
}

func (s *Session) observe(outcome string, elapsed time.Duration) {
	if s.observer != nil {
		s.observer(outcome, elapsed)
	}
}

func outcomeOf(err error) string {
	var remote *RemoteError
	switch {
	case errors.Is(err, ErrMissingCredential):
		return OutcomeConfigError
	case errors.As(err, &remote):
		return OutcomeRemoteError
	default:
		return OutcomeError
	}
}
