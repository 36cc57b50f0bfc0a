// Package session implements the dialog-session state machines that
// coordinate wallet-signed role-management transactions: a parameterized
// transactional flow (form, pending, confirming, success, error, cancelled)
// and the single-pending-change role tracker.
//
// Every flow instance owns its own state exclusively; nothing here is
// shared between instances. The blockchain work itself is delegated to an
// injected Mutation.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCloseDelay is how long a flow lingers in the success state before
// the OnClose callback fires.
const DefaultCloseDelay = 1500 * time.Millisecond

// CancelledMessage is the fixed reassuring text shown for user-declined
// requests. Raw wallet error text is never surfaced on this path.
const CancelledMessage = "Request was cancelled in the wallet. No changes were made."

// ErrSubmitInFlight is returned when Submit or Retry is called while a
// mutation is still running. Flows allow one outstanding operation at a time.
var ErrSubmitInFlight = errors.New("a submission is already in flight")

// ErrNotRetryable is returned when Retry is called outside the error state.
var ErrNotRetryable = errors.New("flow is not in a retryable state")

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithOnSuccess sets a callback invoked synchronously with the mutation
// result when the flow reaches success, before the delayed OnClose.
func WithOnSuccess(fn func(result any)) FlowOption {
	return func(f *Flow) { f.onSuccess = fn }
}

// WithOnClose sets a callback invoked once, a fixed delay after success.
// The consuming view is expected to dismiss the dialog from it.
func WithOnClose(fn func()) FlowOption {
	return func(f *Flow) { f.onClose = fn }
}

// WithCloseDelay overrides DefaultCloseDelay.
func WithCloseDelay(d time.Duration) FlowOption {
	return func(f *Flow) { f.closeDelay = d }
}

// WithClassifier overrides the default rejection classifier.
func WithClassifier(c *Classifier) FlowOption {
	return func(f *Flow) { f.classifier = c }
}

// Flow coordinates one user-initiated on-chain write operation from form
// input to terminal UI feedback. One Flow is constructed per dialog flow
// (grant/revoke, transfer ownership, accept ownership, accept admin); the
// differences between those flows live entirely in the injected Mutation.
type Flow struct {
	id         string
	mutation   Mutation
	classifier *Classifier
	onSuccess  func(result any)
	onClose    func()
	closeDelay time.Duration

	mu         sync.Mutex
	step       Step
	errMsg     string
	txStatus   TxStatus
	txDetails  string
	lastArgs   any
	result     any
	inFlight   bool
	generation uint64
	closeTimer *time.Timer
}

// NewFlow creates a flow around the given mutation.
func NewFlow(mutation Mutation, opts ...FlowOption) *Flow {
	f := &Flow{
		id:         uuid.NewString(),
		mutation:   mutation,
		classifier: NewClassifier(),
		closeDelay: DefaultCloseDelay,
		step:       StepForm,
		txStatus:   TxStatusIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ID returns the flow's instance identifier, useful for log correlation.
func (f *Flow) ID() string { return f.id }

// Step returns the current dialog step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// ErrorMessage returns the raw failure message. It is empty unless the flow
// is in the error state.
func (f *Flow) ErrorMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

// Message returns the text a dialog should display for the current terminal
// step: the fixed reassuring text after a user-declined request, the raw
// failure message in the error state, and "" otherwise.
func (f *Flow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepCancelled:
		return CancelledMessage
	case StepError:
		return f.errMsg
	default:
		return ""
	}
}

// TxStatus returns the transaction progress last reported by the mutation,
// with its detail string.
func (f *Flow) TxStatus() (TxStatus, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txStatus, f.txDetails
}

// Result returns the mutation result once the flow has reached success.
func (f *Flow) Result() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Submit starts the mutation with the given arguments. The flow moves to
// pending before the mutation runs; completion moves it to success, error or
// cancelled. Preconditions (wallet connected, pending change present) are the
// caller's responsibility, enforced at the submit-control layer.
func (f *Flow) Submit(ctx context.Context, args any) error {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	f.stopCloseTimerLocked()
	f.inFlight = true
	f.step = StepPending
	f.errMsg = ""
	f.result = nil
	f.lastArgs = args
	f.txStatus = TxStatusSigning
	f.txDetails = ""
	gen := f.generation
	f.mu.Unlock()

	go f.run(ctx, args, gen)
	return nil
}

// Retry re-invokes the mutation with the last submitted arguments. Only
// valid from the error state.
func (f *Flow) Retry(ctx context.Context) error {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	if f.step != StepError {
		f.mu.Unlock()
		return ErrNotRetryable
	}
	f.inFlight = true
	f.step = StepPending
	f.errMsg = ""
	f.txStatus = TxStatusSigning
	f.txDetails = ""
	args := f.lastArgs
	gen := f.generation
	f.mu.Unlock()

	go f.run(ctx, args, gen)
	return nil
}

// Reset returns the flow to the form state from any state, clearing the
// error message and delegating a reset to the mutation. A completion arriving
// from before the reset is discarded.
func (f *Flow) Reset() {
	f.mu.Lock()
	f.stopCloseTimerLocked()
	f.generation++
	f.inFlight = false
	f.step = StepForm
	f.errMsg = ""
	f.result = nil
	f.txStatus = TxStatusIdle
	f.txDetails = ""
	f.mu.Unlock()

	f.mutation.Reset()
}

// Close cancels the pending auto-close timer. Call it when the consuming
// view is dismissed early so no callback fires on a defunct view.
func (f *Flow) Close() {
	f.mu.Lock()
	f.stopCloseTimerLocked()
	f.generation++
	f.inFlight = false
	f.mu.Unlock()
}

// run executes the mutation and applies the terminal transition. State is
// mutated only on task completion, and only if the flow has not been reset
// or closed since the task started.
func (f *Flow) run(ctx context.Context, args any, gen uint64) {
	report := func(status TxStatus, details string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.generation != gen {
			return
		}
		f.txStatus = status
		f.txDetails = details
		if status == TxStatusSubmitted && f.step == StepPending {
			f.step = StepConfirming
		}
	}

	result, err := f.mutation.Mutate(ctx, args, report)

	f.mu.Lock()
	if f.generation != gen {
		f.mu.Unlock()
		return
	}
	f.inFlight = false

	if err != nil {
		if f.classifier.IsUserRejection(err) {
			f.step = StepCancelled
			f.errMsg = ""
		} else {
			f.step = StepError
			f.errMsg = err.Error()
		}
		f.txStatus = TxStatusFailed
		f.mu.Unlock()
		return
	}

	f.step = StepSuccess
	f.result = result
	onSuccess := f.onSuccess
	f.mu.Unlock()

	if onSuccess != nil {
		onSuccess(result)
	}

	f.mu.Lock()
	if f.generation == gen && f.onClose != nil {
		onClose := f.onClose
		f.closeTimer = time.AfterFunc(f.closeDelay, onClose)
	}
	f.mu.Unlock()
}

func (f *Flow) stopCloseTimerLocked() {
	if f.closeTimer != nil {
		f.closeTimer.Stop()
		f.closeTimer = nil
	}
}
