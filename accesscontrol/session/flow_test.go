package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedMutation drives a Flow from tests: each call is dispatched to fn
// with its call index, and every invocation is recorded.
type scriptedMutation struct {
	mu     sync.Mutex
	calls  []any
	resets int
	fn     func(call int, args any, report Progress) (any, error)
}

func (m *scriptedMutation) Mutate(_ context.Context, args any, report Progress) (any, error) {
	m.mu.Lock()
	call := len(m.calls)
	m.calls = append(m.calls, args)
	fn := m.fn
	m.mu.Unlock()
	return fn(call, args, report)
}

func (m *scriptedMutation) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

func (m *scriptedMutation) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *scriptedMutation) callArgs(i int) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

func stepIs(f *Flow, want Step) func() bool {
	return func() bool { return f.Step() == want }
}

func TestSubmitMovesToPendingBeforeCompletion(t *testing.T) {
	release := make(chan struct{})
	m := &scriptedMutation{fn: func(int, any, Progress) (any, error) {
		<-release
		return "tx-1", nil
	}}
	f := NewFlow(m)

	require.NoError(t, f.Submit(context.Background(), "args"))
	// The mutation has not settled yet; the transition must already have
	// happened.
	assert.Equal(t, StepPending, f.Step())

	close(release)
	require.Eventually(t, stepIs(f, StepSuccess), time.Second, 5*time.Millisecond)
	assert.Equal(t, "tx-1", f.Result())
}

func TestRejectionClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantStep Step
		wantMsg  string
	}{
		{
			name:     "user rejection phrase routes to cancelled",
			err:      errors.New("User rejected the transaction"),
			wantStep: StepCancelled,
			wantMsg:  "",
		},
		{
			name:     "wallet denial routes to cancelled",
			err:      errors.New("MetaMask Tx Signature: User denied transaction signature."),
			wantStep: StepCancelled,
			wantMsg:  "",
		},
		{
			name:     "bare cancelled phrase routes to cancelled",
			err:      errors.New("Signature request cancelled"),
			wantStep: StepCancelled,
			wantMsg:  "",
		},
		{
			name:     "american spelling routes to cancelled",
			err:      errors.New("Transaction canceled"),
			wantStep: StepCancelled,
			wantMsg:  "",
		},
		{
			name:     "structured rejection routes to cancelled",
			err:      fmt.Errorf("signing aborted: %w", ErrUserRejected),
			wantStep: StepCancelled,
			wantMsg:  "",
		},
		{
			name:     "operational failure routes to error verbatim",
			err:      errors.New("Network disconnected"),
			wantStep: StepError,
			wantMsg:  "Network disconnected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &scriptedMutation{fn: func(int, any, Progress) (any, error) {
				return nil, tt.err
			}}
			f := NewFlow(m)

			require.NoError(t, f.Submit(context.Background(), nil))
			require.Eventually(t, stepIs(f, tt.wantStep), time.Second, 5*time.Millisecond)
			assert.Equal(t, tt.wantMsg, f.ErrorMessage())

			if tt.wantStep == StepCancelled {
				assert.Equal(t, CancelledMessage, f.Message(),
					"cancelled flows must show the fixed reassuring text")
			} else {
				assert.Equal(t, tt.wantMsg, f.Message())
			}

			status, _ := f.TxStatus()
			assert.Equal(t, TxStatusFailed, status)
		})
	}
}

func TestSubmittedReportMovesToConfirming(t *testing.T) {
	release := make(chan struct{})
	m := &scriptedMutation{fn: func(_ int, _ any, report Progress) (any, error) {
		report(TxStatusSubmitted, "0xdeadbeef")
		<-release
		report(TxStatusMined, "0xdeadbeef")
		return "done", nil
	}}
	f := NewFlow(m)

	require.NoError(t, f.Submit(context.Background(), nil))
	require.Eventually(t, stepIs(f, StepConfirming), time.Second, 5*time.Millisecond)

	status, details := f.TxStatus()
	assert.Equal(t, TxStatusSubmitted, status)
	assert.Equal(t, "0xdeadbeef", details)

	close(release)
	require.Eventually(t, stepIs(f, StepSuccess), time.Second, 5*time.Millisecond)
	status, _ = f.TxStatus()
	assert.Equal(t, TxStatusMined, status)
}

func TestOnSuccessFiresBeforeDelayedOnClose(t *testing.T) {
	const delay = 60 * time.Millisecond

	var (
		mu            sync.Mutex
		gotResult     any
		successAt     time.Time
		closeAt       time.Time
		closeObserved = make(chan struct{})
	)

	m := &scriptedMutation{fn: func(int, any, Progress) (any, error) {
		return "receipt", nil
	}}
	f := NewFlow(m,
		WithCloseDelay(delay),
		WithOnSuccess(func(result any) {
			mu.Lock()
			gotResult = result
			successAt = time.Now()
			mu.Unlock()
		}),
		WithOnClose(func() {
			mu.Lock()
			closeAt = time.Now()
			mu.Unlock()
			close(closeObserved)
		}),
	)

	require.NoError(t, f.Submit(context.Background(), nil))
	require.Eventually(t, stepIs(f, StepSuccess), time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "receipt", gotResult, "OnSuccess must fire with the mutation result")
	assert.True(t, closeAt.IsZero(), "OnClose must not fire before the delay")
	mu.Unlock()

	select {
	case <-closeObserved:
	case <-time.After(time.Second):
		t.Fatal("OnClose never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, closeAt.Sub(successAt), delay-10*time.Millisecond)
}

func TestCloseCancelsAutoClose(t *testing.T) {
	closed := make(chan struct{})
	m := &scriptedMutation{fn: func(int, any, Progress) (any, error) {
		return nil, nil
	}}
	f := NewFlow(m,
		WithCloseDelay(100*time.Millisecond),
		WithOnClose(func() { close(closed) }),
	)

	require.NoError(t, f.Submit(context.Background(), nil))
	require.Eventually(t, stepIs(f, StepSuccess), time.Second, 5*time.Millisecond)
	f.Close()

	select {
	case <-closed:
		t.Fatal("OnClose fired after the flow was closed")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRetryReplaysLastArguments(t *testing.T) {
	m := &scriptedMutation{fn: func(call int, _ any, _ Progress) (any, error) {
		if call == 0 {
			return nil, errors.New("nonce too low")
		}
		return "tx-2", nil
	}}
	f := NewFlow(m)

	require.NoError(t, f.Submit(context.Background(), GrantArgsForTest{Role: "MINTER_ROLE"}))
	require.Eventually(t, stepIs(f, StepError), time.Second, 5*time.Millisecond)
	assert.Equal(t, "nonce too low", f.ErrorMessage())

	require.NoError(t, f.Retry(context.Background()))
	require.Eventually(t, stepIs(f, StepSuccess), time.Second, 5*time.Millisecond)

	require.Equal(t, 2, m.callCount())
	assert.Equal(t, m.callArgs(0), m.callArgs(1), "retry must replay the exact same arguments")
}

// GrantArgsForTest is a comparable stand-in for real mutation args.
type GrantArgsForTest struct{ Role string }

func TestRetryOutsideErrorState(t *testing.T) {
	m := &scriptedMutation{fn: func(int, any, Progress) (any, error) { return nil, nil }}
	f := NewFlow(m)

	assert.ErrorIs(t, f.Retry(context.Background()), ErrNotRetryable)
}

func TestSubmitWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	m := &scriptedMutation{fn: func(int, any, Progress) (any, error) {
		<-release
		return nil, nil
	}}
	f := NewFlow(m)

	require.NoError(t, f.Submit(context.Background(), nil))
	assert.ErrorIs(t, f.Submit(context.Background(), nil), ErrSubmitInFlight)
	assert.ErrorIs(t, f.Retry(context.Background()), ErrSubmitInFlight)
	close(release)
}

func TestResetReturnsToFormFromAnyState(t *testing.T) {
	m := &scriptedMutation{fn: func(int, any, Progress) (any, error) {
		return nil, errors.New("boom")
	}}
	f := NewFlow(m)

	require.NoError(t, f.Submit(context.Background(), nil))
	require.Eventually(t, stepIs(f, StepError), time.Second, 5*time.Millisecond)

	f.Reset()

	assert.Equal(t, StepForm, f.Step())
	assert.Empty(t, f.ErrorMessage())
	status, details := f.TxStatus()
	assert.Equal(t, TxStatusIdle, status)
	assert.Empty(t, details)
	assert.Equal(t, 1, m.resets, "reset must be delegated to the mutation")
}

func TestResetDiscardsStaleCompletion(t *testing.T) {
	release := make(chan struct{})
	m := &scriptedMutation{fn: func(int, any, Progress) (any, error) {
		<-release
		return "late", nil
	}}
	f := NewFlow(m)

	require.NoError(t, f.Submit(context.Background(), nil))
	f.Reset()
	close(release)

	// The late completion belongs to a superseded generation and must not
	// move the flow out of the form state.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StepForm, f.Step())
	assert.Nil(t, f.Result())
}

func TestFlowIDsAreUnique(t *testing.T) {
	m := &scriptedMutation{fn: func(int, any, Progress) (any, error) { return nil, nil }}
	a := NewFlow(m)
	b := NewFlow(m)

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
