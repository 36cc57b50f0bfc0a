package session

import "context"

// Progress reports transaction status from inside a running mutation.
// Reporting TxStatusSubmitted moves the owning flow from pending to
// confirming.
type Progress func(status TxStatus, details string)

// Mutation is one asynchronous, possibly-failing write operation.
//
// Mutate is invoked at most once per Submit or Retry; the flow never retries
// on its own. The result is an opaque value handed to the flow's OnSuccess
// callback uninterpreted.
type Mutation interface {
	Mutate(ctx context.Context, args any, report Progress) (any, error)
	Reset()
}

// MutationFunc adapts a plain function to the Mutation interface.
type MutationFunc func(ctx context.Context, args any, report Progress) (any, error)

// Mutate calls f.
func (f MutationFunc) Mutate(ctx context.Context, args any, report Progress) (any, error) {
	return f(ctx, args, report)
}

// Reset is a no-op for function-backed mutations.
func (f MutationFunc) Reset() {}
