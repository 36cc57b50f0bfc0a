package session

// Step is the discrete UI state of a transactional dialog flow.
type Step int

const (
	// StepForm is the initial state: the user is editing inputs.
	StepForm Step = iota
	// StepPending means the mutation has been started and is being signed
	// and handed to the network.
	StepPending
	// StepConfirming means the transaction was accepted by the network and
	// is awaiting inclusion in a block.
	StepConfirming
	// StepSuccess means the mutation completed.
	StepSuccess
	// StepError means the mutation failed for an operational reason.
	StepError
	// StepCancelled means the signing party declined the request.
	StepCancelled
)

func (s Step) String() string {
	switch s {
	case StepForm:
		return "form"
	case StepPending:
		return "pending"
	case StepConfirming:
		return "confirming"
	case StepSuccess:
		return "success"
	case StepError:
		return "error"
	case StepCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TxStatus is the coarse progress of the underlying transaction, as reported
// by the mutation while it runs.
type TxStatus string

const (
	TxStatusIdle      TxStatus = "idle"
	TxStatusSigning   TxStatus = "signing"
	TxStatusSubmitted TxStatus = "submitted"
	TxStatusMined     TxStatus = "mined"
	TxStatusFailed    TxStatus = "failed"
)
