package session

import (
	"errors"
	"strings"
)

// ErrUserRejected is the structured signal for a user-declined signature
// request. Wallet integrations that can tell rejection apart from failure
// should wrap this sentinel; classification then does not depend on message
// phrasing at all.
var ErrUserRejected = errors.New("user rejected the request")

// defaultRejectionPhrases covers the phrasing used by common wallet providers
// when the user declines a signature request. The exact set is provider
// dependent, which is why the list is configurable rather than fixed.
var defaultRejectionPhrases = []string{
	"user rejected",
	"user denied",
	"rejected by user",
	"request rejected",
	"cancelled",
	"canceled",
}

// Classifier decides whether a mutation failure was a user-declined
// signature request rather than an operational fault.
type Classifier struct {
	phrases []string
}

// NewClassifier creates a Classifier with the given rejection phrases.
// With no arguments the default phrase list is used.
func NewClassifier(phrases ...string) *Classifier {
	if len(phrases) == 0 {
		phrases = defaultRejectionPhrases
	}
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return &Classifier{phrases: lowered}
}

// IsUserRejection reports whether err represents a declined signature
// request. A wrapped ErrUserRejected always counts; otherwise the error
// message is matched case-insensitively against the phrase list.
func (c *Classifier) IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	return containsAny(strings.ToLower(err.Error()), c.phrases)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
