// Package errors defines the error taxonomy shared by the workflows and
// gateways. Every failure a workflow can surface carries one of the kinds
// below so callers can tell which half of a two-phase operation failed.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a workflow or gateway failure.
type Kind string

const (
	// KindAuth covers missing, expired or invalid credentials.
	KindAuth Kind = "auth"
	// KindWallet covers missing providers and user-rejected wallet actions.
	KindWallet Kind = "wallet"
	// KindChain covers RPC failures and reverted transactions.
	KindChain Kind = "chain"
	// KindBackend covers non-2xx responses and isSuccess=false envelopes.
	KindBackend Kind = "backend"
	// KindValidation covers client-side precondition failures.
	KindValidation Kind = "validation"
	// KindPartial marks a backend failure after a successful chain write.
	KindPartial Kind = "partial"
)

// Error is a kinded error with an optional wrapped cause. CommitKey is set
// only on partial failures and names the durable marker to retry with.
type Error struct {
	Kind      Kind
	Message   string
	CommitKey string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Unauthorized builds an auth error.
func Unauthorized(message string) *Error { return New(KindAuth, message) }

// Wallet builds a wallet error.
func Wallet(message string) *Error { return New(KindWallet, message) }

// Chain builds a chain error around a cause.
func Chain(message string, err error) *Error { return Wrap(KindChain, message, err) }

// Backend builds a backend error around a cause.
func Backend(message string, err error) *Error { return Wrap(KindBackend, message, err) }

// Validation builds a validation error.
func Validation(message string) *Error { return New(KindValidation, message) }

// Partial marks a backend failure that happened after the chain write
// succeeded. The commit key identifies the durable pending marker the caller
// can retry with.
func Partial(commitKey string, err error) *Error {
	return &Error{
		Kind:      KindPartial,
		Message:   fmt.Sprintf("chain write confirmed but backend registration failed (commit %s)", commitKey),
		CommitKey: commitKey,
		Err:       err,
	}
}

// KindOf reports the kind of err, or the empty kind for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
