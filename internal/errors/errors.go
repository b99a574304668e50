// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. The pipeline resolves every modeled failure kind into a
// terminal run status, so these kinds double as the vocabulary of the audit trail.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to handle different types of failures appropriately.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// ProviderRateLimited indicates the LLM provider throttled a call.
	ProviderRateLimited Kind = "provider_rate_limited"
	// ProviderBadRequest indicates the LLM provider rejected a malformed request.
	ProviderBadRequest Kind = "provider_bad_request"
	// ProviderFailed covers every other provider failure (5xx, transport, empty reply).
	ProviderFailed Kind = "provider_failed"
	// SQLExecution indicates a statement failed against the store or was rejected before it.
	SQLExecution Kind = "sql_execution_error"
	// EmptyResult indicates a statement succeeded but produced no rows.
	EmptyResult Kind = "empty_result"
	// NonFixable indicates the reasoning agent judged the question unanswerable by SQL.
	NonFixable Kind = "non_fixable_query"
	// RetryExhausted indicates the attempt budget ran out without success.
	RetryExhausted Kind = "retry_budget_exhausted"
	// FatalOrchestration indicates an unmodeled failure inside the controller.
	FatalOrchestration Kind = "fatal_orchestration_error"

	// ConfigInvalid indicates the configuration could not be loaded or is inconsistent.
	ConfigInvalid Kind = "config_invalid"
	// DSNInvalid indicates the database connection string could not be resolved.
	DSNInvalid Kind = "dsn_invalid"
	// SecretUnavailable indicates a required secret is missing from env and keychain.
	SecretUnavailable Kind = "secret_unavailable"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the outermost *E in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether any *E in err's chain carries the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *E
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
