// Package errors provides structured error handling for walletlink.
// It defines the error kinds surfaced to UI collaborators, exit codes for
// the CLI, and helpers for adding context, details and suggestions.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input or programmer error
	ExitRejected = 3 // User declined the approval prompt
	ExitNotFound = 4 // Wallet provider not found
	ExitBusy     = 5 // Another connect attempt is in flight
)

// Kind classifies a failure at the core/collaborator boundary.
type Kind string

// Error kinds surfaced to collaborators.
const (
	KindNone              Kind = ""
	KindNoProviderFound   Kind = "NoProviderFound"
	KindUserRejected      Kind = "UserRejected"
	KindConnectionFailed  Kind = "ConnectionFailed"
	KindInvalidWalletType Kind = "InvalidWalletType"
	KindConnectInProgress Kind = "ConnectInProgress"
)

// LinkError is the structured error type for walletlink.
type LinkError struct {
	Kind       Kind              // Error kind exposed in connection state
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *LinkError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *LinkError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for LinkError.
func (e *LinkError) Is(target error) bool {
	var t *LinkError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &LinkError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrNoProviderFound = &LinkError{
		Kind:       KindNoProviderFound,
		Code:       "NO_PROVIDER_FOUND",
		Message:    "wallet provider not found",
		Suggestion: "Install the wallet extension, unlock it and refresh the page",
		ExitCode:   ExitNotFound,
	}

	ErrUserRejected = &LinkError{
		Kind:       KindUserRejected,
		Code:       "USER_REJECTED",
		Message:    "connection cancelled",
		Suggestion: "Approve the connection request in your wallet and try again",
		ExitCode:   ExitRejected,
	}

	ErrConnectionFailed = &LinkError{
		Kind:     KindConnectionFailed,
		Code:     "CONNECTION_FAILED",
		Message:  "failed to connect wallet",
		ExitCode: ExitGeneral,
	}

	ErrInvalidWalletType = &LinkError{
		Kind:     KindInvalidWalletType,
		Code:     "INVALID_WALLET_TYPE",
		Message:  "invalid wallet type",
		ExitCode: ExitInput,
	}

	ErrConnectInProgress = &LinkError{
		Kind:       KindConnectInProgress,
		Code:       "CONNECT_IN_PROGRESS",
		Message:    "a connection attempt is already in progress",
		Suggestion: "Wait for the pending wallet prompt to complete",
		ExitCode:   ExitBusy,
	}

	ErrInvalidAddress = &LinkError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrConfigInvalid = &LinkError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	ErrStorage = &LinkError{
		Code:     "STORAGE_ERROR",
		Message:  "persisted state unavailable",
		ExitCode: ExitGeneral,
	}
)

// New creates a new LinkError with the given code and message.
func New(code, message string) *LinkError {
	return &LinkError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var le *LinkError
	if errors.As(err, &le) {
		return &LinkError{
			Kind:       le.Kind,
			Code:       le.Code,
			Message:    fmt.Sprintf("%s: %s", msg, le.Message),
			Details:    le.Details,
			Suggestion: le.Suggestion,
			Cause:      err,
			ExitCode:   le.ExitCode,
		}
	}

	return &LinkError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause returns a copy of a sentinel carrying cause as its underlying error.
// This is how opaque lower-layer failures are mapped onto an error kind.
func WithCause(sentinel *LinkError, cause error) error {
	return &LinkError{
		Kind:       sentinel.Kind,
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var le *LinkError
	if errors.As(err, &le) {
		return &LinkError{
			Kind:       le.Kind,
			Code:       le.Code,
			Message:    le.Message,
			Details:    details,
			Suggestion: le.Suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &LinkError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var le *LinkError
	if errors.As(err, &le) {
		return &LinkError{
			Kind:       le.Kind,
			Code:       le.Code,
			Message:    le.Message,
			Details:    le.Details,
			Suggestion: suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &LinkError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// KindOf returns the error kind carried by err, or KindNone.
func KindOf(err error) Kind {
	var le *LinkError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindNone
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var le *LinkError
	if errors.As(err, &le) {
		return le.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var le *LinkError
	if errors.As(err, &le) {
		return le.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
