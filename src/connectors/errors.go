package connectors

import (
	"errors"
	"strings"
)

// ErrorKind is the canonical classification of connector failures. Wallet
// providers report errors as free-form strings; every connector translates
// them into a kind at the point of catching, so nothing downstream ever
// matches on message text.
type ErrorKind string

const (
	KindUserCancelled     ErrorKind = "user_cancelled"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindNetworkError      ErrorKind = "network_error"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindUnknown           ErrorKind = "unknown"
)

// ConnectorError carries the canonical kind next to the underlying cause.
type ConnectorError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ConnectorError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *ConnectorError) Unwrap() error {
	return e.Err
}

// NewError builds a ConnectorError with an explicit kind and message.
func NewError(kind ErrorKind, message string) *ConnectorError {
	return &ConnectorError{Kind: kind, Message: message}
}

// KindOf extracts the canonical kind from an error chain, defaulting to
// KindUnknown.
func KindOf(err error) ErrorKind {
	var connErr *ConnectorError
	if errors.As(err, &connErr) {
		return connErr.Kind
	}
	return KindUnknown
}

// IsCancelled reports whether an error chain represents a user rejection.
func IsCancelled(err error) bool {
	return KindOf(err) == KindUserCancelled
}

// classifyProviderError maps a raw provider error onto the canonical
// taxonomy. The substring patterns cover MetaMask and Xverse rejection
// phrasing.
func classifyProviderError(err error) *ConnectorError {
	if err == nil {
		return nil
	}

	var connErr *ConnectorError
	if errors.As(err, &connErr) {
		return connErr
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "denied"),
		strings.Contains(msg, "cancelled"),
		strings.Contains(msg, "canceled"):
		return &ConnectorError{Kind: KindUserCancelled, Message: "Transaction cancelled by user", Err: err}
	case strings.Contains(msg, "insufficient funds"):
		return &ConnectorError{Kind: KindInsufficientFunds, Message: "Insufficient funds for transaction", Err: err}
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection"),
		strings.Contains(msg, "network"):
		return &ConnectorError{Kind: KindNetworkError, Err: err}
	default:
		return &ConnectorError{Kind: KindUnknown, Err: err}
	}
}
