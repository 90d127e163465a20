package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned by Start on a bridge that was started before.
	ErrAlreadyStarted = errors.New("bridge already started")

	// ErrShutdown is returned when work is submitted after Shutdown.
	ErrShutdown = errors.New("bridge shut down")
)

// ErrorCode categorizes failures surfaced to the poll loop.
type ErrorCode string

const (
	// ErrCodeInit indicates the service connection could not be established.
	ErrCodeInit ErrorCode = "INIT_FAILED"

	// ErrCodeSubscribe indicates the event subscription could not be created.
	ErrCodeSubscribe ErrorCode = "SUBSCRIBE_FAILED"

	// ErrCodeSetWifi indicates a SetWifi action failed.
	ErrCodeSetWifi ErrorCode = "SET_WIFI_FAILED"

	// ErrCodeToggleWifi indicates a ToggleWifi action failed.
	ErrCodeToggleWifi ErrorCode = "TOGGLE_WIFI_FAILED"

	// ErrCodeSwitchNetwork indicates a SwitchNetwork action failed.
	ErrCodeSwitchNetwork ErrorCode = "SWITCH_NETWORK_FAILED"

	// ErrCodeUnknownAction indicates a request type execute does not handle.
	ErrCodeUnknownAction ErrorCode = "UNKNOWN_ACTION"

	// ErrCodeTaskPanic indicates a background task panicked and was recovered.
	ErrCodeTaskPanic ErrorCode = "TASK_PANIC"
)

// ErrorRecord describes a background failure delivered to the poll loop.
type ErrorRecord struct {
	Code ErrorCode

	// Reason is the human-readable failure text.
	Reason string

	// RequestID and Action identify the failed request (action errors only).
	RequestID string
	Action    string
}

// Error implements the error interface so records can be logged and wrapped.
func (r *ErrorRecord) Error() string {
	if r.RequestID != "" {
		return fmt.Sprintf("%s: %s (action=%s, request=%s)", r.Code, r.Reason, r.Action, r.RequestID)
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Reason)
}

// IsActionError reports whether the record came from a dispatched action.
func (r *ErrorRecord) IsActionError() bool {
	switch r.Code {
	case ErrCodeSetWifi, ErrCodeToggleWifi, ErrCodeSwitchNetwork, ErrCodeUnknownAction:
		return true
	}
	return false
}

// IsInitError returns true if err is (or wraps) an initialization ErrorRecord.
func IsInitError(err error) bool {
	var rec *ErrorRecord
	if errors.As(err, &rec) {
		return rec.Code == ErrCodeInit
	}
	return false
}

func newActionError(id string, req ActionRequest, err error) ErrorRecord {
	return ErrorRecord{
		Code:      errorCodeFor(req),
		Reason:    err.Error(),
		RequestID: id,
		Action:    req.Name(),
	}
}
