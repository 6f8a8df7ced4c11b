package venue

import (
	"errors"
	"fmt"
)

// Code mirrors the venue's trade return codes, reduced to the set the
// order manager actually branches on.
type Code string

const (
	// transient: bounded retry with backoff
	CodeRequote      Code = "Requote"
	CodeBusy         Code = "Busy"
	CodePriceChanged Code = "PriceChanged"
	CodeTimeout      Code = "Timeout"

	// permanent: surfaced immediately, no retry
	CodeInvalidVolume Code = "InvalidVolume"
	CodeInvalidStops  Code = "InvalidStops"
	CodeNoMoney       Code = "NoMoney"
	CodeTradeDisabled Code = "TradeDisabled"
	CodeMarketClosed  Code = "MarketClosed"
	CodeRejected      Code = "Rejected"

	// a call that never answered; triggers reconciliation, never retry
	CodeUnknown Code = "Unknown"
)

// Error is a classified venue failure. Retryable drives the order
// manager's retry policy.
type Error struct {
	Code      Code
	Retryable bool
	Msg       string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("venue: %s", e.Code)
	}
	return fmt.Sprintf("venue: %s: %s", e.Code, e.Msg)
}

func Transient(code Code, msg string) *Error {
	return &Error{Code: code, Retryable: true, Msg: msg}
}

func Permanent(code Code, msg string) *Error {
	return &Error{Code: code, Retryable: false, Msg: msg}
}

// IsRetryable reports whether err is a venue error marked retryable.
// Unknown-status errors are never retryable: retrying a call the venue may
// have executed risks a duplicate submission.
func IsRetryable(err error) bool {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Retryable && ve.Code != CodeUnknown
	}
	return false
}

// IsUnknown reports whether err means the venue's answer was never seen
// (timeout mid-call). The caller must reconcile against QueryOpen before
// touching the symbol again.
func IsUnknown(err error) bool {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code == CodeUnknown
	}
	return false
}

// ErrCode extracts the venue code, or CodeRejected for foreign errors.
func ErrCode(err error) Code {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	return CodeRejected
}
