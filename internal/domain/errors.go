package domain

import (
	"errors"
	"fmt"
)

// RejectReason is the structured reason attached to a rejected order. The
// values are stable identifiers surfaced in status events and persisted with
// the order.
type RejectReason string

const (
	// Validation failures (recoverable, order rejected).
	ReasonMissingFields RejectReason = "MISSING_FIELDS"
	ReasonInvalidOrder  RejectReason = "INVALID_ORDER"

	// Limit breaches (recoverable, order rejected).
	ReasonPositionLimit RejectReason = "POSITION_LIMIT"
	ReasonNotionalLimit RejectReason = "NOTIONAL_LIMIT"

	// Exchange outcomes (recoverable, order rejected).
	ReasonMarketReject  RejectReason = "MARKET_REJECT"
	ReasonExchangeError RejectReason = "EXCHANGE_ERROR"
)

// RejectionError carries a rejection reason through the pipeline. All
// rejections are terminal for the order; the core performs no retries.
type RejectionError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// NewRejection creates a RejectionError with an optional detail message.
func NewRejection(reason RejectReason, detail string) *RejectionError {
	return &RejectionError{Reason: reason, Detail: detail}
}

// ReasonOf extracts the rejection reason from an error, or ReasonExchangeError
// if the error is not a RejectionError (an unclassified fault is treated as
// an exchange-side failure).
func ReasonOf(err error) RejectReason {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ReasonExchangeError
}
