package pipeline

import (
	"fmt"
	"time"
)

// Delivery channels guarded by a circuit breaker.
const (
	ChannelEmail   = "email"
	ChannelStorage = "storage"
	ChannelAttach  = "record-attachment"
)

// RenderTimeoutError represents a document-rendering call that exceeded its
// time budget. Only the generate stage may be retried after it.
type RenderTimeoutError struct {
	Timeout time.Duration
	Cause   error
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("render timeout: document not produced within %s", e.Timeout)
}

func (e *RenderTimeoutError) Unwrap() error {
	return e.Cause
}

// DeliveryChannelError represents a failed email, storage or record
// attachment delivery. It never aborts a submission.
type DeliveryChannelError struct {
	Channel string
	Message string
	Cause   error
}

func (e *DeliveryChannelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s delivery failed: %s: %v", e.Channel, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s delivery failed: %s", e.Channel, e.Message)
}

func (e *DeliveryChannelError) Unwrap() error {
	return e.Cause
}
