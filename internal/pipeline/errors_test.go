package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/attachment"
)

func TestRenderTimeoutError(t *testing.T) {
	err := &RenderTimeoutError{Timeout: 30 * time.Second, Cause: context.DeadlineExceeded}
	assert.Equal(t, "render timeout: document not produced within 30s", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeliveryChannelError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &DeliveryChannelError{Channel: ChannelStorage, Message: "document not uploaded", Cause: cause}
	assert.Equal(t, "storage delivery failed: document not uploaded: dial tcp: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := &DeliveryChannelError{Channel: ChannelEmail, Message: "not configured"}
	assert.Equal(t, "email delivery failed: not configured", bare.Error())
}

func TestChannelBreakers_IgnoreSizeLimits(t *testing.T) {
	b := newChannelBreakers(BreakerOptions{ConsecutiveFailures: 1}, zap.NewNop())

	for i := 0; i < 3; i++ {
		err := b.execute(ChannelAttach, func() error {
			return &attachment.SizeLimitError{Size: 10, Ceiling: 5}
		})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, b.state(ChannelAttach))

	require.Error(t, b.execute(ChannelAttach, func() error { return errUnavailable }))
	assert.Equal(t, gobreaker.StateOpen, b.state(ChannelAttach))
	assert.Equal(t, gobreaker.StateClosed, b.state(ChannelEmail))
}
