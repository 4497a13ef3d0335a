package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strongdm/errwatch/pkg/errwatch"
	"github.com/strongdm/errwatch/pkg/errwatch/senders/capture"
	"golang.org/x/time/rate"
)

func TestLimiter_GlobalBurst(t *testing.T) {
	l := New(rate.Every(1<<62), 2)

	assert.True(t, l.Allow("A"))
	assert.True(t, l.Allow("B"))
	assert.False(t, l.Allow("C"))
}

func TestLimiter_PerClass(t *testing.T) {
	l := New(rate.Inf, 0, PerClass(rate.Every(1<<62), 1))

	assert.True(t, l.Allow("A"))
	assert.False(t, l.Allow("A"))
	assert.True(t, l.Allow("B"), "other classes have their own budget")
}

func TestLimiter_ClassRefusalKeepsGlobalToken(t *testing.T) {
	l := New(rate.Every(1<<62), 2, PerClass(rate.Every(1<<62), 1))

	assert.True(t, l.Allow("A"))
	assert.False(t, l.Allow("A"))
	assert.True(t, l.Allow("B"), "refused A must not consume the global budget")
	assert.False(t, l.Allow("C"))
}

func TestLimiter_BeforeSend(t *testing.T) {
	sender := capture.New()
	l := New(rate.Every(1<<62), 1)
	c, err := errwatch.New(errwatch.Config{
		APIKey:   "k",
		Endpoint: "https://errors.example.com",
		SyncMode: true,
	}, errwatch.WithSender(sender), errwatch.WithBeforeSend(l.BeforeSend()))
	require.NoError(t, err)
	defer c.Shutdown()

	assert.NotNil(t, c.Notify(context.Background(), "first"))
	assert.Nil(t, c.Notify(context.Background(), "second"))
	assert.Equal(t, 1, sender.Len())
}
