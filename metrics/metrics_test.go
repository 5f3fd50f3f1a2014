package metrics

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingFunctionsDontPanic(t *testing.T) {
	SweepStarted()
	DeliveryAttempt("success", 0.01)
	DeliveryAttempt("tempfail", 1.5)
	QueueSize(3)
}

func TestServeShutsDownOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(ctx, "127.0.0.1:0")
	}()

	// Addr "127.0.0.1:0" binds an ephemeral port; ListenAndServe itself is
	// exercised, not the exact port, so give it a moment to start before
	// cancelling.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

func TestPanicIncStillWorks(t *testing.T) {
	require.NotPanics(t, func() {
		PanicInc("engine")
	})
	_ = http.StatusOK
}
