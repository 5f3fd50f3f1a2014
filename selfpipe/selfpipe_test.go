package selfpipe

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitTimesOut(t *testing.T) {
	m := New(syscall.SIGUSR1)
	defer m.Stop()

	start := time.Now()
	sig, timedOut := m.Wait(50 * time.Millisecond)
	assert.True(t, timedOut)
	assert.Nil(t, sig)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitReceivesSignal(t *testing.T) {
	m := New(syscall.SIGUSR1)
	defer m.Stop()

	proc, err := os.FindProcess(os.Getpid())
	assert.NoError(t, err)
	assert.NoError(t, proc.Signal(syscall.SIGUSR1))

	sig, timedOut := m.Wait(time.Second)
	assert.False(t, timedOut)
	assert.Equal(t, syscall.SIGUSR1, sig)
}
