package trigger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesFifo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trigger")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeNamedPipe)
}

func TestPulseWakesChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trigger")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte{0})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case <-w.C():
	case <-time.After(time.Second):
		t.Fatal("trigger channel did not receive pulse")
	}
}

func TestNoPulseTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trigger")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	select {
	case <-w.C():
		t.Fatal("unexpected pulse")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trigger")
	w1, err := Open(path)
	require.NoError(t, err)
	defer w1.Close()

	w2, err := Open(path)
	require.NoError(t, err)
	defer w2.Close()
}
