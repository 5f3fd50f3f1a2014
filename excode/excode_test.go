package excode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermanent(t *testing.T) {
	assert.False(t, Permanent(0))
	assert.False(t, Permanent(1))
	assert.False(t, Permanent(75))
	assert.True(t, Permanent(2|PermanentFlag))
	assert.True(t, Permanent(31|PermanentFlag))
}

func TestStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "success", String(0))
	assert.Equal(t, "could not execute protocol helper", String(ExecFailed))
	assert.Contains(t, String(200), "unrecognized code")
	assert.Contains(t, String(200), "temporary")
	assert.Contains(t, String(200|PermanentFlag), "permanent")
}
