package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemotesDefaultsProto(t *testing.T) {
	remotes, errs := ParseRemotes([]string{"mx.example.com"})
	require.Empty(t, errs)
	require.Len(t, remotes, 1)
	assert.Equal(t, "mx.example.com", remotes[0].Host)
	assert.Equal(t, DefaultProto, remotes[0].Proto)
	assert.Equal(t, "host=mx.example.com\n\n", remotes[0].Options)
}

func TestParseRemotesWithProtoAndOptions(t *testing.T) {
	remotes, errs := ParseRemotes([]string{"mx.example.com smtp --port=2525 starttls"})
	require.Empty(t, errs)
	require.Len(t, remotes, 1)
	r := remotes[0]
	assert.Equal(t, "smtp", r.Proto)
	assert.Equal(t, "host=mx.example.com\nport=2525\nstarttls\n\n", r.Options)
}

func TestParseRemotesSkipsCommentsAndBlank(t *testing.T) {
	remotes, errs := ParseRemotes([]string{
		"# primary",
		"",
		"mx1.example.com",
		"  # indented comment",
		"mx2.example.com qmqp",
	})
	require.Empty(t, errs)
	require.Len(t, remotes, 2)
	assert.Equal(t, "mx1.example.com", remotes[0].Host)
	assert.Equal(t, "qmqp", remotes[1].Proto)
}

func TestParseRemotesBadQuoteReportsError(t *testing.T) {
	remotes, errs := ParseRemotes([]string{"mx.example.com smtp \"unterminated"})
	assert.Empty(t, remotes)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "line 1")
}

func TestProgram(t *testing.T) {
	r := Remote{Proto: "smtp"}
	assert.Equal(t, "/usr/lib/relaysend/smtp", r.Program("/usr/lib/relaysend"))
}

func TestSetDefaults(t *testing.T) {
	var f File
	f.SetDefaults()
	require.NotNil(t, f.PauseTime)
	assert.Equal(t, defaultPauseTime, *f.PauseTime)
	assert.Equal(t, defaultMaxPause, f.MaxPause)
	assert.Equal(t, defaultSendTimeout, f.SendTimeout)
	assert.Equal(t, defaultQueueLifetime, f.QueueLifetime)
	assert.Equal(t, DefaultProtocolDir, f.ProtocolDir)
	assert.Equal(t, "info", f.LogLevel)
}

func TestSetDefaultsPreservesExplicitZeroPauseTime(t *testing.T) {
	zero := 0
	f := File{PauseTime: &zero}
	f.SetDefaults()
	require.NotNil(t, f.PauseTime)
	assert.Equal(t, 0, *f.PauseTime)
}
