package debug_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "keyscope/debug"
)

func TestThrottleLogsEveryNth(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	th := NewThrottle()

	for i := 0; i < 10; i++ {
		th.Log(l, 4, "corrupt", "corrupted packet")
	}
	// calls 1, 4 and 8
	assert.Equal(t, 3, strings.Count(buf.String(), "corrupted packet"))
	assert.Contains(t, buf.String(), "count=8")
}

func TestThrottleKeysAreIndependent(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	th := NewThrottle()

	th.Log(l, 100, "a", "first a")
	th.Log(l, 100, "b", "first b")
	th.Log(l, 100, "a", "second a")
	assert.Contains(t, buf.String(), "first a")
	assert.Contains(t, buf.String(), "first b")
	assert.NotContains(t, buf.String(), "second a")
}

func TestThrottlesDoNotShareCounts(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	first, second := NewThrottle(), NewThrottle()

	for i := 0; i < 3; i++ {
		first.Log(l, 100, "corrupted", "first run")
	}
	second.Log(l, 100, "corrupted", "second run")

	assert.Equal(t, 3, first.Count("corrupted"))
	assert.Equal(t, 1, second.Count("corrupted"))
	assert.Contains(t, buf.String(), "second run")
}

func TestEnableWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")
	l := New(&bytes.Buffer{})
	require.NoError(t, Enable(l, path))
	l.Warn("hello file")
	Disable(l)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}
