//go:build linux

package process

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alive reports whether pid exists and is not a zombie
func alive(pid int) bool {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return false
	}
	// the state letter follows the parenthesised command name
	s := string(data)
	i := strings.LastIndexByte(s, ')')
	return i < 0 || i+2 >= len(s) || s[i+2] != 'Z'
}

func TestRun_TimeoutSignalsProcessGroup(t *testing.T) {
	requireShell(t)
	s := newTestSupervisor(nil)

	res := s.Run(context.Background(), "sh", []string{"-c", "sleep 30 & echo $!; wait"}, Options{
		Timeout:   300 * time.Millisecond,
		KillGrace: 300 * time.Millisecond,
	})
	require.True(t, res.TimedOut)

	select {
	case <-res.settled:
	case <-time.After(5 * time.Second):
		t.Fatal("child was never reaped")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	require.NoError(t, err, "stdout: %q", res.Stdout)
	assert.Eventually(t, func() bool { return !alive(pid) }, 2*time.Second, 20*time.Millisecond,
		"background sleep outlived its shell")
}
