package process

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	xerrors "github.com/standardbeagle/xsearch/internal/errors"
)

// TestMain ensures no wait or escalation goroutine outlives its child process
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// signalRecorder wraps the real signal delivery and remembers what was sent
type signalRecorder struct {
	mu      sync.Mutex
	signals []os.Signal
}

func (r *signalRecorder) hook(p *os.Process, sig os.Signal) error {
	r.mu.Lock()
	r.signals = append(r.signals, sig)
	r.mu.Unlock()
	return signalGroup(p, sig)
}

func (r *signalRecorder) sent() []os.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]os.Signal(nil), r.signals...)
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func newTestSupervisor(rec *signalRecorder) *Supervisor {
	s := NewSupervisor(Options{}, zerolog.Nop())
	if rec != nil {
		s.signal = rec.hook
	}
	return s
}

func TestRun_NaturalExit(t *testing.T) {
	requireShell(t)
	rec := &signalRecorder{}
	s := newTestSupervisor(rec)

	res := s.Run(context.Background(), "sh", []string{"-c", "printf hello; printf oops >&2; exit 3"}, Options{})

	assert.NoError(t, res.Err)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 3, *res.ExitCode)
	assert.False(t, res.Success)
	assert.False(t, res.TimedOut)
	assert.False(t, res.OutputLimitExceeded)
	assert.Equal(t, "hello", res.Stdout)
	assert.Equal(t, "oops", res.Stderr)
	assert.Empty(t, rec.sent())
}

func TestRun_Success(t *testing.T) {
	requireShell(t)
	res := newTestSupervisor(nil).Run(context.Background(), "sh", []string{"-c", "printf ok"}, Options{})
	assert.True(t, res.Success)
	assert.Equal(t, "ok", res.Stdout)
}

func TestRun_SpawnError(t *testing.T) {
	res := newTestSupervisor(nil).Run(context.Background(), "/nonexistent/xsearch-backend", nil, Options{})

	require.Error(t, res.Err)
	assert.Equal(t, xerrors.ErrorTypeSpawn, xerrors.TypeOf(res.Err))
	assert.Nil(t, res.ExitCode)
	assert.False(t, res.Success)
	assert.False(t, res.TimedOut)
	assert.False(t, res.OutputLimitExceeded)
	<-res.settled
}

func TestRun_TimeoutEscalatesToKill(t *testing.T) {
	requireShell(t)
	rec := &signalRecorder{}
	s := newTestSupervisor(rec)

	start := time.Now()
	res := s.Run(context.Background(), "sh", []string{"-c", `trap "" TERM; exec sleep 10`}, Options{
		Timeout:   200 * time.Millisecond,
		KillGrace: 300 * time.Millisecond,
	})
	resolved := time.Since(start)

	assert.True(t, res.TimedOut)
	assert.False(t, res.OutputLimitExceeded)
	assert.Equal(t, xerrors.ErrorTypeTimeout, xerrors.TypeOf(res.Err))
	assert.Less(t, resolved, 2*time.Second, "caller must not wait for the grace period")
	assert.Equal(t, []os.Signal{syscall.SIGTERM}, rec.sent(), "only SIGTERM before resolution")

	select {
	case <-res.settled:
	case <-time.After(5 * time.Second):
		t.Fatal("child was never reaped")
	}
	assert.Equal(t, []os.Signal{syscall.SIGTERM, os.Kill}, rec.sent())
}

func TestRun_TimeoutHonoredTermNoKill(t *testing.T) {
	requireShell(t)
	rec := &signalRecorder{}
	s := newTestSupervisor(rec)

	res := s.Run(context.Background(), "sleep", []string{"10"}, Options{
		Timeout:   100 * time.Millisecond,
		KillGrace: 3 * time.Second,
	})
	assert.True(t, res.TimedOut)

	<-res.settled
	// give a stray grace timer the chance to misfire
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []os.Signal{syscall.SIGTERM}, rec.sent())
}

func TestRun_OutputLimit(t *testing.T) {
	requireShell(t)
	rec := &signalRecorder{}
	s := newTestSupervisor(rec)

	res := s.Run(context.Background(), "sh", []string{"-c", "while :; do printf 0123456789; done"}, Options{
		MaxOutputBytes: 1000,
		Timeout:        10 * time.Second,
	})

	assert.True(t, res.OutputLimitExceeded)
	assert.False(t, res.TimedOut)
	assert.Equal(t, xerrors.ErrorTypeOutputLimit, xerrors.TypeOf(res.Err))
	assert.NotEmpty(t, res.Stdout, "partial output is kept")
	assert.LessOrEqual(t, len(res.Stdout)+len(res.Stderr), 1000)
	assert.Equal(t, []os.Signal{os.Kill}, rec.sent(), "no grace period for the output ceiling")
	<-res.settled
}

func TestRun_ContextCanceled(t *testing.T) {
	rec := &signalRecorder{}
	s := newTestSupervisor(rec)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	res := s.Run(ctx, "sleep", []string{"10"}, Options{KillGrace: time.Second})
	if xerrors.TypeOf(res.Err) == xerrors.ErrorTypeSpawn {
		t.Skip("sleep not available")
	}

	assert.Equal(t, xerrors.ErrorTypeCanceled, xerrors.TypeOf(res.Err))
	assert.False(t, res.TimedOut)
	assert.ErrorIs(t, res.Err, context.Canceled)
	<-res.settled
	assert.Contains(t, rec.sent(), os.Signal(syscall.SIGTERM))
}

func TestRun_EnvironmentIsFiltered(t *testing.T) {
	requireShell(t)
	t.Setenv("XSEARCH_TEST_SECRET", "hunter2")

	s := newTestSupervisor(nil)
	res := s.Run(context.Background(), "sh", []string{"-c", `printf "%s|%s|%s" "$XSEARCH_TEST_SECRET" "$INJECTED" "$LANG"`}, Options{
		Env: map[string]string{"INJECTED": "x", "LANG": "C"},
	})
	assert.Equal(t, "||C", res.Stdout)

	res = s.Run(context.Background(), "sh", []string{"-c", `printf "%s" "$INJECTED"`}, Options{
		Env:          map[string]string{"INJECTED": "x"},
		AllowEnvVars: []string{"INJECTED"},
	})
	assert.Equal(t, "x", res.Stdout)
}

func TestBuildEnv(t *testing.T) {
	base := []string{"PATH=/bin", "AWS_SECRET_ACCESS_KEY=s", "HOME=/home/u", "malformed", "FOO=bar"}

	env := BuildEnv(base, map[string]string{"TOKEN": "t", "TMPDIR": "/tmp/x", "FOO": "baz"}, []string{"FOO"})

	assert.Equal(t, []string{"FOO=baz", "HOME=/home/u", "PATH=/bin", "TMPDIR=/tmp/x"}, env)
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "AWS_"), kv)
		assert.False(t, strings.HasPrefix(kv, "TOKEN"), kv)
	}
}

func TestCheck(t *testing.T) {
	requireShell(t)
	s := newTestSupervisor(nil)
	ctx := context.Background()

	assert.True(t, s.Check(ctx, "sh", []string{"-c", "exit 0"}, Options{}))
	assert.False(t, s.Check(ctx, "sh", []string{"-c", "exit 1"}, Options{}))
	assert.False(t, s.Check(ctx, "/nonexistent/xsearch-backend", nil, Options{}))
}

func TestOutput(t *testing.T) {
	requireShell(t)
	s := newTestSupervisor(nil)
	ctx := context.Background()

	v, err := s.Output(ctx, "sh", []string{"-c", `printf "  ripgrep 14.1.0  \n"`}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ripgrep 14.1.0", v)

	_, err = s.Output(ctx, "sh", []string{"-c", "printf bad >&2; exit 2"}, Options{})
	require.Error(t, err)
	assert.Equal(t, xerrors.ErrorTypeBackend, xerrors.TypeOf(err))
	assert.Contains(t, err.Error(), "bad")
}

func TestOutput_SmallCeiling(t *testing.T) {
	requireShell(t)
	s := newTestSupervisor(nil)

	_, err := s.Output(context.Background(), "sh", []string{"-c", "head -c 70000 /dev/zero"}, Options{})
	require.Error(t, err)
	assert.Equal(t, xerrors.ErrorTypeOutputLimit, xerrors.TypeOf(err))
}

func TestBoundedOutputNeverBuffersPastLimit(t *testing.T) {
	o := newBoundedOutput(8)
	w := o.stdoutWriter()

	n, err := w.Write([]byte("12345"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, o.isExceeded())

	n, err = o.stderrWriter().Write([]byte("abcdef"))
	assert.NoError(t, err)
	assert.Equal(t, 6, n, "writes report full length so the copier keeps draining")
	assert.True(t, o.isExceeded())

	_, _ = w.Write([]byte("more"))
	stdout, stderr := o.snapshot()
	assert.Equal(t, "12345", stdout)
	assert.Equal(t, "abc", stderr)

	select {
	case <-o.exceeded:
	default:
		t.Fatal("exceeded channel not closed")
	}
}
