// Package process spawns backend binaries from an argument vector and enforces
// timeout and output ceilings through signal escalation.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	xerrors "github.com/standardbeagle/xsearch/internal/errors"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxOutputBytes = 10 * 1024 * 1024
	DefaultKillGrace      = 5 * time.Second

	// OutputMaxBytes is the ceiling used by Output for single short values
	OutputMaxBytes = 64 * 1024
)

// Options bound one invocation. Zero fields take the supervisor's defaults.
type Options struct {
	Timeout        time.Duration
	Dir            string
	Env            map[string]string
	AllowEnvVars   []string
	MaxOutputBytes int64
	KillGrace      time.Duration
}

// Result is the single resolution of one invocation.
// Exactly one of natural exit, TimedOut, OutputLimitExceeded or a spawn/cancel Err is set.
type Result struct {
	Command             string
	Stdout              string
	Stderr              string
	ExitCode            *int
	Success             bool
	TimedOut            bool
	OutputLimitExceeded bool
	Err                 error
	Duration            time.Duration

	// closed once the child has been reaped
	settled <-chan struct{}
}

// State is the lifecycle position of a supervised process
type State int

const (
	StateRunning State = iota
	StateTermSent
	StateKillSent
	StateExited
	StateSpawnFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTermSent:
		return "sigterm_sent"
	case StateKillSent:
		return "sigkill_sent"
	case StateExited:
		return "exited"
	case StateSpawnFailed:
		return "spawn_failed"
	default:
		return "unknown"
	}
}

// Supervisor runs processes. It holds no per-invocation state and is safe for
// concurrent use.
type Supervisor struct {
	defaults Options
	logger   zerolog.Logger

	// signal delivers sig to p; replaced in tests to observe escalation
	signal func(p *os.Process, sig os.Signal) error
}

// NewSupervisor creates a supervisor. Zero fields in defaults fall back to
// DefaultTimeout, DefaultMaxOutputBytes and DefaultKillGrace.
func NewSupervisor(defaults Options, logger zerolog.Logger) *Supervisor {
	if defaults.Timeout <= 0 {
		defaults.Timeout = DefaultTimeout
	}
	if defaults.MaxOutputBytes <= 0 {
		defaults.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if defaults.KillGrace <= 0 {
		defaults.KillGrace = DefaultKillGrace
	}
	return &Supervisor{
		defaults: defaults,
		logger:   logger,
		signal:   signalGroup,
	}
}

func (s *Supervisor) merge(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = s.defaults.Timeout
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = s.defaults.MaxOutputBytes
	}
	if opts.KillGrace <= 0 {
		opts.KillGrace = s.defaults.KillGrace
	}
	if opts.Dir == "" {
		opts.Dir = s.defaults.Dir
	}
	opts.AllowEnvVars = append(append([]string(nil), s.defaults.AllowEnvVars...), opts.AllowEnvVars...)
	return opts
}

// invocation tracks one child through its state machine
type invocation struct {
	sup   *Supervisor
	cmd   *exec.Cmd
	log   zerolog.Logger
	mu    sync.Mutex
	state State
}

func (inv *invocation) transition(to State) {
	inv.mu.Lock()
	from := inv.state
	inv.state = to
	inv.mu.Unlock()
	inv.log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("process state")
}

func (inv *invocation) send(sig os.Signal) error {
	err := inv.sup.signal(inv.cmd.Process, sig)
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		inv.log.Warn().Err(err).Str("signal", sig.String()).Msg("signal delivery failed")
	}
	return err
}

// terminate sends SIGTERM, or SIGKILL where SIGTERM cannot be delivered (Windows)
func (inv *invocation) terminate() {
	if err := inv.send(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		inv.kill()
		return
	}
	inv.transition(StateTermSent)
}

func (inv *invocation) kill() {
	_ = inv.send(os.Kill)
	inv.transition(StateKillSent)
}

// escalate waits out the grace period after SIGTERM and kills a child that is
// still alive. It returns as soon as the child has been reaped.
func (inv *invocation) escalate(settled <-chan struct{}, grace time.Duration) {
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-settled:
	case <-timer.C:
		inv.log.Debug().Dur("grace", grace).Msg("process ignored SIGTERM")
		inv.kill()
	}
}

// Run spawns name with args and blocks until exactly one terminal condition
// resolves it: natural exit, timeout, output ceiling, spawn failure or ctx
// cancellation. It never returns nil.
//
// On timeout or cancellation the caller is released right after SIGTERM; a
// background watcher sends SIGKILL if the child outlives the grace period. On
// the output ceiling SIGKILL is sent at once.
func (s *Supervisor) Run(ctx context.Context, name string, args []string, opts Options) *Result {
	opts = s.merge(opts)
	start := time.Now()
	commandLine := strings.TrimSpace(name + " " + strings.Join(args, " "))

	out := newBoundedOutput(opts.MaxOutputBytes)
	cmd := exec.Command(name, args...)
	cmd.Dir = opts.Dir
	cmd.Env = defaultEnv(opts.Env, opts.AllowEnvVars)
	cmd.Stdout = out.stdoutWriter()
	cmd.Stderr = out.stderrWriter()
	setProcessGroup(cmd)
	// bounds pipe draining when a grandchild keeps stdout open after exit
	cmd.WaitDelay = opts.KillGrace

	inv := &invocation{
		sup: s,
		cmd: cmd,
		log: s.logger.With().Str("command", name).Logger(),
	}

	if err := cmd.Start(); err != nil {
		inv.transition(StateSpawnFailed)
		settled := make(chan struct{})
		close(settled)
		return &Result{
			Command:  name,
			Err:      xerrors.NewProcessError(xerrors.ErrorTypeSpawn, name, err).WithOutput(nil, "", time.Since(start)),
			Duration: time.Since(start),
			settled:  settled,
		}
	}
	inv.log = inv.log.With().Int("pid", cmd.Process.Pid).Logger()
	inv.log.Debug().Str("argv", commandLine).Dur("timeout", opts.Timeout).Int64("max_output", opts.MaxOutputBytes).Msg("process started")

	exitCh := make(chan error, 1)
	settled := make(chan struct{})
	go func() {
		exitCh <- cmd.Wait()
		close(settled)
	}()

	timeout := time.NewTimer(opts.Timeout)
	defer timeout.Stop()

	res := &Result{Command: name, settled: settled}
	finish := func() *Result {
		res.Stdout, res.Stderr = out.snapshot()
		res.Duration = time.Since(start)
		if pe, ok := res.Err.(*xerrors.ProcessError); ok {
			pe.WithOutput(res.ExitCode, res.Stderr, res.Duration)
		}
		return res
	}

	select {
	case waitErr := <-exitCh:
		inv.transition(StateExited)
		if out.isExceeded() {
			// the child exited on its own after writing past the ceiling
			res.OutputLimitExceeded = true
			res.Err = xerrors.NewProcessError(xerrors.ErrorTypeOutputLimit, name, nil).
				WithLimit(fmt.Sprintf("output %d bytes", opts.MaxOutputBytes))
			return finish()
		}
		if errors.Is(waitErr, exec.ErrWaitDelay) {
			inv.log.Warn().Msg("output pipes stayed open after exit")
		}
		if state := cmd.ProcessState; state != nil {
			if code := state.ExitCode(); code >= 0 {
				res.ExitCode = &code
				res.Success = code == 0
			}
		}
		inv.log.Debug().Interface("exit_code", res.ExitCode).Dur("elapsed", time.Since(start)).Msg("process exited")
		return finish()

	case <-out.exceeded:
		inv.log.Debug().Int64("limit", opts.MaxOutputBytes).Msg("output ceiling crossed")
		inv.kill()
		res.OutputLimitExceeded = true
		res.Err = xerrors.NewProcessError(xerrors.ErrorTypeOutputLimit, name, nil).
			WithLimit(fmt.Sprintf("output %d bytes", opts.MaxOutputBytes))
		return finish()

	case <-timeout.C:
		inv.log.Debug().Dur("timeout", opts.Timeout).Msg("process timed out")
		inv.terminate()
		go inv.escalate(settled, opts.KillGrace)
		res.TimedOut = true
		res.Err = xerrors.NewProcessError(xerrors.ErrorTypeTimeout, name, nil).
			WithLimit(fmt.Sprintf("timeout %s", opts.Timeout))
		return finish()

	case <-ctx.Done():
		inv.log.Debug().Err(ctx.Err()).Msg("process canceled")
		inv.terminate()
		go inv.escalate(settled, opts.KillGrace)
		res.Err = xerrors.NewProcessError(xerrors.ErrorTypeCanceled, name, ctx.Err())
		return finish()
	}
}

// Check reports whether the command ran to completion with exit code 0.
// Used for backend availability probes.
func (s *Supervisor) Check(ctx context.Context, name string, args []string, opts Options) bool {
	return s.Run(ctx, name, args, opts).Success
}

// Output runs a command expected to print a single short value and returns its
// trimmed stdout. The output ceiling defaults to OutputMaxBytes.
func (s *Supervisor) Output(ctx context.Context, name string, args []string, opts Options) (string, error) {
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = OutputMaxBytes
	}
	res := s.Run(ctx, name, args, opts)
	if res.Err != nil {
		return "", res.Err
	}
	if !res.Success {
		return "", xerrors.NewProcessError(xerrors.ErrorTypeBackend, name, nil).
			WithOutput(res.ExitCode, res.Stderr, res.Duration)
	}
	return strings.TrimSpace(res.Stdout), nil
}
