package process

import (
	"bytes"
	"sync"
)

// boundedOutput collects stdout and stderr against one shared byte ceiling.
// Once the ceiling is crossed further writes are discarded and exceeded is
// closed exactly once.
type boundedOutput struct {
	mu       sync.Mutex
	limit    int64
	total    int64
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	over     bool
	exceeded chan struct{}
}

func newBoundedOutput(limit int64) *boundedOutput {
	return &boundedOutput{limit: limit, exceeded: make(chan struct{})}
}

type streamWriter struct {
	out *boundedOutput
	buf *bytes.Buffer
}

// Write never returns an error: the os/exec copier must keep draining the pipe
// until the process is killed.
func (w streamWriter) Write(p []byte) (int, error) {
	o := w.out
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.over {
		return len(p), nil
	}
	remaining := o.limit - o.total
	if int64(len(p)) > remaining {
		w.buf.Write(p[:remaining])
		o.total = o.limit
		o.over = true
		close(o.exceeded)
		return len(p), nil
	}
	w.buf.Write(p)
	o.total += int64(len(p))
	return len(p), nil
}

func (o *boundedOutput) stdoutWriter() streamWriter { return streamWriter{out: o, buf: &o.stdout} }
func (o *boundedOutput) stderrWriter() streamWriter { return streamWriter{out: o, buf: &o.stderr} }

func (o *boundedOutput) isExceeded() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.over
}

func (o *boundedOutput) snapshot() (stdout, stderr string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stdout.String(), o.stderr.String()
}
