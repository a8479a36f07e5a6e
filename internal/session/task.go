package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/netkit/internal/neterr"
	"github.com/GriffinCanCode/netkit/internal/serializer"
	"github.com/GriffinCanCode/netkit/internal/shared/id"
)

// Kind identifies the task variant
type Kind int

const (
	KindData Kind = iota
	KindUpload
	KindDownload
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindUpload:
		return "upload"
	case KindDownload:
		return "download"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of a task
type State int

const (
	StateSuspended State = iota
	StateRunning
	StateCanceling
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateCanceling:
		return "canceling"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Task is a handle to one network operation. Tasks start suspended; a
// factory given a completion resumes the task before returning it.
type Task struct {
	id       id.TaskID
	kind     Kind
	req      *http.Request
	body     []byte
	progress *Progress
	created  time.Time
	manager  *Manager
	span     *tracing.Span

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	started bool
	resumed chan struct{}
	resp    *http.Response
	err     error
	done    chan struct{}
}

func newTask(m *Manager, kind Kind, req *http.Request, body []byte) *Task {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if d, ok := serializer.TimeoutFromContext(req.Context()); ok {
		ctx, cancel = context.WithTimeout(req.Context(), d)
	} else {
		ctx, cancel = context.WithCancel(req.Context())
	}
	return &Task{
		id:       m.ids.NewTaskID(),
		kind:     kind,
		req:      req,
		body:     body,
		progress: newProgress(),
		created:  time.Now(),
		manager:  m,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateSuspended,
		done:     make(chan struct{}),
	}
}

// ID returns the task identifier
func (t *Task) ID() id.TaskID { return t.id }

// Kind returns the task variant
func (t *Task) Kind() Kind { return t.kind }

// Request returns the original request
func (t *Task) Request() *http.Request { return t.req }

// Progress returns the transfer progress: bytes sent for uploads, bytes
// received otherwise
func (t *Task) Progress() *Progress { return t.progress }

// State returns the current state
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Response returns the response metadata once headers have arrived. Its
// body belongs to the manager and must not be read.
func (t *Task) Response() *http.Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resp
}

// Err returns the terminal error after completion
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed after the completion callback has returned
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task completes or ctx is done and returns the
// terminal error
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resume starts a suspended task, or lets a suspended transfer continue.
// It has no effect on canceling or completed tasks.
func (t *Task) Resume() {
	t.mu.Lock()
	if t.state != StateSuspended {
		t.mu.Unlock()
		return
	}
	t.state = StateRunning
	if t.started {
		close(t.resumed)
		t.resumed = nil
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	go t.manager.run(t)
}

// Suspend pauses a running task between body reads. Bytes already in
// flight are still delivered.
func (t *Task) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		return
	}
	t.state = StateSuspended
	t.resumed = make(chan struct{})
}

// Cancel moves the task to canceling; its completion fires once with a
// cancellation error. Canceling a completed task is a no-op.
func (t *Task) Cancel() {
	t.mu.Lock()
	if t.state == StateCanceling || t.state == StateCompleted {
		t.mu.Unlock()
		return
	}
	t.state = StateCanceling
	started := t.started
	if t.resumed != nil {
		close(t.resumed)
		t.resumed = nil
	}
	t.mu.Unlock()

	t.cancel()
	if !started {
		go t.manager.didComplete(t, nil, neterr.Canceled(opTask, context.Canceled))
	}
}

// waitResumed blocks while the task is suspended mid-transfer
func (t *Task) waitResumed() error {
	t.mu.Lock()
	gate := t.resumed
	t.mu.Unlock()

	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-t.ctx.Done():
		return t.ctx.Err()
	}
}

func (t *Task) canceling() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == StateCanceling
}

func (t *Task) setResponse(resp *http.Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resp = resp
}

func (t *Task) complete(resp *http.Response, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateCompleted
	if resp != nil {
		t.resp = resp
	}
	t.err = err
	if t.resumed != nil {
		close(t.resumed)
		t.resumed = nil
	}
	t.cancel()
}
