package session

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/config"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/netkit/internal/neterr"
	"github.com/GriffinCanCode/netkit/internal/reachability"
	"github.com/GriffinCanCode/netkit/internal/serializer"
	"github.com/GriffinCanCode/netkit/internal/shared/id"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	opTask     = "session.task"
	opData     = "session.data"
	opUpload   = "session.upload"
	opDownload = "session.download"
	opRequest  = "session.request"

	defaultTimeout = 60 * time.Second
)

var (
	ErrNilRequest   = errors.New("request required")
	ErrInvalidated  = errors.New("session manager invalidated")
	ErrNotReachable = errors.New("network not reachable")
)

// Options configures a Manager. The zero value is usable.
type Options struct {
	// Timeout bounds the wait for response headers; zero means 60s. Body
	// transfer is not limited, so long or suspended downloads survive it.
	// Use HTTPRequestSerializer.SetTimeout for a whole-task deadline.
	Timeout             time.Duration
	MaxIdleConnsPerHost int

	// DownloadDir is used by the default download destination; empty
	// means DefaultDownloadDir
	DownloadDir string
	// TempDir holds in-progress downloads; empty means os.TempDir
	TempDir string

	// RequestsPerSecond limits task starts; zero disables limiting
	RequestsPerSecond float64
	Burst             int

	// Breaker guards the transport; nil disables it
	Breaker *resilience.Breaker

	// Reachability is consulted before each transfer when
	// FailFastWhenOffline is set
	Reachability        *reachability.Monitor
	FailFastWhenOffline bool

	RequestSerializer  serializer.RequestSerializer
	ResponseSerializer serializer.ResponseSerializer

	Hooks   Hooks
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	// Tracer gives every task a span whose ids are sent as request headers
	Tracer *tracing.Tracer
	IDs    *id.Generator
}

// Manager owns one HTTP session and the tasks running on it. Every task
// it creates delivers exactly one completion.
type Manager struct {
	client   *resty.Client
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	registry *registry
	ids      *id.Generator
	hooks    Hooks
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	// set when NewFromConfig created the tracer; Invalidate closes it
	ownsTracer bool

	reach    *reachability.Monitor
	failFast bool

	downloadDir string
	tempDir     string

	mu                 sync.RWMutex
	requestSerializer  serializer.RequestSerializer
	responseSerializer serializer.ResponseSerializer
	invalidated        bool
}

// New creates a manager. Requests use the HTTP request serializer and
// responses the JSON response serializer unless Options says otherwise.
func New(opts Options) *Manager {
	logger := logging.OrNop(opts.Logger)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// Pooled transport only; the manager never retries
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil
	transport := retryClient.HTTPClient.Transport

	client := resty.New().
		SetRetryCount(0).
		SetLogger(logger.Sugar()).
		SetPreRequestHook(applyContentLength)

	if t, ok := transport.(*http.Transport); ok {
		if opts.MaxIdleConnsPerHost > 0 {
			t.MaxIdleConnsPerHost = opts.MaxIdleConnsPerHost
		}
		t.ResponseHeaderTimeout = timeout
		client.SetTransport(t)
	} else {
		client.SetTransport(transport).SetTimeout(timeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	ids := opts.IDs
	if ids == nil {
		ids = id.Default()
	}

	var rs serializer.RequestSerializer = serializer.NewHTTPRequestSerializer()
	if opts.RequestSerializer != nil {
		rs = opts.RequestSerializer
	}
	var respS serializer.ResponseSerializer = serializer.NewJSONResponseSerializer()
	if opts.ResponseSerializer != nil {
		respS = opts.ResponseSerializer
	}

	return &Manager{
		client:             client,
		limiter:            limiter,
		breaker:            opts.Breaker,
		registry:           newRegistry(),
		ids:                ids,
		hooks:              opts.Hooks,
		logger:             logger,
		metrics:            opts.Metrics,
		tracer:             opts.Tracer,
		reach:              opts.Reachability,
		failFast:           opts.FailFastWhenOffline,
		downloadDir:        opts.DownloadDir,
		tempDir:            opts.TempDir,
		requestSerializer:  rs,
		responseSerializer: respS,
	}
}

// NewFromConfig creates a manager from configuration. A breaker is
// installed when enabled, a reachability monitor when a host is set and a
// tracer when tracing is on; the monitor is not started.
func NewFromConfig(cfg *config.Config, logger *zap.Logger, metrics *monitoring.Metrics) (*Manager, error) {
	logger = logging.OrNop(logger)

	rs := serializer.NewHTTPRequestSerializer()
	if cfg.Session.UserAgent != "" {
		rs.SetHeader("User-Agent", cfg.Session.UserAgent)
	}

	var breaker *resilience.Breaker
	if cfg.Breaker.Enabled {
		breaker = NewBreaker(cfg.Breaker, logger)
	}

	var monitor *reachability.Monitor
	if cfg.Reachability.Host != "" {
		var err error
		monitor, err = reachability.FromConfig(cfg.Reachability, logger)
		if err != nil {
			return nil, err
		}
	}

	var tracer *tracing.Tracer
	if cfg.Logging.Trace {
		tracer = tracing.New("netkit", logger)
	}

	m := New(Options{
		Timeout:             cfg.Session.Timeout.Std(),
		MaxIdleConnsPerHost: cfg.Session.MaxIdleConnsPerHost,
		DownloadDir:         cfg.Session.DownloadDir,
		RequestsPerSecond:   cfg.RateLimit.RequestsPerSecond,
		Burst:               cfg.RateLimit.Burst,
		Breaker:             breaker,
		Reachability:        monitor,
		FailFastWhenOffline: cfg.Session.FailFastWhenOffline,
		RequestSerializer:   rs,
		Logger:              logger,
		Metrics:             metrics,
		Tracer:              tracer,
	})
	m.ownsTracer = tracer != nil
	return m, nil
}

// NewBreaker creates the transport circuit breaker. Cancellations do not
// count as failures.
func NewBreaker(cfg config.BreakerConfig, logger *zap.Logger) *resilience.Breaker {
	logger = logging.OrNop(logger)

	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 10
	}

	return resilience.New("netkit-transport", resilience.Settings{
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout.Std(),
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
}

// DataTask creates a task whose response body is collected in memory and
// passed through the response serializer. With a nil completion the task
// stays suspended and reports only through Hooks.TaskDidComplete.
func (m *Manager) DataTask(req *http.Request, completion DataCompletion) (*Task, error) {
	t, err := m.newTask(KindData, req, nil)
	if err != nil {
		return nil, err
	}
	d := &delegate{task: t, serializer: m.ResponseSerializer(), dataCompletion: completion}
	return m.start(d)
}

// UploadTask creates a task sending body as the request body. The
// response is handled as for DataTask.
func (m *Manager) UploadTask(req *http.Request, body []byte, completion DataCompletion) (*Task, error) {
	t, err := m.newTask(KindUpload, req, body)
	if err != nil {
		return nil, err
	}
	t.progress.setTotal(int64(len(body)))
	d := &delegate{task: t, serializer: m.ResponseSerializer(), dataCompletion: completion}
	return m.start(d)
}

// DownloadTask creates a task streaming the response body to a temporary
// file, which is moved to the path chosen by destination once the
// transfer succeeds. A nil destination uses SuggestedDownloadDestination.
func (m *Manager) DownloadTask(req *http.Request, destination Destination, completion DownloadCompletion) (*Task, error) {
	t, err := m.newTask(KindDownload, req, nil)
	if err != nil {
		return nil, err
	}
	if destination == nil {
		destination = SuggestedDownloadDestination(m.downloadDir)
	}
	d := &delegate{
		task:               t,
		serializer:         m.ResponseSerializer(),
		destination:        destination,
		downloadCompletion: completion,
	}
	return m.start(d)
}

// DownloadTaskWithURL creates a GET download task for rawURL
func (m *Manager) DownloadTaskWithURL(rawURL string, destination Destination, completion DownloadCompletion) (*Task, error) {
	req, err := m.NewRequest(context.Background(), http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return m.DownloadTask(req, destination, completion)
}

// NewRequest builds a request with the current request serializer
func (m *Manager) NewRequest(ctx context.Context, method, rawURL string, params any) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, neterr.Wrap(neterr.KindSerialization, opRequest, "invalid request", err)
	}
	return m.RequestSerializer().SerializeRequest(req, params)
}

func (m *Manager) newTask(kind Kind, req *http.Request, body []byte) (*Task, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	m.mu.RLock()
	invalidated := m.invalidated
	m.mu.RUnlock()
	if invalidated {
		return nil, ErrInvalidated
	}
	t := newTask(m, kind, req, body)
	if m.tracer != nil {
		t.span, _ = m.tracer.StartSpan(t.ctx, "session."+kind.String())
		t.span.SetTag("task_id", t.id.String())
		t.span.SetTag("method", req.Method)
		t.span.SetTag("url", req.URL.Redacted())
	}
	return t, nil
}

func (m *Manager) start(d *delegate) (*Task, error) {
	t := d.task

	// checked and registered under one read lock so CancelAll in
	// Invalidate sees every task that got past the check
	m.mu.RLock()
	if m.invalidated {
		m.mu.RUnlock()
		t.cancel()
		return nil, ErrInvalidated
	}
	err := m.registry.register(d)
	m.mu.RUnlock()
	if err != nil {
		t.cancel()
		return nil, err
	}
	m.metrics.RecordTaskCreated(t.kind.String())
	m.logger.Debug("Task created",
		zap.String("task_id", t.id.String()),
		zap.Stringer("kind", t.kind),
		zap.String("method", t.req.Method),
		zap.String("url", t.req.URL.Redacted()))

	if d.hasCompletion() {
		t.Resume()
	}
	return t, nil
}

// Tasks returns every tracked task in creation order
func (m *Manager) Tasks() []*Task {
	return m.tasks(func(Kind) bool { return true })
}

// DataTasks returns tracked data tasks
func (m *Manager) DataTasks() []*Task {
	return m.tasks(func(k Kind) bool { return k == KindData })
}

// UploadTasks returns tracked upload tasks
func (m *Manager) UploadTasks() []*Task {
	return m.tasks(func(k Kind) bool { return k == KindUpload })
}

// DownloadTasks returns tracked download tasks
func (m *Manager) DownloadTasks() []*Task {
	return m.tasks(func(k Kind) bool { return k == KindDownload })
}

func (m *Manager) tasks(match func(Kind) bool) []*Task {
	records := m.registry.snapshot()
	out := make([]*Task, 0, len(records))
	for _, d := range records {
		if match(d.kind()) {
			out = append(out, d.task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// CancelAll cancels every tracked task without waiting for completions
func (m *Manager) CancelAll() {
	for _, d := range m.registry.snapshot() {
		d.task.Cancel()
	}
}

// Invalidate cancels all tasks, refuses new ones and closes idle
// connections
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.invalidated = true
	m.mu.Unlock()

	m.CancelAll()
	m.client.GetClient().CloseIdleConnections()
	if m.ownsTracer {
		m.tracer.Close()
	}
	m.logger.Debug("Session invalidated")
}

// RequestSerializer returns the serializer used by NewRequest
func (m *Manager) RequestSerializer() serializer.RequestSerializer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestSerializer
}

// SetRequestSerializer replaces the request serializer
func (m *Manager) SetRequestSerializer(s serializer.RequestSerializer) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestSerializer = s
}

// ResponseSerializer returns the serializer given to new tasks
func (m *Manager) ResponseSerializer() serializer.ResponseSerializer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.responseSerializer
}

// SetResponseSerializer replaces the response serializer. Tasks already
// created keep the one they were created with.
func (m *Manager) SetResponseSerializer(s serializer.ResponseSerializer) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseSerializer = s
}

// Reachability returns the monitor passed in Options, or nil
func (m *Manager) Reachability() *reachability.Monitor {
	return m.reach
}

// Metrics returns the metrics passed in Options, or nil
func (m *Manager) Metrics() *monitoring.Metrics {
	return m.metrics
}
