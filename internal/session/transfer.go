package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/netkit/internal/neterr"
	"github.com/GriffinCanCode/netkit/internal/reachability"
	"github.com/GriffinCanCode/netkit/internal/serializer"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const chunkSize = 32 * 1024

type contentLengthKey struct{}

// applyContentLength restores the length of streamed upload bodies, which
// resty hands to net/http as an opaque reader.
func applyContentLength(_ *resty.Client, req *http.Request) error {
	n, ok := req.Context().Value(contentLengthKey{}).(int64)
	if ok && n > 0 && req.Body != nil && req.Body != http.NoBody {
		req.ContentLength = n
	}
	return nil
}

type countingReader struct {
	r      io.Reader
	onRead func(n int)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.onRead(n)
	}
	return n, err
}

func (t *Task) op() string {
	switch t.kind {
	case KindUpload:
		return opUpload
	case KindDownload:
		return opDownload
	default:
		return opData
	}
}

// run drives a resumed task to its single completion
func (m *Manager) run(t *Task) {
	resp, err := m.execute(t)
	if err != nil {
		m.didComplete(t, nil, err)
		return
	}
	defer resp.Body.Close()

	if err := m.didReceiveResponse(t, resp); err != nil {
		m.didComplete(t, resp, err)
		return
	}
	m.didComplete(t, resp, m.readBody(t, resp))
}

func (m *Manager) execute(t *Task) (*http.Response, error) {
	op := t.op()

	if m.failFast && m.reach != nil && m.reach.Status() == reachability.StatusNotReachable {
		return nil, neterr.Wrap(neterr.KindTransport, op, "request not sent", ErrNotReachable)
	}
	if err := m.limiter.Wait(t.ctx); err != nil {
		return nil, neterr.Transport(op, err)
	}

	ctx := t.ctx
	r := m.client.R().SetDoNotParseResponse(true)
	r.Header = t.req.Header.Clone()
	if r.Header == nil {
		r.Header = http.Header{}
	}
	if t.span != nil {
		t.span.Inject(r.Header)
	}

	switch {
	case t.kind == KindUpload:
		if r.Header.Get("Content-Type") == "" && len(t.body) > 0 {
			r.Header.Set("Content-Type", mimetype.Detect(t.body).String())
		}
		ctx = context.WithValue(ctx, contentLengthKey{}, int64(len(t.body)))
		r.SetBody(&countingReader{
			r:      bytes.NewReader(t.body),
			onRead: func(n int) { m.didSendBodyData(t, n) },
		})
	default:
		body, err := requestBody(t.req)
		if err != nil {
			return nil, neterr.Wrap(neterr.KindSerialization, op, "read request body", err)
		}
		if body != nil {
			r.SetBody(body)
		}
	}
	r.SetContext(ctx)

	send := func() (*resty.Response, error) {
		return r.Execute(t.req.Method, t.req.URL.String())
	}

	var (
		resp *resty.Response
		err  error
	)
	if m.breaker != nil {
		resp, err = resilience.Do(m.breaker, send)
	} else {
		resp, err = send()
	}
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
			return nil, neterr.Wrap(neterr.KindTransport, op, "request not sent", err)
		}
		return nil, neterr.Transport(op, err)
	}
	return resp.RawResponse, nil
}

func requestBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	rc := req.Body
	if req.GetBody != nil {
		if fresh, err := req.GetBody(); err == nil {
			rc = fresh
		}
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (m *Manager) readBody(t *Task, resp *http.Response) error {
	op := t.op()
	buf := make([]byte, chunkSize)
	for {
		if err := t.waitResumed(); err != nil {
			return neterr.Transport(op, err)
		}
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if t.kind == KindDownload {
				if werr := m.didWriteData(t, buf[:n]); werr != nil {
					return werr
				}
			} else {
				m.didReceiveData(t, buf[:n])
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return neterr.Transport(op, err)
		}
	}
}

func (m *Manager) didReceiveResponse(t *Task, resp *http.Response) error {
	t.setResponse(resp)
	if t.kind != KindUpload {
		t.progress.setTotal(resp.ContentLength)
	}
	if t.kind != KindDownload {
		return nil
	}

	d, ok := m.registry.lookup(t.id)
	if !ok {
		return nil
	}
	f, err := os.CreateTemp(m.tempDir, "netkit-*.download")
	if err != nil {
		return neterr.Wrap(neterr.KindFilesystem, opDownload, "create temporary file", err)
	}
	d.file, d.tempPath = f, f.Name()
	return nil
}

func (m *Manager) didReceiveData(t *Task, data []byte) {
	d, ok := m.registry.lookup(t.id)
	if !ok {
		return
	}
	d.buf.Write(data)
	t.progress.add(int64(len(data)))
	m.metrics.RecordBytesReceived(t.kind.String(), len(data))

	if m.hooks.DataTaskDidReceiveData != nil {
		m.hooks.DataTaskDidReceiveData(t, data)
	}
}

func (m *Manager) didSendBodyData(t *Task, n int) {
	sent, total := t.progress.add(int64(n))
	m.metrics.RecordBytesSent(n)

	if m.hooks.TaskDidSendBodyData != nil {
		m.hooks.TaskDidSendBodyData(t, sent, total)
	}
}

func (m *Manager) didWriteData(t *Task, data []byte) error {
	d, ok := m.registry.lookup(t.id)
	if !ok || d.file == nil {
		return nil
	}
	if _, err := d.file.Write(data); err != nil {
		return neterr.Wrap(neterr.KindFilesystem, opDownload, "write temporary file", err)
	}
	written, total := t.progress.add(int64(len(data)))
	m.metrics.RecordBytesReceived(t.kind.String(), len(data))

	if m.hooks.DownloadTaskDidWriteData != nil {
		m.hooks.DownloadTaskDidWriteData(t, written, total)
	}
	return nil
}

// didComplete finalizes a task. The record is taken out of the registry
// first, so of several terminal notifications for one task only the
// first does anything.
func (m *Manager) didComplete(t *Task, resp *http.Response, err error) {
	d, ok := m.registry.take(t.id)
	if !ok {
		return
	}

	var value any
	switch {
	case t.canceling():
		if !neterr.IsCancellation(err) {
			cause := err
			if cause == nil {
				cause = context.Canceled
			}
			err = neterr.Canceled(t.op(), cause)
		}
	case err != nil:
	default:
		value, err = m.finalize(d, resp)
	}

	if t.kind == KindDownload {
		if rmErr := d.discardTemp(); rmErr != nil {
			m.logger.Warn("Failed to remove temporary download",
				zap.String("task_id", t.id.String()),
				zap.Error(rmErr))
		}
	}
	if err != nil {
		value = nil
	} else {
		t.progress.finish()
	}

	t.complete(resp, err)
	d.deliver(resp, value, err)
	if m.hooks.TaskDidComplete != nil {
		m.hooks.TaskDidComplete(t, resp, value, err)
	}
	close(t.done)

	m.recordCompletion(t, resp, err)
}

func (m *Manager) finalize(d *delegate, resp *http.Response) (any, error) {
	if d.kind() == KindDownload {
		return m.finishDownload(d, resp)
	}
	if d.serializer == nil {
		return d.buf.Bytes(), nil
	}
	value, err := d.serializer.Deserialize(resp, d.buf.Bytes())
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (m *Manager) finishDownload(d *delegate, resp *http.Response) (any, error) {
	if v, ok := d.serializer.(serializer.StatusValidator); ok {
		if err := v.ValidateStatus(resp); err != nil {
			return nil, err
		}
	}

	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		if err != nil {
			return nil, neterr.Wrap(neterr.KindFilesystem, opDownload, "close temporary file", err)
		}
	}
	if d.tempPath == "" {
		return nil, neterr.New(neterr.KindFilesystem, opDownload, "no downloaded file")
	}

	final, err := d.destination(d.tempPath, resp)
	if err != nil {
		return nil, neterr.Wrap(neterr.KindFilesystem, opDownload, "resolve destination", err)
	}
	if final == "" {
		return nil, neterr.New(neterr.KindFilesystem, opDownload, "empty destination")
	}
	if err := moveFile(d.tempPath, final); err != nil {
		return nil, neterr.Wrap(neterr.KindFilesystem, opDownload, "move downloaded file", err)
	}
	d.tempPath = ""
	return final, nil
}

func (m *Manager) recordCompletion(t *Task, resp *http.Response, err error) {
	duration := time.Since(t.created)
	fields := []zap.Field{
		zap.String("task_id", t.id.String()),
		zap.Stringer("kind", t.kind),
		zap.Duration("duration", duration),
	}
	if resp != nil {
		fields = append(fields, zap.Int("status", resp.StatusCode))
	}

	outcome, errorKind := monitoring.OutcomeSuccess, ""
	if err != nil {
		outcome = monitoring.OutcomeFailure
		if neterr.IsCancellation(err) {
			outcome = monitoring.OutcomeCancelled
		}
		errorKind = neterr.KindOf(err).String()
		fields = append(fields, zap.String("error_kind", errorKind), zap.Error(err))
	}
	m.metrics.RecordTaskCompleted(t.kind.String(), outcome, errorKind, duration)
	m.logger.Debug("Task completed", fields...)

	if t.span != nil {
		if resp != nil {
			t.span.SetStatus(resp.StatusCode)
		}
		t.span.SetError(err)
		t.span.Finish()
		m.tracer.Submit(t.span)
	}
}
