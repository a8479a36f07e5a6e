/*
Package tracing provides lightweight request tracing for session tasks.

# Overview

Each task started by a manager with a Tracer gets a span. The span's ids
are sent with the request so a server can correlate its own logs, and the
finished span is logged through zap by a buffered collector.

# Usage

	tracer := tracing.New("netkit", logger)
	defer tracer.Close()

	manager := session.New(session.Options{Tracer: tracer})

	// continue a trace received elsewhere
	traceID, spanID := tracing.Extract(incoming.Header)
	ctx = tracing.ContextWithSpan(ctx, traceID, spanID)

# Trace Format

Traces use HTTP headers for propagation:
  - X-Trace-ID: identifier for the entire request flow
  - X-Span-ID: identifier for the current task
*/
package tracing
