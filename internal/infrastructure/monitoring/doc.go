/*
Package monitoring provides Prometheus metrics for session tasks.

# Overview

Collectors are registered on a caller-supplied prometheus.Registerer so
several managers can coexist in one process (and in tests).

# Metrics

  - netkit_tasks_created_total{kind}
  - netkit_tasks_completed_total{kind,outcome}
  - netkit_tasks_active{kind}
  - netkit_task_duration_seconds{kind}
  - netkit_bytes_received_total{kind}
  - netkit_bytes_sent_total
  - netkit_task_errors_total{kind,error_kind}

# Usage

	reg := prometheus.NewRegistry()
	manager, err := session.New(session.Options{
		Metrics: monitoring.NewMetrics(reg),
	})

	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
*/
package monitoring
