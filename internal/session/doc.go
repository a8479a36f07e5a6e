/*
Package session runs HTTP transfers as tasks and delivers exactly one
completion per task.

# Overview

A Manager owns one HTTP session (resty over a pooled transport) and a
registry of live tasks. Each task has a delegate record holding its
buffered body or temporary download file, its progress and its
completion. When a task finishes, the record is taken out of the
registry, the outcome is finalized and the completion runs once:

  - transport failures are delivered as they are
  - data and upload bodies go through the response serializer
  - downloads are validated and moved to their destination

Serializer, filesystem and transport failures all arrive through the same
error argument; inspect it with neterr.KindOf or errors.Is.

# Usage

	m := session.New(session.Options{Logger: logger})

	req, _ := m.NewRequest(ctx, http.MethodGet, "https://api.example.com/items", nil)
	task, err := m.DataTask(req, func(resp *http.Response, value any, err error) {
		if errors.Is(err, neterr.KindValidation) {
			// non-2xx status
		}
	})

	task.Cancel() // completion still fires, with a cancellation error

# Concurrency

Factories never block on I/O. Completions, hooks and progress updates run
on the task's own goroutine; for a single task, data and progress
callbacks always precede the completion.
*/
package session
