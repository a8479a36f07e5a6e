package session

import "sync"

// Progress reports transferred bytes for a task. It is created with the
// task, updated by the manager and safe to read from any goroutine.
//
// Completed never decreases, and once Total is known Completed never
// exceeds it.
type Progress struct {
	mu        sync.RWMutex
	total     int64
	completed int64
}

func newProgress() *Progress {
	return &Progress{total: -1}
}

// Completed returns the number of bytes transferred so far
func (p *Progress) Completed() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.completed
}

// Total returns the expected byte count, or -1 when unknown
func (p *Progress) Total() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}

// Snapshot returns completed and total read together
func (p *Progress) Snapshot() (completed, total int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.completed, p.total
}

// Fraction returns completed/total in [0, 1], or 0 when total is unknown
func (p *Progress) Fraction() float64 {
	completed, total := p.Snapshot()
	if total <= 0 {
		if total == 0 {
			return 1
		}
		return 0
	}
	return float64(completed) / float64(total)
}

// setTotal records the expected size; negative means unknown. A total
// below what was already transferred is raised to it.
func (p *Progress) setTotal(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if total < 0 {
		p.total = -1
		return
	}
	if total < p.completed {
		total = p.completed
	}
	p.total = total
}

// add advances completed by n and returns the new values
func (p *Progress) add(n int64) (completed, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n > 0 {
		p.completed += n
		if p.total >= 0 && p.completed > p.total {
			p.total = p.completed
		}
	}
	return p.completed, p.total
}

// finish marks the transfer complete; an unknown total becomes completed
func (p *Progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total < 0 {
		p.total = p.completed
	}
}
