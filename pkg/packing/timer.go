package packing

import (
	"sync/atomic"
	"time"
)

// Timer carries the master time budget and the atomic end flag shared by all
// workers of an Optimize run. Workers poll NeedsToEnd in hot loops and
// between tree-search levels; any worker that proves optimality calls SetEnd.
//
// A Timer can be linked to additional end flags (AddEndFlag) so that a
// subproblem run stops as soon as its parent algorithm is done.
type Timer struct {
	start     time.Time
	timeLimit time.Duration // 0 means no limit
	end       *atomic.Bool
	extra     []*atomic.Bool
}

// NewTimer starts a timer with the given wall-clock budget. A zero limit
// means no limit.
func NewTimer(limit time.Duration) *Timer {
	return &Timer{
		start:     time.Now(),
		timeLimit: limit,
		end:       &atomic.Bool{},
	}
}

// AddEndFlag returns a timer sharing this timer's budget and end flag which
// additionally trips when flag is set.
func (t *Timer) AddEndFlag(flag *atomic.Bool) *Timer {
	extra := make([]*atomic.Bool, len(t.extra), len(t.extra)+1)
	copy(extra, t.extra)
	return &Timer{
		start:     t.start,
		timeLimit: t.timeLimit,
		end:       t.end,
		extra:     append(extra, flag),
	}
}

// Child returns a timer for a subproblem run: it shares the parent's budget
// and trips when the parent ends, but has its own end flag, so an
// optimality proof inside the subproblem does not stop the parent.
func (t *Timer) Child() *Timer {
	extra := make([]*atomic.Bool, len(t.extra), len(t.extra)+1)
	copy(extra, t.extra)
	return &Timer{
		start:     t.start,
		timeLimit: t.timeLimit,
		end:       &atomic.Bool{},
		extra:     append(extra, t.end),
	}
}

// NeedsToEnd reports whether workers should unwind. It is the normal
// termination channel, not an error.
func (t *Timer) NeedsToEnd() bool {
	if t.end.Load() {
		return true
	}
	for _, flag := range t.extra {
		if flag.Load() {
			return true
		}
	}
	return t.timeLimit > 0 && time.Since(t.start) >= t.timeLimit
}

// SetEnd trips the end flag; all workers sharing this timer unwind at their
// next poll.
func (t *Timer) SetEnd() { t.end.Store(true) }

// EndFlag exposes the timer's own end flag so that child timers can be
// linked to it.
func (t *Timer) EndFlag() *atomic.Bool { return t.end }

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration { return time.Since(t.start) }

// RemainingTime returns the time left in the budget, or a very large value
// when there is no limit.
func (t *Timer) RemainingTime() time.Duration {
	if t.timeLimit == 0 {
		return time.Duration(1<<63 - 1)
	}
	remaining := t.timeLimit - time.Since(t.start)
	if remaining < 0 {
		return 0
	}
	return remaining
}
