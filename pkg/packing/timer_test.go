package packing

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerEndFlag(t *testing.T) {
	timer := NewTimer(0)
	assert.False(t, timer.NeedsToEnd())
	timer.SetEnd()
	assert.True(t, timer.NeedsToEnd())
}

func TestTimerDeadline(t *testing.T) {
	timer := NewTimer(time.Nanosecond)
	time.Sleep(time.Millisecond)
	assert.True(t, timer.NeedsToEnd())
}

func TestTimerChildIsolation(t *testing.T) {
	parent := NewTimer(0)
	child := parent.Child()

	// A child proving optimality must not stop the parent.
	child.SetEnd()
	assert.True(t, child.NeedsToEnd())
	assert.False(t, parent.NeedsToEnd())

	// A parent ending stops the child.
	child2 := parent.Child()
	parent.SetEnd()
	assert.True(t, child2.NeedsToEnd())
}

func TestTimerExtraFlags(t *testing.T) {
	var flag atomic.Bool
	timer := NewTimer(0).AddEndFlag(&flag)
	assert.False(t, timer.NeedsToEnd())
	flag.Store(true)
	assert.True(t, timer.NeedsToEnd())
}
