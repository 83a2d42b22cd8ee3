package utilities

import (
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-facade/internal/data"
)

// timerGroup keeps running totals so long lived services don't
// accumulate one entry per request
type timerGroup struct {
	next    int
	pending map[int]time.Time
	total   time.Duration
	stopped int64
}

type timers struct {
	sync.Mutex
	groups map[string]*timerGroup
}

// Timers records how long each endpoint (group) takes
type Timers interface {
	Start(group string) int
	Stop(group string, index int) int64
	ReadAll() *data.Timers
	Clear()
}

func NewTimers() Timers {
	return &timers{groups: make(map[string]*timerGroup)}
}

func (t *timers) Clear() {
	t.Lock()
	defer t.Unlock()

	clear(t.groups)
}

// Start returns an index that must be handed back to Stop
func (t *timers) Start(group string) int {
	t.Lock()
	defer t.Unlock()

	g, found := t.groups[group]
	if !found {
		g = &timerGroup{pending: make(map[int]time.Time)}
		t.groups[group] = g
	}
	index := g.next
	g.next++
	g.pending[index] = time.Now()
	return index
}

// Stop returns the elapsed nanoseconds, or -1 if the index isn't pending
func (t *timers) Stop(group string, index int) int64 {
	t.Lock()
	defer t.Unlock()

	g, found := t.groups[group]
	if !found {
		return -1
	}
	//KIM: a Clear() between Start and Stop drops the pending start
	started, found := g.pending[index]
	if !found {
		return -1
	}
	delete(g.pending, index)
	elapsed := time.Since(started)
	g.total += elapsed
	g.stopped++
	return elapsed.Nanoseconds()
}

func (t *timers) ReadAll() *data.Timers {
	t.Lock()
	defer t.Unlock()

	readAll := &data.Timers{
		Totals:   make(map[string]int64, len(t.groups)),
		Averages: make(map[string]int64, len(t.groups)),
	}
	for group, g := range t.groups {
		readAll.Totals[group] = g.total.Nanoseconds()
		if g.stopped > 0 {
			readAll.Averages[group] = g.total.Nanoseconds() / g.stopped
		}
	}
	return readAll
}
