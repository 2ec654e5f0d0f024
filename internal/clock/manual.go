package clock

import (
	"container/heap"
	"sync"
	"time"
)

// Manual is a virtual-time scheduler. Nothing runs until Advance is called;
// due callbacks then run synchronously on the caller's goroutine, in due-time
// order (ties in scheduling order).
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks taskQueue
}

// NewManual creates a virtual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d < 0 {
		d = 0
	}
	m.seq++
	t := &task{due: m.now.Add(d), seq: m.seq, fn: f, owner: m}
	heap.Push(&m.tasks, t)
	return t
}

// Advance moves virtual time forward by d and runs every task that falls due,
// including tasks scheduled by callbacks within the window. It returns the
// number of callbacks run.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	ran := 0
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 || m.tasks[0].due.After(target) {
			m.now = target
			m.mu.Unlock()
			return ran
		}
		t := heap.Pop(&m.tasks).(*task)
		t.index = -1
		if t.due.After(m.now) {
			m.now = t.due
		}
		m.mu.Unlock()

		t.fn()
		ran++
	}
}

// Pending returns the number of scheduled tasks that have not run or been
// stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

type task struct {
	due   time.Time
	seq   uint64
	fn    func()
	index int
	owner *Manual
}

func (t *task) Stop() bool {
	m := t.owner
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.index < 0 {
		return false
	}
	heap.Remove(&m.tasks, t.index)
	t.index = -1
	return true
}

// taskQueue is a min-heap ordered by (due, seq).
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}
