package queue

import (
	"container/heap"
	"sort"
	"sync"

	"github.com/viant/workerfarm/model/task"
)

// tasks implements heap.Interface ordered by less
type tasks struct {
	items []*task.Task
	less  func(a, b *task.Task) bool
}

func (h *tasks) Len() int           { return len(h.items) }
func (h *tasks) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h *tasks) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *tasks) Push(x interface{}) { h.items = append(h.items, x.(*task.Task)) }
func (h *tasks) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

func (h *tasks) head() *task.Task {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

// Priority serves the highest priority shared task first, FIFO within a priority.
// Lanes bound to a worker keep submission order so a sticky key is never reordered.
type Priority struct {
	mu    sync.Mutex
	lanes map[int]*tasks
	size  int
}

func (q *Priority) lane(id int) *tasks {
	ret, ok := q.lanes[id]
	if !ok {
		ret = &tasks{less: before}
		if id == task.AnyWorker {
			ret.less = beforeByPriority
		}
		q.lanes[id] = ret
	}
	return ret
}

// Enqueue adds a task
func (q *Priority) Enqueue(t *task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(q.lane(t.Lane), t)
	q.size++
}

// Requeue adds a retried task at the front of its priority tier
func (q *Priority) Requeue(t *task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t.Requeued = true
	heap.Push(q.lane(t.Lane), t)
	q.size++
}

// Restore puts back a dequeued task that was never dispatched
func (q *Priority) Restore(t *task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(q.lane(t.Lane), t)
	q.size++
}

// Dequeue removes the next task for workerID
func (q *Priority) Dequeue(workerID int) *task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	shared := q.lanes[task.AnyWorker]
	var own *tasks
	if workerID != task.AnyWorker {
		own = q.lanes[workerID]
	}
	var ownHead, sharedHead *task.Task
	if own != nil {
		ownHead = own.head()
	}
	if shared != nil {
		sharedHead = shared.head()
	}
	next, fromOwn := pick(ownHead, sharedHead, beforeByPriority)
	if next == nil {
		return nil
	}
	if fromOwn {
		heap.Pop(own)
	} else {
		heap.Pop(shared)
	}
	q.size--
	return next
}

// Size returns queued task count
func (q *Priority) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Drain removes all tasks
func (q *Priority) Drain() []*task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	ret := make([]*task.Task, 0, q.size)
	for id, lane := range q.lanes {
		ret = append(ret, lane.items...)
		delete(q.lanes, id)
	}
	q.size = 0
	sort.SliceStable(ret, func(i, j int) bool { return beforeByPriority(ret[i], ret[j]) })
	return ret
}

// NewPriority creates a priority queue
func NewPriority() *Priority {
	return &Priority{lanes: make(map[int]*tasks)}
}

var _ Queue = (*Priority)(nil)
