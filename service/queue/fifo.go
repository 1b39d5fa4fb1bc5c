package queue

import (
	"sort"
	"sync"

	equeue "github.com/eapache/queue"
	"github.com/viant/workerfarm/model/task"
)

type fifoLane struct {
	requeued []*task.Task
	restored []*task.Task
	pending  *equeue.Queue
}

// insert adds t keeping tasks sorted by ID
func insert(tasks []*task.Task, t *task.Task) []*task.Task {
	i := sort.Search(len(tasks), func(i int) bool { return tasks[i].ID > t.ID })
	tasks = append(tasks, nil)
	copy(tasks[i+1:], tasks[i:])
	tasks[i] = t
	return tasks
}

func (l *fifoLane) head() *task.Task {
	if len(l.requeued) > 0 {
		return l.requeued[0]
	}
	var pending *task.Task
	if l.pending.Length() > 0 {
		pending = l.pending.Peek().(*task.Task)
	}
	if len(l.restored) > 0 && (pending == nil || l.restored[0].ID < pending.ID) {
		return l.restored[0]
	}
	return pending
}

func (l *fifoLane) remove() *task.Task {
	ret := l.head()
	switch {
	case ret == nil:
	case len(l.requeued) > 0 && l.requeued[0] == ret:
		l.requeued = l.requeued[1:]
	case len(l.restored) > 0 && l.restored[0] == ret:
		l.restored = l.restored[1:]
	default:
		l.pending.Remove()
	}
	return ret
}

func (l *fifoLane) size() int {
	return len(l.requeued) + len(l.restored) + l.pending.Length()
}

// FIFO serves tasks in submission order; retried tasks go first, oldest first
type FIFO struct {
	mu    sync.Mutex
	lanes map[int]*fifoLane
	size  int
}

func (q *FIFO) lane(id int) *fifoLane {
	ret, ok := q.lanes[id]
	if !ok {
		ret = &fifoLane{pending: equeue.New()}
		q.lanes[id] = ret
	}
	return ret
}

// Enqueue adds a task
func (q *FIFO) Enqueue(t *task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lane(t.Lane).pending.Add(t)
	q.size++
}

// Requeue adds a retried task ahead of fresh tasks
func (q *FIFO) Requeue(t *task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t.Requeued = true
	lane := q.lane(t.Lane)
	lane.requeued = insert(lane.requeued, t)
	q.size++
}

// Restore puts back a dequeued task that was never dispatched
func (q *FIFO) Restore(t *task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	lane := q.lane(t.Lane)
	if t.Requeued {
		lane.requeued = insert(lane.requeued, t)
	} else {
		lane.restored = insert(lane.restored, t)
	}
	q.size++
}

// Dequeue removes the next task for workerID
func (q *FIFO) Dequeue(workerID int) *task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	shared := q.lanes[task.AnyWorker]
	var own *fifoLane
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
	next, fromOwn := pick(ownHead, sharedHead, before)
	if next == nil {
		return nil
	}
	if fromOwn {
		own.remove()
	} else {
		shared.remove()
	}
	q.size--
	return next
}

// Size returns queued task count
func (q *FIFO) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Drain removes all tasks
func (q *FIFO) Drain() []*task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	ret := make([]*task.Task, 0, q.size)
	for id, lane := range q.lanes {
		for lane.size() > 0 {
			ret = append(ret, lane.remove())
		}
		delete(q.lanes, id)
	}
	q.size = 0
	sort.SliceStable(ret, func(i, j int) bool { return before(ret[i], ret[j]) })
	return ret
}

// NewFIFO creates a FIFO queue
func NewFIFO() *FIFO {
	return &FIFO{lanes: make(map[int]*fifoLane)}
}

var _ Queue = (*FIFO)(nil)
