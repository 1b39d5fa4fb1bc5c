package task

// Kind discriminates messages exchanged with a worker
type Kind string

const (
	KindCall   Kind = "call"
	KindResult Kind = "result"
	KindError  Kind = "error"
	KindReady  Kind = "ready"
	KindExit   Kind = "exit"
)

// Message is the unit exchanged between the pool and a worker
type Message struct {
	Kind     Kind          `json:"kind"`
	WorkerID int           `json:"workerId"`
	TaskID   uint64        `json:"taskId,omitempty"`
	Method   string        `json:"method,omitempty"`
	Args     []interface{} `json:"args,omitempty"`
	Value    interface{}   `json:"value,omitempty"`
	Error    string        `json:"error,omitempty"`

	// Err keeps the original handler error for in-process transports.
	Err error `json:"-"`
}

// NewCall creates a call request for the task
func NewCall(t *Task) *Message {
	return &Message{Kind: KindCall, WorkerID: t.WorkerID, TaskID: t.ID, Method: t.Method, Args: t.Args}
}
