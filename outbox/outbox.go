package outbox

import (
	"encoding/json"
	"errors"
	"sync"

	model "ewallet/Model"
	"ewallet/events"
	"ewallet/metrics"

	"github.com/google/uuid"
)

var ErrDuplicateCorrelationID = errors.New("a request with this correlation id is already pending")

// Outbox holds transaction requests that have been built but not yet
// published, in arrival order.
type Outbox struct {
	mu sync.RWMutex

	// request id -> message
	pending map[string]events.TransactionRequestCreate

	// correlation id -> request id, for pending requests that have one
	correlations map[string]string

	// arrival order
	order []string

	// request id -> encoded size (cache)
	msgSize map[string]int

	totalSize int
}

func New() *Outbox {
	return &Outbox{
		pending:      make(map[string]events.TransactionRequestCreate),
		correlations: make(map[string]string),
		msgSize:      make(map[string]int),
	}
}

// Enqueue assigns a request id and queues params for publishing.
// Two pending requests may not share a correlation id.
func (o *Outbox) Enqueue(params model.TransactionRequestCreateParams) (string, error) {
	msg := events.TransactionRequestCreate{
		RequestID: uuid.NewString(),
		Params:    params,
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	cid, hasCID := params.CorrelationID()
	if hasCID {
		if _, dup := o.correlations[cid]; dup {
			return "", ErrDuplicateCorrelationID
		}
		o.correlations[cid] = msg.RequestID
	}

	o.pending[msg.RequestID] = msg
	o.msgSize[msg.RequestID] = len(raw)
	o.order = append(o.order, msg.RequestID)
	o.totalSize += len(raw)

	metrics.OutboxSize.Set(float64(len(o.pending)))
	return msg.RequestID, nil
}

func (o *Outbox) Get(requestID string) (events.TransactionRequestCreate, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	msg, ok := o.pending[requestID]
	return msg, ok
}

func (o *Outbox) Remove(requestID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	msg, ok := o.pending[requestID]
	if !ok {
		return
	}
	if cid, hasCID := msg.Params.CorrelationID(); hasCID {
		delete(o.correlations, cid)
	}
	delete(o.pending, requestID)
	o.totalSize -= o.msgSize[requestID]
	delete(o.msgSize, requestID)

	for i, id := range o.order {
		if id == requestID {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}

	metrics.OutboxSize.Set(float64(len(o.pending)))
}

type Snapshot struct {
	RequestIDs []string
	Size       int // encoded bytes of the snapshot
}

// SnapshotUntilSize returns the oldest requests whose encoded size fits in
// maxBytes. The oldest request is always included so an oversized one can't
// block the queue.
func (o *Outbox) SnapshotUntilSize(maxBytes int) Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var res []string
	size := 0

	for _, id := range o.order {
		s := o.msgSize[id]
		if len(res) > 0 && size+s > maxBytes {
			break
		}
		res = append(res, id)
		size += s
	}

	return Snapshot{RequestIDs: res, Size: size}
}

func (o *Outbox) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.pending)
}

// Bytes is the encoded size of everything pending.
func (o *Outbox) Bytes() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.totalSize
}
