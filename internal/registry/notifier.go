package registry

import (
	"sync"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
)

// Event is delivered to subscribers after a history entry commits. The
// append-only log is the durable source of truth; delivery here is
// best-effort and a slow subscriber loses events rather than blocking commits.
type Event struct {
	Fingerprint string
	Entry       domain.HistoryEntry
}

type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	buffer int
}

func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 64
	}
	return &Notifier{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe returns a channel of committed events and a cancel func. The
// channel is closed on cancel.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	ch := make(chan Event, n.buffer)
	n.subs[id] = ch
	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (n *Notifier) publishEntry(fingerprint string, entry domain.HistoryEntry) {
	if n == nil {
		return
	}
	n.publish(Event{Fingerprint: fingerprint, Entry: entry})
}

func (n *Notifier) publish(event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, sub := range n.subs {
		select {
		case sub <- event:
		default:
			// Subscriber is behind; drop rather than stall the commit path.
		}
	}
}
