package pipeline

import (
	"sync"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
)

// progressBroker fans progress snapshots out to subscribers and remembers
// the latest snapshot per document for polling clients. Publishing never
// blocks; a slow subscriber misses intermediate snapshots.
type progressBroker struct {
	mu     sync.RWMutex
	subs   map[int]chan domain.Progress
	nextID int
	last   map[string]domain.Progress
}

func newProgressBroker() *progressBroker {
	return &progressBroker{
		subs: make(map[int]chan domain.Progress),
		last: make(map[string]domain.Progress),
	}
}

// publish sends under the lock: cancel closes channels under the same
// lock, so a send can never hit a channel mid-close.
func (b *progressBroker) publish(p domain.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.last[p.DocumentID] = p
	for _, ch := range b.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

func (b *progressBroker) subscribe() (<-chan domain.Progress, func()) {
	ch := make(chan domain.Progress, 16)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; !ok {
			return
		}
		delete(b.subs, id)
		close(ch)
	}
	return ch, cancel
}

// forget drops the retained snapshot for a document
func (b *progressBroker) forget(documentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.last, documentID)
}

func (b *progressBroker) snapshot(documentID string) (domain.Progress, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.last[documentID]
	return p, ok
}
