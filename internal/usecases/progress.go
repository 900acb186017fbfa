package usecases

import (
	"sync"
	"time"

	"hls-downloader/internal/domain/entities"
)

const subscriberBuffer = 32

// ProgressBroadcaster fans progress events out per task. Subscribers only see
// events published after they subscribed. A slow subscriber loses its oldest
// buffered event, never blocks the publisher.
type ProgressBroadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan entities.ProgressEvent
	nextID int
	buffer int
}

func NewProgressBroadcaster(buffer int) *ProgressBroadcaster {
	if buffer < 1 {
		buffer = subscriberBuffer
	}
	return &ProgressBroadcaster{
		subs:   make(map[string]map[int]chan entities.ProgressEvent),
		buffer: buffer,
	}
}

// Subscribe returns the event channel and its unsubscribe func, which closes
// the channel. Calling unsubscribe twice is fine.
func (b *ProgressBroadcaster) Subscribe(taskID string) (<-chan entities.ProgressEvent, func()) {
	ch := make(chan entities.ProgressEvent, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[taskID] == nil {
		b.subs[taskID] = make(map[int]chan entities.ProgressEvent)
	}
	b.subs[taskID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[taskID], id)
			if len(b.subs[taskID]) == 0 {
				delete(b.subs, taskID)
			}
			close(ch)
		})
	}
}

func (b *ProgressBroadcaster) Publish(ev entities.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[ev.TaskID] {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *ProgressBroadcaster) Subscribers(taskID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[taskID])
}

// runTracker accumulates what one worker run fetched. Speed is the plain
// average since the run started.
type runTracker struct {
	mu      sync.Mutex
	started time.Time
	bytes   int64
}

func newRunTracker() *runTracker {
	return &runTracker{started: time.Now()}
}

func (t *runTracker) add(n int64) {
	t.mu.Lock()
	t.bytes += n
	t.mu.Unlock()
}

func (t *runTracker) speed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	elapsed := time.Since(t.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(t.bytes) / elapsed
}
