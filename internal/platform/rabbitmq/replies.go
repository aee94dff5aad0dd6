package rabbitmq

import "sync"

// pendingReplies routes replies to the caller waiting on their correlation id.
// A reply whose caller already gave up finds no entry and is dropped.
type pendingReplies struct {
	mu      sync.Mutex
	waiting map[string]chan []byte
}

func newPendingReplies() *pendingReplies {
	return &pendingReplies{waiting: make(map[string]chan []byte)}
}

func (p *pendingReplies) register(id string) <-chan []byte {
	ch := make(chan []byte, 1)
	p.mu.Lock()
	p.waiting[id] = ch
	p.mu.Unlock()
	return ch
}

// resolve hands body to the waiting caller and reports whether one was found.
func (p *pendingReplies) resolve(id string, body []byte) bool {
	p.mu.Lock()
	ch, ok := p.waiting[id]
	delete(p.waiting, id)
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- body
	return true
}

func (p *pendingReplies) forget(id string) {
	p.mu.Lock()
	delete(p.waiting, id)
	p.mu.Unlock()
}

func (p *pendingReplies) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiting)
}
