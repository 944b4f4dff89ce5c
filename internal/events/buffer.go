package events

import "sync"

type message struct {
	Kind string
	Data []byte
}

// buffer is an unbounded FIFO of messages waiting for the writer. Closing it
// and pushing to it happen under the same lock, so a push either lands before
// close and is still popped by the final flush, or fails.
type buffer struct {
	lock    sync.Mutex
	pending []*message
	closed  bool
}

func newBuffer() *buffer {
	return &buffer{}
}

func (b *buffer) push(msg *message) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		return ErrProducerClosed
	}
	b.pending = append(b.pending, msg)
	return nil
}

// pop returns nil once the buffer is empty, closed or not.
func (b *buffer) pop() *message {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	msg := b.pending[0]
	b.pending[0] = nil
	b.pending = b.pending[1:]
	if len(b.pending) == 0 {
		b.pending = nil
	}
	return msg
}

func (b *buffer) close() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.closed = true
}

func (b *buffer) size() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.pending)
}
