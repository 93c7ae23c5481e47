package app

import "context"

// Mailbox is a single-slot handoff between one producer and one consumer.
// A new item replaces one the consumer has not taken yet.
type Mailbox[T any] struct {
	ch chan T
}

// NewMailbox creates an empty Mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1)}
}

// Offer stores v, discarding any pending item. It reports whether an item
// was discarded.
func (m *Mailbox[T]) Offer(v T) (dropped bool) {
	for {
		select {
		case m.ch <- v:
			return dropped
		default:
		}
		select {
		case <-m.ch:
			dropped = true
		default:
		}
	}
}

// Receive blocks until an item is available or ctx is done.
func (m *Mailbox[T]) Receive(ctx context.Context) (T, error) {
	select {
	case v := <-m.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
