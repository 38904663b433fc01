package resource

import "sync"

// Envelope wraps a broadcast value together with an explicit lag flag: if
// Lagged is true, one or more prior values were dropped for this
// subscriber before this one, because its backlog was full (spec.md §4.3
// "subscribers that fall behind... see an explicit lagged signal and must
// resync", §7). This is deliberately different from the teacher's
// eventbus.Bus, which drops silently with only a log line — that does not
// satisfy the spec's resync contract.
type Envelope[T any] struct {
	Value  T
	Lagged bool
}

// Broadcast is a multi-producer, multi-consumer fan-out channel with a
// bounded per-subscriber backlog (spec.md §4.3). Publish is non-blocking:
// a subscriber whose backlog is full has its oldest-pending message
// dropped (not the new one — newest-wins) and is flagged lagged.
type Broadcast[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]*subscriberState[T]
	backlog int
}

type subscriberState[T any] struct {
	ch     chan Envelope[T]
	lagged bool
}

// NewBroadcast creates a Broadcast with the given per-subscriber backlog
// size.
func NewBroadcast[T any](backlog int) *Broadcast[T] {
	if backlog < 1 {
		backlog = 1
	}
	return &Broadcast[T]{
		subs:    make(map[uint64]*subscriberState[T]),
		backlog: backlog,
	}
}

// Subscription is a live subscription to a Broadcast.
type Subscription[T any] struct {
	id     uint64
	ch     <-chan Envelope[T]
	parent *Broadcast[T]
}

// C returns the receive channel for this subscription.
func (s *Subscription[T]) C() <-chan Envelope[T] { return s.ch }

// Unsubscribe removes the subscription; the channel is closed and no
// further values are delivered.
func (s *Subscription[T]) Unsubscribe() {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	if sub, ok := s.parent.subs[s.id]; ok {
		close(sub.ch)
		delete(s.parent.subs, s.id)
	}
}

// Subscribe registers a new subscriber and returns its subscription.
func (b *Broadcast[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	sub := &subscriberState[T]{ch: make(chan Envelope[T], b.backlog)}
	b.subs[id] = sub

	return &Subscription[T]{id: id, ch: sub.ch, parent: b}
}

// Publish delivers value to every current subscriber, at-most-once each.
// A subscriber whose buffer is full is flagged lagged: its oldest queued
// envelope is dropped to make room, and the flag rides along on the next
// envelope actually delivered to it.
func (b *Broadcast[T]) Publish(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		env := Envelope[T]{Value: value, Lagged: sub.lagged}
		select {
		case sub.ch <- env:
			sub.lagged = false
		default:
			// backlog full: drop the oldest pending envelope to make room,
			// then enqueue this one flagged lagged so the subscriber knows
			// to resync.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- Envelope[T]{Value: value, Lagged: true}:
			default:
			}
			sub.lagged = true
		}
	}
}

// SubscriberCount returns the current number of live subscribers (used by
// tests and diagnostics).
func (b *Broadcast[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
