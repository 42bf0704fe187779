package eventbus

import (
	"sync"

	"github.com/castellan/extract/types"
)

// DefaultCapacity is the default per-subscriber channel capacity, bounding
// how far a subscriber may fall behind before it starts missing events.
const DefaultCapacity = 256

// Lagged is sent in place of an event when a subscriber's channel was full
// and n events had to be dropped for it; the subscriber must resynchronize
// (e.g. re-fetch job state) rather than assume it saw every event.
type Lagged struct {
	Dropped int
}

// Subscription is a subscriber's view of the bus: Events carries delivered
// events and Lagged signals, multiplexed by which field is set on Msg.
type Subscription struct {
	events chan Msg
	bus    *Bus
	id     uint64
}

// Msg is delivered on a Subscription's channel; exactly one of Event or
// Lag is non-nil/non-zero.
type Msg struct {
	Event types.ExtractionEvent
	Lag   *Lagged
}

// Events returns the channel to receive on.
func (s *Subscription) Events() <-chan Msg { return s.events }

// Close unsubscribes; the subscriber's channel is closed, and further
// publishes no longer attempt delivery to it.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

// Bus is a single broadcast channel per process (or per control plane):
// one or more Subscribe callers each get an independent bounded channel,
// publishers never block on a slow subscriber, and subscribers observe
// events in the order emitted for any single producer.
type Bus struct {
	mu       sync.Mutex
	capacity int
	nextID   uint64
	subs     map[uint64]chan Msg
	dropped  map[uint64]int
	onDrop   func(subscriberID uint64, dropped int)
}

// New returns a Bus with the given per-subscriber channel capacity. A
// capacity of 0 uses DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{capacity: capacity, subs: make(map[uint64]chan Msg), dropped: make(map[uint64]int)}
}

// OnDrop registers a callback invoked whenever a subscriber's channel was
// full and events had to be dropped for it, so a caller can surface
// "falling behind" diagnostics without affecting delivery.
func (b *Bus) OnDrop(fn func(subscriberID uint64, dropped int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDrop = fn
}

// Subscribe registers a new subscriber and returns its Subscription. The
// underlying channel is sized one larger than capacity: normal events
// fill the first capacity slots, and the extra slot is reserved so a
// Lagged signal always has somewhere to go once the subscriber falls
// behind, rather than competing with regular events for room.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Msg, b.capacity+1)
	b.subs[id] = ch

	return &Subscription{events: ch, bus: b, id: id}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	delete(b.dropped, id)
	close(ch)
}

// Publish broadcasts event to every current subscriber. Delivery is
// non-blocking: a subscriber whose channel is full receives a Lagged
// signal instead (best-effort; if even that can't be delivered
// immediately the drop is silently counted via onDrop) and must
// resynchronize. Publish itself never fails from the caller's
// perspective.
func (b *Bus) Publish(event types.ExtractionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		if len(ch) >= b.capacity {
			// The capacity slots are taken; leave the reserved slot for a
			// Lagged signal rather than let this event claim it.
			b.signalLag(id, ch)
			continue
		}
		select {
		case ch <- Msg{Event: event}:
		default:
			b.signalLag(id, ch)
		}
	}
}

// signalLag records one more dropped event for id and tries to deliver the
// accumulated count as a single Lagged signal into the reserved slot,
// resetting the counter on success. A previously-queued, not-yet-flushed
// Lagged signal can still occupy that slot (the subscriber hasn't read it
// yet), in which case the count keeps accumulating and is only observable
// via onDrop until a publish or signal finally finds the slot free.
func (b *Bus) signalLag(id uint64, ch chan Msg) {
	b.dropped[id]++
	n := b.dropped[id]

	select {
	case ch <- Msg{Lag: &Lagged{Dropped: n}}:
		b.dropped[id] = 0
	default:
		if b.onDrop != nil {
			b.onDrop(id, n)
		}
	}
}

// SubscriberCount reports the number of currently active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
