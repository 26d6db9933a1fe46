// Package progress relays analysis events to per-session subscribers.
// Delivery is best effort: a subscriber only sees events published after it
// subscribed, a slow subscriber loses events rather than blocking the
// publisher, and every stream ends with exactly one terminal event.
package progress

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/verdant/internal/model"
)

// Defaults for New.
const (
	DefaultBufferSize        = 64
	DefaultTerminalRetention = 5 * time.Minute
)

// Channel is a session-keyed event relay shared by all analyses.
type Channel struct {
	mu        sync.Mutex
	topics    map[string]*topic
	nextID    uint64
	buffer    int
	retention time.Duration
	nowFunc   func() time.Time
}

type topic struct {
	subs     map[uint64]*subscriber
	terminal *Event
	closedAt time.Time
}

type subscriber struct {
	ch chan Event
	fn func(Event) error
}

// New creates a channel. bufferSize is the per-subscriber queue length;
// retention is how long a finished session's terminal event is replayed to
// late subscribers.
func New(bufferSize int, retention time.Duration) *Channel {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if retention <= 0 {
		retention = DefaultTerminalRetention
	}
	return &Channel{
		topics:    make(map[string]*topic),
		buffer:    bufferSize,
		retention: retention,
		nowFunc:   time.Now,
	}
}

// Subscription is a channel-backed subscriber. C is closed after the
// terminal event or when Close is called.
type Subscription struct {
	C <-chan Event

	once  sync.Once
	close func()
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.close)
}

// Subscribe returns a stream of the session's future events, starting with
// a connected event.
func (c *Channel) Subscribe(session string) *Subscription {
	// One slot is reserved so the terminal event always fits.
	ch := make(chan Event, c.buffer+1)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()

	t := c.topicLocked(session)
	ch <- c.event(session, EventConnected, map[string]any{"sessionId": session})
	if t.terminal != nil {
		ch <- *t.terminal
		close(ch)
		return &Subscription{C: ch, close: func() {}}
	}

	id := c.add(t, &subscriber{ch: ch})
	return &Subscription{C: ch, close: func() { c.remove(session, id) }}
}

// SubscribeFunc registers a callback for the session's future events. A
// callback that errors or panics is logged and never affects other
// subscribers. The returned func unsubscribes.
func (c *Channel) SubscribeFunc(session string, fn func(Event) error) func() {
	c.mu.Lock()
	c.sweepLocked()
	t := c.topicLocked(session)
	connected := c.event(session, EventConnected, map[string]any{"sessionId": session})
	terminal := t.terminal
	var id uint64
	if terminal == nil {
		id = c.add(t, &subscriber{fn: fn})
	}
	c.mu.Unlock()

	deliver(fn, connected)
	if terminal != nil {
		deliver(fn, *terminal)
		return func() {}
	}
	return func() { c.remove(session, id) }
}

// Publish sends an event to the session's current subscribers. A terminal
// event closes every stream of the session.
func (c *Channel) Publish(session string, typ EventType, payload any) {
	data, err := toData(payload)
	if err != nil {
		zap.L().Error("progress: dropping event", zap.String("session", session),
			zap.String("type", string(typ)), zap.Error(err))
		return
	}

	c.mu.Lock()
	c.sweepLocked()
	t, ok := c.topics[session]
	if !ok {
		if !typ.Terminal() {
			c.mu.Unlock()
			return
		}
		t = c.topicLocked(session)
	}
	if t.terminal != nil {
		c.mu.Unlock()
		zap.L().Warn("progress: event after terminal", zap.String("session", session),
			zap.String("type", string(typ)))
		return
	}

	ev := c.event(session, typ, data)
	var callbacks []func(Event) error
	for id, s := range t.subs {
		if s.fn != nil {
			callbacks = append(callbacks, s.fn)
			continue
		}
		c.send(s, ev)
		if typ.Terminal() {
			close(s.ch)
			delete(t.subs, id)
		}
	}
	if typ.Terminal() {
		t.terminal = &ev
		t.closedAt = ev.Timestamp
		t.subs = map[uint64]*subscriber{}
	}
	c.mu.Unlock()

	for _, fn := range callbacks {
		deliver(fn, ev)
	}
}

// Subscribers returns the number of live subscribers of a session.
func (c *Channel) Subscribers(session string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.topics[session]; ok {
		return len(t.subs)
	}
	return 0
}

func (c *Channel) event(session string, typ EventType, data map[string]any) Event {
	return Event{Session: session, Type: typ, Data: data, Timestamp: c.nowFunc()}
}

// send never blocks. Non-terminal events are dropped once only the reserved
// slot is left.
func (c *Channel) send(s *subscriber, ev Event) {
	if !ev.Type.Terminal() && len(s.ch) >= cap(s.ch)-1 {
		zap.L().Warn("progress: subscriber queue full",
			zap.String("session", ev.Session),
			zap.String("type", string(ev.Type)),
			zap.Error(eris.Wrap(model.ErrChannelDelivery, "queue full")),
		)
		return
	}
	select {
	case s.ch <- ev:
	default:
	}
}

func deliver(fn func(Event) error, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("progress: subscriber panicked",
				zap.String("session", ev.Session),
				zap.String("type", string(ev.Type)),
				zap.Error(eris.Wrapf(model.ErrChannelDelivery, "panic: %v", r)),
			)
		}
	}()
	if err := fn(ev); err != nil {
		zap.L().Warn("progress: subscriber failed",
			zap.String("session", ev.Session),
			zap.String("type", string(ev.Type)),
			zap.Error(eris.Wrapf(model.ErrChannelDelivery, "%v", err)),
		)
	}
}

func (c *Channel) topicLocked(session string) *topic {
	t, ok := c.topics[session]
	if !ok {
		t = &topic{subs: make(map[uint64]*subscriber)}
		c.topics[session] = t
	}
	return t
}

func (c *Channel) add(t *topic, s *subscriber) uint64 {
	c.nextID++
	t.subs[c.nextID] = s
	return c.nextID
}

func (c *Channel) remove(session string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.topics[session]
	if !ok {
		return
	}
	if s, ok := t.subs[id]; ok {
		if s.ch != nil {
			close(s.ch)
		}
		delete(t.subs, id)
	}
	if len(t.subs) == 0 && t.terminal == nil {
		delete(c.topics, session)
	}
}

// sweepLocked drops finished sessions whose retention has elapsed.
func (c *Channel) sweepLocked() {
	now := c.nowFunc()
	for id, t := range c.topics {
		if t.terminal != nil && now.Sub(t.closedAt) > c.retention {
			delete(c.topics, id)
		}
	}
}
