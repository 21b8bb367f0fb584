package lifetime

import (
	"fmt"
	"sync"

	"github.com/kbukum/gohost/logger"
)

// Signal names, used in logs.
const (
	SignalStarted  = "started"
	SignalStopping = "stopping"
	SignalStopped  = "stopped"
)

// Notifier broadcasts the host's lifecycle transitions. All methods are safe
// for concurrent use. The Notifier does not enforce any order between its
// signals; the host fires them in order.
type Notifier struct {
	started  *signal
	stopping *signal
	stopped  *signal

	stopOnce      sync.Once
	stopRequested chan struct{}

	log *logger.Logger
}

// New creates a Notifier. A nil logger falls back to the global logger.
func New(log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.WithComponent("lifetime")
	}
	n := &Notifier{
		stopRequested: make(chan struct{}),
		log:           log,
	}
	n.started = newSignal(SignalStarted, log)
	n.stopping = newSignal(SignalStopping, log)
	n.stopped = newSignal(SignalStopped, log)
	return n
}

// NotifyStarted fires Started. Only the first call has an effect.
func (n *Notifier) NotifyStarted() { n.started.fire() }

// NotifyStopping fires Stopping. Only the first call has an effect.
func (n *Notifier) NotifyStopping() { n.stopping.fire() }

// NotifyStopped fires Stopped. Only the first call has an effect.
func (n *Notifier) NotifyStopped() { n.stopped.fire() }

// OnStarted subscribes fn to Started and returns a func that unsubscribes it.
func (n *Notifier) OnStarted(fn func()) (unsubscribe func()) { return n.started.subscribe(fn) }

// OnStopping subscribes fn to Stopping and returns a func that unsubscribes it.
func (n *Notifier) OnStopping(fn func()) (unsubscribe func()) { return n.stopping.subscribe(fn) }

// OnStopped subscribes fn to Stopped and returns a func that unsubscribes it.
func (n *Notifier) OnStopped(fn func()) (unsubscribe func()) { return n.stopped.subscribe(fn) }

// Started returns a channel closed when Started fires.
func (n *Notifier) Started() <-chan struct{} { return n.started.done }

// Stopping returns a channel closed when Stopping fires.
func (n *Notifier) Stopping() <-chan struct{} { return n.stopping.done }

// Stopped returns a channel closed when Stopped fires.
func (n *Notifier) Stopped() <-chan struct{} { return n.stopped.done }

// StopApplication requests a graceful shutdown of the host. It returns
// immediately; the host observes the request through StopRequested. Calling it
// from a subscriber is safe.
func (n *Notifier) StopApplication() {
	n.stopOnce.Do(func() {
		n.log.Info("Application stop requested")
		close(n.stopRequested)
	})
}

// StopRequested returns a channel closed by the first StopApplication call.
func (n *Notifier) StopRequested() <-chan struct{} { return n.stopRequested }

type subscription struct {
	id uint64
	fn func()
}

// signal is a one-shot broadcast with ordered subscribers.
type signal struct {
	name string
	log  *logger.Logger
	done chan struct{}

	mu     sync.Mutex
	fired  bool
	nextID uint64
	subs   []subscription
}

func newSignal(name string, log *logger.Logger) *signal {
	return &signal{name: name, log: log, done: make(chan struct{})}
}

// fire marks the signal fired and runs the subscribers outside the lock.
// Later calls, including ones made from a subscriber, return immediately.
func (s *signal) fire() {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return
	}
	s.fired = true
	subs := s.subs
	s.subs = nil
	close(s.done)
	s.mu.Unlock()

	for _, sub := range subs {
		s.invoke(sub.fn)
	}
}

func (s *signal) subscribe(fn func()) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		s.invoke(fn)
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// invoke runs one subscriber, recovering a panic so the remaining
// subscribers still run.
func (s *signal) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Lifetime subscriber panicked", map[string]interface{}{
				logger.FieldPhase: s.name,
				logger.FieldError: fmt.Sprint(r),
			})
		}
	}()
	fn()
}
