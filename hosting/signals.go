package hosting

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalSource delivers termination signals to the host. Listen registers
// handler and returns a func that stops delivery.
type SignalSource interface {
	Listen(handler func(os.Signal)) (cancel func())
}

type osSignals struct {
	signals []os.Signal
}

// OSSignals returns a source for process signals. Without arguments it
// listens for SIGINT and SIGTERM.
func OSSignals(signals ...os.Signal) SignalSource {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	return osSignals{signals: signals}
}

func (s osSignals) Listen(handler func(os.Signal)) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, s.signals...)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-sigCh:
				handler(sig)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
		})
	}
}

// ManualSignals is a SignalSource driven by Send. Tests use it to simulate
// interrupts; processes can use it to translate their own shutdown triggers.
type ManualSignals struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(os.Signal)
}

// NewManualSignals creates a source without listeners.
func NewManualSignals() *ManualSignals {
	return &ManualSignals{handlers: make(map[int]func(os.Signal))}
}

// Listen implements SignalSource.
func (m *ManualSignals) Listen(handler func(os.Signal)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.handlers[id] = handler

	return func() {
		m.mu.Lock()
		delete(m.handlers, id)
		m.mu.Unlock()
	}
}

// Send delivers sig to every current listener on the calling goroutine.
func (m *ManualSignals) Send(sig os.Signal) {
	m.mu.Lock()
	handlers := make([]func(os.Signal), 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(sig)
	}
}

// Listeners returns the number of registered listeners.
func (m *ManualSignals) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}
