// Package lifetime provides the host's lifecycle notifier.
//
// A Notifier carries three one-shot signals: Started, Stopping and Stopped.
// Each fires at most once. Subscribers run synchronously on the goroutine that
// fires the signal; a subscriber added after its signal fired runs
// immediately. Channel views allow select-style waiting.
//
//	lt.OnStopping(func() {
//	    log.Info("draining requests")
//	})
//
//	select {
//	case <-lt.Started():
//	case <-ctx.Done():
//	}
//
// StopApplication lets application code ask the host to shut down.
package lifetime
