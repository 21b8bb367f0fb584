package observability

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterCollector registers c with reg. When an equal collector is already
// registered it returns that one, so several hosts or servers in a process
// share their series. A conflicting registration is returned as an error.
func RegisterCollector[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var zero C
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return zero, err
	}
	existing, ok := are.ExistingCollector.(C)
	if !ok {
		return zero, fmt.Errorf("collector already registered as %T, want %T", are.ExistingCollector, c)
	}
	return existing, nil
}
