// Package server provides a hosted HTTP component using Gin behind an h2c
// handler, so REST and cleartext HTTP/2 traffic share one port.
//
// A Server implements component.Component, so registering it with
// di.Registry.AddComponent lets the host start it after the application
// pipeline has run and stop it before services are disposed:
//
//	reg.AddComponent("http", func(p di.Provider) (*server.Server, error) {
//	    return server.New(cfg, di.MustResolve[*logger.Logger](p, di.Keys.Logger))
//	})
//
// Every Server carries recovery, request-id, tracing, Prometheus request
// metrics and request logging middleware, and registers the system endpoints
// /health, /livez, /readyz, /metrics and /version.
package server
