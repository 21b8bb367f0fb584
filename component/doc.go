// Package component defines hosted components: services with a start/stop
// lifecycle and health reporting that run alongside the host.
//
// Components are registered with di.Registry.AddComponent. The host resolves
// them after the application pipeline runs, starts them in registration order
// and stops them in reverse order during shutdown.
//
// # Interfaces
//
//   - Component: lifecycle (Start/Stop) and Health
//   - Describable: startup summary description
//   - RouteProvider: HTTP routes for the startup summary
package component
