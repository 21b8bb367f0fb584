// Package hosting runs an application through a deterministic lifecycle.
//
// A Host obtains exactly one Startup, lets it register services in a
// di.Registry, builds the resolver, lets the Startup compose a
// pipeline.Builder, invokes the compiled pipeline once, starts hosted
// components and then blocks until a termination signal arrives. Teardown
// runs exactly once: Stopping fires, components stop in reverse order,
// singletons are disposed in reverse registration order and Stopped fires.
//
// # Startups
//
// Startups are registered by name from an init function, or passed directly
// as an option:
//
//	func init() {
//	    hosting.RegisterStartup("orders", func(env hosting.Environment) hosting.Startup {
//	        return &Startup{env: env}
//	    })
//	}
//
// # Running
//
//	h, err := hosting.New(cfg, hosting.WithStartupName("orders"))
//	if err != nil {
//	    return err
//	}
//	if err := h.Configure(ctx); err != nil {
//	    return err
//	}
//	return h.Run(ctx)
//
// Run returns after SIGINT or SIGTERM, ctx cancellation or a
// lifetime.Notifier.StopApplication call, once teardown has completed.
package hosting
