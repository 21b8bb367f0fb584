// Package di provides the service registry the host builds before it runs.
//
// A Registry collects bindings from capability keys to constructors or
// pre-built instances. Build freezes it into a Resolver that constructs
// services on demand: singletons once per resolver, transients on every
// resolution. Duplicate keys are rejected; Replace overwrites explicitly.
//
// # Registration
//
//	reg := di.NewRegistry()
//	_ = reg.AddSingleton("clock", func() Clock { return systemClock{} })
//	_ = reg.AddTransient(di.KeyOf[*Request](), func(p di.Provider) (*Request, error) {
//	    clock, err := di.Resolve[Clock](p, "clock")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Request{At: clock.Now()}, nil
//	})
//
// # Resolution
//
//	resolver := reg.Build()
//	req := di.MustResolve[*Request](resolver, di.KeyOf[*Request]())
//
// # Disposal
//
// Resolver.Close disposes the singletons the resolver constructed, in reverse
// registration order. Instances added with AddInstance belong to the caller.
package di
