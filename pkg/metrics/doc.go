// Package metrics exposes Prometheus instrumentation for authgate.
//
// A Collector owns its own prometheus.Registry, so several collectors (one per
// test, for example) never clash on registration. It implements
// authsession.Observer and can be passed to authsession.WithObserver.
//
//	m := metrics.New("authgate")
//	m.TrackManagers(registry.Len)
//	reg := authsession.NewRegistry(factory,
//	    authsession.WithManagerOptions(authsession.WithObserver(m)),
//	)
//	r.Use(m.Middleware)
//	r.Handle("/metrics", m.Handler())
package metrics
