// Package authsession holds the authentication state of one browser
// session and the operations that change it.
//
// A Manager wraps an identity.Backend bound to the visitor's credential.
// It bootstraps by fetching the current account, then exposes Login,
// Logout, Register and UpdateProfile. Every operation returns a Result
// with a user-facing message instead of an error, and at most one
// operation runs at a time: a concurrent call is rejected with ErrBusy.
//
//	m := authsession.New(backend, authsession.WithNavigator(nav))
//	<-m.Start(ctx)
//
//	if res := m.Login(ctx, email, password); !res.Success {
//		render(res.Message)
//	}
//
// Registry keeps one Manager per browser session key for HTTP servers:
//
//	reg := authsession.NewRegistry(factory, authsession.WithIdleTTL(30*time.Minute))
//	defer reg.Close()
//	m, err := reg.Acquire(ctx, sessionID, secret)
package authsession
