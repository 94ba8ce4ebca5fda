// Package handler adapts typed handlers to net/http.
//
// A HandlerFunc receives a Context and a request value decoded by the
// configured binders, and returns a Response. Wrap turns it into an
// http.HandlerFunc:
//
//	type loginRequest struct {
//		Email    string `form:"email"`
//		Password string `form:"password"`
//	}
//
//	r.Post("/login", handler.Wrap(
//		func(ctx handler.Context, req loginRequest) handler.Response {
//			if err := svc.Login(ctx, req.Email, req.Password); err != nil {
//				return handler.Templ(views.LoginForm(req, err))
//			}
//			return handler.Redirect("/dashboard")
//		},
//		handler.WithBinders[handler.Context, loginRequest](binder.Form()),
//		handler.WithErrorHandler[handler.Context, loginRequest](errorHandler),
//	))
//
// Responses adapt to datastar requests: Templ patches elements over SSE,
// Redirect sends a client side navigation script. Plain requests get full
// HTML and a 303 redirect.
package handler
