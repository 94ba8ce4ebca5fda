// Package clientip resolves the originating client address of a request
// served behind reverse proxies.
//
// A Resolver walks a list of trusted headers in order and falls back to
// the TCP peer address. The default list covers Cloudflare, X-Forwarded-For
// and X-Real-IP:
//
//	r := chi.NewRouter()
//	r.Use(clientip.New().Middleware)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    ip := clientip.FromContext(r.Context())
//	}
//
// Deployments that are not behind a proxy should use WithHeaders() with no
// arguments so spoofed headers are ignored.
package clientip
