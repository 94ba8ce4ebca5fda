// Package session tracks browser sessions for the web layer.
//
// A Manager hands every visitor a session whose token travels in an
// encrypted cookie (CookieTransport) and whose state lives in a Store:
// MemoryStore for single-process deployments, RedisStore when several
// replicas must share sessions. Session data is a flat string map; the
// account pages keep the identity backend credential there.
//
//	cookies, _ := cookie.NewFromConfig(cookieCfg)
//	sessions := session.NewFromConfig(cfg, session.NewRedisStore(rdb), cookies)
//	r.Use(sessions.Middleware)
//
//	sess := session.MustFromContext(r.Context())
//	sess.Set("identity_secret", secret)
//	err := sessions.Authenticate(ctx, w, sess, account.ID)
//
// Authenticate and Anonymize rotate the token so a pre-login token cannot
// be replayed after sign-in. The session ID stays stable across rotations
// and can key per-visitor in-process state.
package session
