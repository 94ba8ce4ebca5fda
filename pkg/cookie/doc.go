// Package cookie sets and reads HTTP cookies whose values are sealed with
// AES-GCM. Several secrets may be configured: the first seals new values,
// all of them are tried when opening, so secrets can be rotated without
// logging visitors out.
//
//	mgr, err := cookie.New([]string{os.Getenv("COOKIE_SECRET")}, cookie.WithSecure(true))
//	_ = mgr.SetEncrypted(w, "sid", token, cookie.WithMaxAge(3600))
//	token, err := mgr.GetEncrypted(r, "sid")
//
// Flash values survive exactly one read:
//
//	_ = mgr.SetFlash(w, "notice", "Please sign in")
//	var notice string
//	_ = mgr.GetFlash(w, r, "notice", &notice)
package cookie
