package account

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/authgate/pkg/authsession"
	"github.com/dmitrymomot/authgate/pkg/identity"
	"github.com/dmitrymomot/authgate/pkg/logger"
	"github.com/dmitrymomot/authgate/pkg/session"
)

type (
	managerKey struct{}
	accountKey struct{}
)

func managerFrom(ctx context.Context) *authsession.Manager {
	m, _ := ctx.Value(managerKey{}).(*authsession.Manager)
	return m
}

// accountFrom returns the account snapshot taken by requireAuth. It stays
// valid when a concurrent request signs the manager out.
func accountFrom(ctx context.Context) *identity.Account {
	acc, _ := ctx.Value(accountKey{}).(*identity.Account)
	return acc
}

// loadManager attaches the browser session's manager to the request. A
// session whose backend credential no longer resolves to an account is
// downgraded to anonymous.
func (s *Service) loadManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, ok := session.FromContext(ctx)
		if !ok {
			s.logger.ErrorContext(ctx, "account routes mounted without session middleware")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		mgr, err := s.registry.Acquire(ctx, sess.ID, sess.GetString(SecretKey))
		if err != nil {
			s.logger.ErrorContext(ctx, "acquire session manager", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		if sess.IsAuthenticated() && !mgr.IsAuthenticated() && !mgr.Busy() {
			s.logger.InfoContext(ctx, "backend session gone, resetting browser session", logger.AccountID(sess.AccountID))
			if err := s.sessions.Anonymize(ctx, w, sess); err != nil {
				s.logger.WarnContext(ctx, "anonymize session", logger.Error(err))
			}
			if mgr, err = s.registry.Acquire(ctx, sess.ID, ""); err != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, managerKey{}, mgr)))
	})
}

// requireAuth sends anonymous visitors to the login page.
func (s *Service) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var user *identity.Account
		if mgr := managerFrom(r.Context()); mgr != nil {
			user = mgr.CurrentUser()
		}
		if user == nil {
			_ = redirect(w, r, s.loginRoute)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, user)))
	})
}

// guestOnly sends authenticated visitors to the dashboard.
func (s *Service) guestOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mgr := managerFrom(r.Context()); mgr != nil && mgr.IsAuthenticated() {
			_ = redirect(w, r, s.homeRoute)
			return
		}
		next.ServeHTTP(w, r)
	})
}
