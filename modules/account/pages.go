package account

import (
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrymomot/authgate/handler"
	"github.com/dmitrymomot/authgate/pkg/authsession"
	"github.com/dmitrymomot/authgate/pkg/clientip"
	"github.com/dmitrymomot/authgate/pkg/forms"
	"github.com/dmitrymomot/authgate/pkg/identity"
	"github.com/dmitrymomot/authgate/pkg/logger"
	"github.com/dmitrymomot/authgate/pkg/session"
	"github.com/dmitrymomot/authgate/pkg/validator"
)

func (s *Service) landing(ctx handler.Context, _ struct{}) handler.Response {
	return handler.Templ(s.views.Landing(LandingParams{
		User: managerFrom(ctx).CurrentUser(),
	}))
}

func (s *Service) login(ctx handler.Context, req forms.Login) handler.Response {
	mgr := managerFrom(ctx)
	params := LoginParams{Loading: mgr.IsLoading()}

	if ctx.Request().Method != http.MethodPost {
		params.Notice = s.popNotice(ctx)
		return s.loginResponse(http.StatusOK, params)
	}

	req.Normalize()
	params.Form = forms.Login{Email: req.Email, RememberMe: req.RememberMe}

	if err := req.Validate(); err != nil {
		params.Errors = fieldErrors(err)
		return s.loginResponse(http.StatusUnprocessableEntity, params)
	}
	if !s.allowSubmit(ctx) {
		params.Message = authsession.MsgTooManyAttempts
		return s.loginResponse(http.StatusTooManyRequests, params)
	}

	res := mgr.Login(ctx, req.Email, req.Password)
	if !res.Success {
		params.Message = res.Message
		return s.loginResponse(statusFor(res), params)
	}

	if err := s.persist(ctx, mgr); err != nil {
		return handler.Error(err)
	}
	return handler.Redirect(s.homeRoute)
}

func (s *Service) loginResponse(status int, p LoginParams) handler.Response {
	return handler.TemplPartialStatus(status, s.views.LoginForm(p), s.views.LoginPage(p))
}

func (s *Service) register(ctx handler.Context, req forms.Register) handler.Response {
	mgr := managerFrom(ctx)
	params := RegisterParams{Loading: mgr.IsLoading()}

	if ctx.Request().Method != http.MethodPost {
		return s.registerResponse(http.StatusOK, params)
	}

	req.Normalize()
	params.Form = forms.Register{Name: req.Name, Email: req.Email}

	if err := req.Validate(); err != nil {
		params.Errors = fieldErrors(err)
		return s.registerResponse(http.StatusUnprocessableEntity, params)
	}
	if !s.allowSubmit(ctx) {
		params.Message = authsession.MsgTooManyAttempts
		return s.registerResponse(http.StatusTooManyRequests, params)
	}

	res := mgr.Register(ctx, req.Name, req.Email, req.Password)
	if !res.Success && res.Message != authsession.MsgAutoLoginFailed {
		params.Message = res.Message
		return s.registerResponse(statusFor(res), params)
	}

	// The account exists either way; persist whatever credential was obtained.
	if err := s.persist(ctx, mgr); err != nil {
		return handler.Error(err)
	}
	if !res.Success {
		s.setNotice(ctx, res.Message)
		return handler.Redirect(s.loginRoute)
	}
	return handler.Redirect(s.homeRoute)
}

func (s *Service) registerResponse(status int, p RegisterParams) handler.Response {
	return handler.TemplPartialStatus(status, s.views.RegisterForm(p), s.views.RegisterPage(p))
}

func (s *Service) logout(ctx handler.Context, _ struct{}) handler.Response {
	mgr := managerFrom(ctx)
	sess := session.MustFromContext(ctx)

	navCtx, nav := withNavigation(ctx)
	res := mgr.Logout(navCtx)

	if nav.route == "" {
		// Strict policy kept the session, or another request is in flight.
		if res.Message != "" {
			s.setNotice(ctx, res.Message)
		}
		return handler.Redirect(s.homeRoute)
	}

	if err := s.sessions.Anonymize(ctx, ctx.ResponseWriter(), sess); err != nil {
		s.logger.WarnContext(ctx, "anonymize session after logout", logger.Error(err))
	}
	s.registry.Release(sess.ID)

	if !res.Success {
		s.setNotice(ctx, res.Message)
	}
	return handler.Redirect(nav.route)
}

func (s *Service) dashboard(ctx handler.Context, _ struct{}) handler.Response {
	user := accountFrom(ctx)
	if user == nil {
		return handler.Redirect(s.loginRoute)
	}
	return handler.Templ(s.views.Dashboard(DashboardParams{
		User:        user,
		Initial:     initial(user),
		DisplayName: displayName(user),
		MemberSince: user.CreatedAt.Format("January 2, 2006"),
		Notice:      s.popNotice(ctx),
	}))
}

func (s *Service) profile(ctx handler.Context, req forms.Profile) handler.Response {
	mgr := managerFrom(ctx)
	user := accountFrom(ctx)
	if user == nil {
		return handler.Redirect(s.loginRoute)
	}
	params := ProfileParams{Genders: forms.Genders, Loading: mgr.IsLoading()}

	if ctx.Request().Method != http.MethodPost {
		params.Form = profileForm(user)
		return s.profileResponse(http.StatusOK, params)
	}

	req.Normalize()
	req.Email = user.Email
	params.Form = req

	if err := req.ValidateAt(s.now()); err != nil {
		params.Errors = fieldErrors(err)
		return s.profileResponse(http.StatusUnprocessableEntity, params)
	}

	res := mgr.UpdateProfile(ctx, authsession.ProfileUpdate{
		Name:        req.Name,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
	})
	if !res.Success {
		if errors.Is(res.Err, authsession.ErrAuthentication) {
			s.setNotice(ctx, MsgSessionExpired)
			return handler.Redirect(s.loginRoute)
		}
		params.Message = res.Message
		return s.profileResponse(statusFor(res), params)
	}

	if err := s.persist(ctx, mgr); err != nil {
		return handler.Error(err)
	}
	params.Form = profileForm(mgr.CurrentUser())
	params.Success = MsgProfileUpdated
	return s.profileResponse(http.StatusOK, params)
}

func (s *Service) profileResponse(status int, p ProfileParams) handler.Response {
	return handler.TemplPartialStatus(status, s.views.ProfileForm(p), s.views.ProfilePage(p))
}

// persist stores the manager's credential in the browser session. Becoming
// authenticated attaches the account and rotates the session token.
func (s *Service) persist(ctx handler.Context, mgr *authsession.Manager) error {
	sess := session.MustFromContext(ctx)
	w := ctx.ResponseWriter()

	secret := mgr.Secret()
	if user := mgr.CurrentUser(); user != nil && sess.AccountID != user.ID {
		sess.Set(SecretKey, secret)
		return s.sessions.Authenticate(ctx, w, sess, user.ID)
	}
	if sess.GetString(SecretKey) == secret {
		return nil
	}
	sess.Set(SecretKey, secret)
	return s.sessions.Save(ctx, w, sess)
}

func (s *Service) allowSubmit(ctx handler.Context) bool {
	if s.limiter == nil {
		return true
	}
	res, err := s.limiter.Allow(ctx, "form:"+clientIP(ctx.Request()))
	if err != nil {
		s.logger.WarnContext(ctx, "form limiter failed", logger.Error(err))
		return true
	}
	return res.Allowed()
}

func (s *Service) setNotice(ctx handler.Context, msg string) {
	if s.cookies == nil || msg == "" {
		return
	}
	if err := s.cookies.SetFlash(ctx.ResponseWriter(), flashNotice, msg); err != nil {
		s.logger.WarnContext(ctx, "set flash notice", logger.Error(err))
	}
}

func (s *Service) popNotice(ctx handler.Context) string {
	if s.cookies == nil {
		return ""
	}
	var msg string
	if err := s.cookies.GetFlash(ctx.ResponseWriter(), ctx.Request(), flashNotice, &msg); err != nil {
		return ""
	}
	return msg
}

func statusFor(res authsession.Result) int {
	switch res.Outcome() {
	case "busy":
		return http.StatusConflict
	case "authentication":
		return http.StatusUnauthorized
	case "rate_limited":
		return http.StatusTooManyRequests
	case "validation":
		return http.StatusUnprocessableEntity
	case "conflict":
		return http.StatusConflict
	case "closed":
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func fieldErrors(err error) map[string]string {
	return validator.ExtractValidationErrors(err).Map()
}

func profileForm(user *identity.Account) forms.Profile {
	if user == nil {
		return forms.Profile{}
	}
	return forms.Profile{
		Name:        user.Name,
		Email:       user.Email,
		DateOfBirth: user.Preferences[identity.PrefDateOfBirth],
		Gender:      user.Preferences[identity.PrefGender],
	}
}

func displayName(user *identity.Account) string {
	if user == nil || strings.TrimSpace(user.Name) == "" {
		return "User"
	}
	return user.Name
}

func initial(user *identity.Account) string {
	r, _ := utf8.DecodeRuneInString(displayName(user))
	return string(unicode.ToUpper(r))
}

func clientIP(r *http.Request) string {
	if ip := clientip.FromContext(r.Context()); ip != "" {
		return ip
	}
	return clientip.New(clientip.WithHeaders()).Resolve(r)
}

func redirect(w http.ResponseWriter, r *http.Request, url string) error {
	return handler.Redirect(url).Render(w, r)
}
