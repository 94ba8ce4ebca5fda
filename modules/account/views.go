package account

import (
	"github.com/a-h/templ"

	"github.com/dmitrymomot/authgate/pkg/forms"
	"github.com/dmitrymomot/authgate/pkg/identity"
)

// Views renders the account pages. Form components must render a root
// element carrying the matching FormID so datastar can patch them in place.
type Views struct {
	Landing func(LandingParams) templ.Component

	LoginPage func(LoginParams) templ.Component
	LoginForm func(LoginParams) templ.Component

	RegisterPage func(RegisterParams) templ.Component
	RegisterForm func(RegisterParams) templ.Component

	Dashboard func(DashboardParams) templ.Component

	ProfilePage func(ProfileParams) templ.Component
	ProfileForm func(ProfileParams) templ.Component
}

// Element ids of the patchable forms.
const (
	LoginFormID    = "login-form"
	RegisterFormID = "register-form"
	ProfileFormID  = "profile-form"
)

type LandingParams struct {
	User *identity.Account
}

type LoginParams struct {
	Form forms.Login
	// Errors holds the first message per field.
	Errors map[string]string
	// Message is the form level error.
	Message string
	// Notice is an informational banner carried over from a redirect.
	Notice  string
	Loading bool
}

type RegisterParams struct {
	Form    forms.Register
	Errors  map[string]string
	Message string
	Loading bool
}

type DashboardParams struct {
	User        *identity.Account
	Initial     string
	DisplayName string
	MemberSince string
	Notice      string
}

type ProfileParams struct {
	Form    forms.Profile
	Errors  map[string]string
	Message string
	Success string
	Genders []string
	Loading bool
}
