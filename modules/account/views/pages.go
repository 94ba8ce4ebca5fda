package views

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/authgate/handler"
	"github.com/dmitrymomot/authgate/modules/account"
)

// Default returns the built-in account views.
func Default() *account.Views {
	return &account.Views{
		Landing:      Landing,
		LoginPage:    func(p account.LoginParams) templ.Component { return layout("Sign in", false, LoginForm(p)) },
		LoginForm:    LoginForm,
		RegisterPage: func(p account.RegisterParams) templ.Component { return layout("Create account", false, RegisterForm(p)) },
		RegisterForm: RegisterForm,
		Dashboard:    Dashboard,
		ProfilePage:  func(p account.ProfileParams) templ.Component { return layout("Profile", true, ProfileForm(p)) },
		ProfileForm:  ProfileForm,
	}
}

func Landing(p account.LandingParams) templ.Component {
	body := component(func(_ context.Context, h *html) {
		h.raw(`<section class="hero"><h1>Welcome to authgate</h1>`)
		if p.User != nil {
			h.raw(`<p>Signed in as `)
			h.text(p.User.Email)
			h.raw(`.</p><a class="button" href="/dashboard">Go to dashboard</a>`)
		} else {
			h.raw(`<p>Sign in or create an account to continue.</p>`)
			h.raw(`<a class="button" href="/login">Sign in</a> <a class="button" href="/register">Create account</a>`)
		}
		h.raw(`</section>`)
	})
	return layout("Welcome", p.User != nil, body)
}

func LoginForm(p account.LoginParams) templ.Component {
	return component(func(_ context.Context, h *html) {
		formOpen(h, account.LoginFormID, "/login")
		h.raw(`<h1>Sign in</h1>`)
		notice(h, "notice", p.Notice)
		notice(h, "error", p.Message)
		field(h, "Email", "email", "email", p.Form.Email, p.Errors["email"], "autocomplete", "email")
		field(h, "Password", "password", "password", "", p.Errors["password"], "autocomplete", "current-password")
		h.raw(`<label class="checkbox"><input type="checkbox" name="remember_me"`)
		h.flag("checked", p.Form.RememberMe)
		h.raw(`> Remember me</label>`)
		submit(h, "Sign in", "Signing in...", p.Loading)
		h.raw(`<p>No account yet? <a href="/register">Create one</a></p></form>`)
	})
}

func RegisterForm(p account.RegisterParams) templ.Component {
	return component(func(_ context.Context, h *html) {
		formOpen(h, account.RegisterFormID, "/register")
		h.raw(`<h1>Create account</h1>`)
		notice(h, "error", p.Message)
		field(h, "Name", "text", "name", p.Form.Name, p.Errors["name"], "autocomplete", "name")
		field(h, "Email", "email", "email", p.Form.Email, p.Errors["email"], "autocomplete", "email")
		field(h, "Password", "password", "password", "", p.Errors["password"], "autocomplete", "new-password")
		field(h, "Confirm password", "password", "confirm_password", "", p.Errors["confirm_password"], "autocomplete", "new-password")
		submit(h, "Create account", "Creating account...", p.Loading)
		h.raw(`<p>Already registered? <a href="/login">Sign in</a></p></form>`)
	})
}

func Dashboard(p account.DashboardParams) templ.Component {
	body := component(func(_ context.Context, h *html) {
		h.raw(`<section class="dashboard">`)
		notice(h, "notice", p.Notice)
		h.raw(`<div class="avatar" aria-hidden="true">`)
		h.text(p.Initial)
		h.raw(`</div><h1>`)
		h.text(p.DisplayName)
		h.raw(`</h1><dl><dt>Email</dt><dd>`)
		if p.User != nil {
			h.text(p.User.Email)
		}
		h.raw(`</dd><dt>Member since</dt><dd>`)
		h.text(p.MemberSince)
		h.raw(`</dd></dl><a class="button" href="/dashboard/profile">Edit profile</a></section>`)
	})
	return layout("Dashboard", true, body)
}

func ProfileForm(p account.ProfileParams) templ.Component {
	return component(func(_ context.Context, h *html) {
		formOpen(h, account.ProfileFormID, "/dashboard/profile")
		h.raw(`<h1>Profile</h1>`)
		notice(h, "notice", p.Success)
		notice(h, "error", p.Message)
		field(h, "Name", "text", "name", p.Form.Name, p.Errors["name"])
		field(h, "Email", "email", "email", p.Form.Email, "", "readonly", "readonly")
		field(h, "Date of birth", "date", "date_of_birth", p.Form.DateOfBirth, p.Errors["date_of_birth"])

		h.raw(`<div class="field"><label for="f-gender">Gender</label><select id="f-gender" name="gender">`)
		h.raw(`<option value="">Select...</option>`)
		for _, g := range p.Genders {
			h.raw(`<option`)
			h.attr("value", g)
			h.flag("selected", g == p.Form.Gender)
			h.raw(`>`)
			h.text(genderLabel(g))
			h.raw(`</option>`)
		}
		h.raw(`</select>`)
		fieldError(h, p.Errors["gender"])
		h.raw(`</div>`)

		h.raw(`<div class="field"><label for="f-bio">Bio</label><textarea id="f-bio" name="bio" maxlength="500">`)
		h.text(p.Form.Bio)
		h.raw(`</textarea>`)
		fieldError(h, p.Errors["bio"])
		h.raw(`</div>`)

		submit(h, "Save changes", "Saving...", p.Loading)
		h.raw(`</form>`)
	})
}

func genderLabel(g string) string {
	if g == "" {
		return g
	}
	s := strings.ReplaceAll(g, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

// ErrorPage renders handler errors for plain requests.
func ErrorPage(p handler.ErrorPageParams) templ.Component {
	body := component(func(_ context.Context, h *html) {
		h.raw(`<section class="error-page"><h1>`)
		h.text(strconv.Itoa(p.StatusCode) + " " + http.StatusText(p.StatusCode))
		h.raw(`</h1><p>`)
		h.text(p.Message)
		h.raw(`</p>`)
		if p.RequestID != "" {
			h.raw(`<p class="muted">Request ID: `)
			h.text(p.RequestID)
			h.raw(`</p>`)
		}
		h.raw(`<a href="/">Back to home</a></section>`)
	})
	return layout("Error", false, body)
}

// ErrorToast renders handler errors for datastar requests.
func ErrorToast(p handler.ErrorToastParams) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<div role="alert"`)
		h.attr("class", "toast toast-"+p.Type)
		h.raw(`>`)
		h.text(p.Message)
		h.raw(`</div>`)
	})
}
