// Package forms declares the input forms of the account pages and the
// rules each field must satisfy. Validate methods return
// validator.ValidationErrors keyed by the form field name.
package forms

import (
	"strings"
	"time"

	"github.com/dmitrymomot/authgate/pkg/validator"
)

// Gender options accepted by the profile form.
var Genders = []string{"male", "female", "other", "prefer_not_to_say"}

const (
	MinPasswordLength = 8
	MaxNameLength     = 100
	MaxBioLength      = 500
	MinAge            = 13
)

// Login is the sign-in form.
type Login struct {
	Email      string `form:"email"`
	Password   string `form:"password"`
	RememberMe bool   `form:"remember_me"`
}

func (f *Login) Normalize() {
	f.Email = strings.TrimSpace(f.Email)
}

func (f Login) Validate() error {
	return validator.Apply(append(emailRules("email", f.Email), passwordRules("password", f.Password)...)...)
}

// Register is the sign-up form.
type Register struct {
	Name            string `form:"name"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

func (f *Register) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
}

func (f Register) Validate() error {
	rules := nameRules("name", f.Name)
	rules = append(rules, emailRules("email", f.Email)...)
	rules = append(rules, strongPasswordRules("password", f.Password)...)
	rules = append(rules, confirmRule("confirm_password", f.ConfirmPassword, f.Password))
	return validator.Apply(rules...)
}

// Profile is the profile editing form. Email is displayed but not editable.
type Profile struct {
	Name        string `form:"name"`
	Email       string `form:"email"`
	Bio         string `form:"bio"`
	DateOfBirth string `form:"date_of_birth"`
	Gender      string `form:"gender"`
}

func (f *Profile) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.DateOfBirth = strings.TrimSpace(f.DateOfBirth)
}

func (f Profile) Validate() error {
	return f.ValidateAt(time.Now())
}

// ValidateAt validates the form with ages computed at now.
func (f Profile) ValidateAt(now time.Time) error {
	rules := nameRules("name", f.Name)
	rules = append(rules, emailRules("email", f.Email)...)
	rules = append(rules,
		validator.MaxLen("bio", f.Bio, MaxBioLength).WithMessage("Bio must be less than 500 characters"),
		validator.Required("date_of_birth", f.DateOfBirth).WithMessage("Date of birth is required"),
		validator.ValidDate("date_of_birth", f.DateOfBirth, validator.DateLayout).WithMessage("Please enter a valid date"),
		validator.MinAge("date_of_birth", f.DateOfBirth, MinAge, now).WithMessage("You must be at least 13 years old"),
		validator.Required("gender", f.Gender).WithMessage("Gender is required"),
		validator.OneOf("gender", f.Gender, Genders).WithMessage("Please select a valid option"),
	)
	return validator.Apply(rules...)
}

// PasswordChange is the change-password form.
type PasswordChange struct {
	CurrentPassword    string `form:"current_password"`
	NewPassword        string `form:"new_password"`
	ConfirmNewPassword string `form:"confirm_new_password"`
}

func (f PasswordChange) Validate() error {
	rules := passwordRules("current_password", f.CurrentPassword)
	rules = append(rules, strongPasswordRules("new_password", f.NewPassword)...)
	rules = append(rules, confirmRule("confirm_new_password", f.ConfirmNewPassword, f.NewPassword))
	return validator.Apply(rules...)
}

func emailRules(field, value string) []validator.Rule {
	return []validator.Rule{
		validator.Required(field, value).WithMessage("Email is required"),
		validator.ValidEmail(field, value).WithMessage("Please enter a valid email address"),
	}
}

func passwordRules(field, value string) []validator.Rule {
	return []validator.Rule{
		validator.MinLen(field, value, 1).WithMessage("Password is required"),
		validator.MinLen(field, value, MinPasswordLength).WithMessage("Password must be at least 8 characters"),
	}
}

func strongPasswordRules(field, value string) []validator.Rule {
	return append(passwordRules(field, value),
		validator.ContainsUppercase(field, value).WithMessage("Password must contain at least one uppercase letter"),
		validator.ContainsLowercase(field, value).WithMessage("Password must contain at least one lowercase letter"),
		validator.ContainsDigit(field, value).WithMessage("Password must contain at least one number"),
	)
}

func nameRules(field, value string) []validator.Rule {
	return []validator.Rule{
		validator.Required(field, value).WithMessage("Name is required"),
		validator.MaxLen(field, value, MaxNameLength).WithMessage("Name must be less than 100 characters"),
	}
}

func confirmRule(field, value, password string) validator.Rule {
	return validator.EqualTo(field, value, "password", password).WithMessage("Passwords do not match")
}
