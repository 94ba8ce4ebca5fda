// Package validator provides declarative field validation.
//
// Rules are plain values built by constructor functions and evaluated by
// Apply, which returns ValidationErrors when any rule fails:
//
//	err := validator.Apply(
//		validator.Required("email", in.Email),
//		validator.ValidEmail("email", in.Email),
//		validator.MinLen("password", in.Password, 8).WithMessage("Password is too short"),
//	)
//	if errs := validator.ExtractValidationErrors(err); errs != nil {
//		msg := errs.First("email")
//	}
//
// Every rule carries a TranslationKey and TranslationValues so callers can
// localize messages. Lengths are measured in runes.
package validator
