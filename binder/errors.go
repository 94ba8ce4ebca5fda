package binder

import "errors"

var (
	// ErrBinderNotApplicable tells handler.Wrap to skip this binder for the request.
	ErrBinderNotApplicable  = errors.New("binder.not_applicable")
	ErrUnsupportedMediaType = errors.New("binder.unsupported_media_type")
	ErrMissingContentType   = errors.New("binder.missing_content_type")
	ErrInvalidForm          = errors.New("binder.invalid_form")
	ErrInvalidQuery         = errors.New("binder.invalid_query")
)
