// Package identity defines the contract between authgate and the hosted
// identity backend that owns accounts, credential verification, session
// lifecycle and per-account preferences.
//
// A Backend value is bound to one end user: it carries that user's session
// credential (see Backend.Secret) and every call acts on "the current
// account". Implementations live in subpackages:
//
//   - appwrite: REST client for an Appwrite compatible service
//   - memory:   in-process backend for development and tests
//
// Failures reported by the backend are *Error values carrying an HTTP-style
// status code. Transport failures are returned unwrapped; CodeOf reports 0
// for them.
package identity
