package domain

import (
	"errors"
	"fmt"
)

// ErrKind groups errors by how transports report them.
type ErrKind string

// HTTP mapping lives in the response package; conflicts answer 400.
const (
	KindValidation     ErrKind = "validation"
	KindAuth           ErrKind = "auth"
	KindForbidden      ErrKind = "forbidden"
	KindNotFound       ErrKind = "not_found"
	KindConflict       ErrKind = "conflict"
	KindRateLimited    ErrKind = "rate_limited"
	KindDependency     ErrKind = "dependency"
	KindInfrastructure ErrKind = "infrastructure"
	KindInternal       ErrKind = "internal"
)

// Error carries a stable machine Code and a client-safe Message. Cause is
// for logs only and never reaches a response body.
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + " (" + e.Code + "): " + e.Message
	if e.Cause == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by Code, so errors.Is(err, ErrUserNotFound())
// works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

// WithMeta merges meta into err's details; later keys win.
func WithMeta(err *Error, meta map[string]string) *Error {
	if len(meta) == 0 {
		return err
	}
	merged := make(map[string]string, len(err.Meta)+len(meta))
	for k, v := range err.Meta {
		merged[k] = v
	}
	for k, v := range meta {
		merged[k] = v
	}
	err.Meta = merged
	return err
}

// Is reports whether err is a domain error with the given code.
func Is(err error, code string) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// KindOf returns the kind of a domain error, or KindInternal for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// ----------------------
// Validation errors (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

func ErrWeakPassword(reason string) *Error {
	return WithMeta(New(KindValidation, "weak_password", "password does not meet requirements"), map[string]string{
		"reason": reason,
	})
}

func ErrInvalidAction(action string) *Error {
	return WithMeta(New(KindValidation, "invalid_action", "action must be approve or reject"), map[string]string{
		"action": action,
	})
}

func ErrRepresentativeRequired() *Error {
	return New(KindValidation, "representative_required", "a representative must be selected when approving")
}

func ErrInvalidRepresentative(id string) *Error {
	return WithMeta(New(KindValidation, "invalid_representative", "invalid representative selected"), map[string]string{
		"representative_id": id,
	})
}

// Reset tokens are supplied in a request body, so an unknown or stale one is a 400.
func ErrResetTokenInvalid() *Error {
	return New(KindValidation, "invalid_or_expired_token", "invalid or expired reset token")
}

// ----------------------
// Auth errors (401)
// ----------------------

// IMPORTANT: use this for login failures to avoid user enumeration.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, "invalid_credentials", "invalid email or password")
}

func ErrPendingApproval() *Error {
	return WithMeta(New(KindAuth, "pending_approval", "account is pending admin approval"), map[string]string{
		"verificationStatus": string(StatusPending),
	})
}

func ErrAccountRejected() *Error {
	return WithMeta(New(KindAuth, "account_rejected", "account registration was rejected"), map[string]string{
		"verificationStatus": string(StatusRejected),
	})
}

func ErrNotVerified() *Error {
	return WithMeta(New(KindAuth, "not_verified", "account is not verified"), map[string]string{
		"verificationStatus": "not_verified",
	})
}

func ErrTokenMissing() *Error {
	return New(KindAuth, "token_missing", "no token provided")
}

func ErrTokenInvalid() *Error {
	return New(KindAuth, "token_invalid", "invalid token")
}

func ErrTokenExpired() *Error {
	return New(KindAuth, "token_expired", "token is expired")
}

// A valid session whose user no longer exists.
func ErrSessionUserGone() *Error {
	return New(KindAuth, "user_not_found", "user not found")
}

// ----------------------
// Forbidden (403)
// ----------------------

func ErrForbidden() *Error {
	return New(KindForbidden, "forbidden", "forbidden")
}

func ErrAdminRequired() *Error {
	return New(KindForbidden, "admin_required", "admin access required")
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

func ErrRepresentativeNotFound() *Error {
	return New(KindNotFound, "representative_not_found", "representative not found")
}

func ErrVerifyTokenNotFound() *Error {
	return New(KindNotFound, "verify_token_not_found", "invalid or expired verification link")
}

// ----------------------
// Conflict (400)
// ----------------------

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, "email_already_exists", "a user with this email already exists")
}

func ErrAlreadyResolved(status VerificationStatus) *Error {
	return WithMeta(New(KindConflict, "already_resolved", "user has already been "+string(status)), map[string]string{
		"verificationStatus": string(status),
	})
}

func ErrAlreadySeeded() *Error {
	return New(KindConflict, "already_seeded", "representatives already exist")
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrRateLimited(scope string) *Error {
	return WithMeta(New(KindRateLimited, "rate_limited", "too many requests"), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Dependency / infrastructure / internal (5xx)
// ----------------------

func ErrNotificationFailed(cause error) *Error {
	return Wrap(KindDependency, "notification_failed", "failed to send email", cause)
}

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrRabbitUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "rabbit_unavailable", "message broker unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
