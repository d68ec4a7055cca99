package access

import "net/http"

// FailureKind classifies an authorization failure.
type FailureKind string

const (
	KindTokenMissing            FailureKind = "TOKEN_MISSING"
	KindTokenInvalid            FailureKind = "TOKEN_INVALID"
	KindAccountNotFound         FailureKind = "USER_NOT_FOUND"
	KindRoleMismatch            FailureKind = "ROLE_CHANGED"
	KindInsufficientPermissions FailureKind = "INSUFFICIENT_PERMISSIONS"
)

// AuthFailure is a terminal authorization outcome. Failures match under
// errors.Is when their kinds are equal.
type AuthFailure struct {
	Kind    FailureKind
	Message string
}

var (
	ErrTokenMissing            = &AuthFailure{Kind: KindTokenMissing, Message: "authorization token is required"}
	ErrTokenInvalid            = &AuthFailure{Kind: KindTokenInvalid, Message: "invalid or expired token"}
	ErrAccountNotFound         = &AuthFailure{Kind: KindAccountNotFound, Message: "user not found or inactive"}
	ErrRoleMismatch            = &AuthFailure{Kind: KindRoleMismatch, Message: "user role has changed, please log in again"}
	ErrInsufficientPermissions = &AuthFailure{Kind: KindInsufficientPermissions, Message: "insufficient permissions"}
)

func (f *AuthFailure) Error() string { return f.Message }

// Is matches failures by kind.
func (f *AuthFailure) Is(target error) bool {
	t, ok := target.(*AuthFailure)
	return ok && t.Kind == f.Kind
}

// HTTPStatus maps the failure to a response status.
func (f *AuthFailure) HTTPStatus() int {
	switch f.Kind {
	case KindAccountNotFound:
		return http.StatusNotFound
	case KindInsufficientPermissions:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

// ErrorCode returns the machine readable kind.
func (f *AuthFailure) ErrorCode() string { return string(f.Kind) }
