// Package errors defines the error taxonomy shared by every core component and
// its translation to transport responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the request boundary.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindDependency     Kind = "dependency"
)

// Error is a classified error with a human message and optional field detail.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two *Error values by kind and message so sentinels work with errors.Is
// even after being wrapped or copied.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Dependency wraps a persistence or collaborator failure.
func Dependency(op string, err error) *Error {
	return &Error{Kind: KindDependency, Message: op, Err: err}
}

var (
	ErrInvalidCredentials = New(KindAuthentication, "invalid credentials")
	ErrUnauthenticated    = New(KindAuthentication, "authentication required")

	ErrUserNotFound         = NotFound("user not found")
	ErrProjectNotFound      = NotFound("project not found")
	ErrTaskNotFound         = NotFound("task not found")
	ErrCommentNotFound      = NotFound("comment not found")
	ErrNotificationNotFound = NotFound("notification not found")
	ErrMemberNotFound       = NotFound("member not found in this project")

	ErrNotProjectOwner     = Forbidden("only the project owner can perform this action")
	ErrNotProjectAdmin     = Forbidden("only project admins can perform this action")
	ErrNotTaskEditor       = Forbidden("not authorized to update this task")
	ErrAssigneeChange      = Forbidden("only project admins can change assignee")
	ErrNotCommentAuthor    = Forbidden("not authorized to update this comment")
	ErrCommentDeleteDenied = Forbidden("not authorized to delete this comment")

	ErrEmailTaken          = Conflict("email already exists")
	ErrAlreadyMember       = Conflict("user is already a member of this project")
	ErrOwnerMembership     = Conflict("project owner cannot be added, removed or re-roled as a member")
	ErrLastAdmin           = Conflict("cannot remove or demote the last project admin")
	ErrAssigneeNotMember   = Conflict("assignee must be a project member")
	ErrParentNotInProject  = Conflict("parent comment not found in this project")
	ErrNestedReply         = Conflict("replies cannot be nested more than one level")
	ErrStaleWrite          = Conflict("resource was modified concurrently, reload and retry")
	ErrPasswordUnchanged   = Validation("newPassword", "new password must differ from the current password")
)

// KindOf returns the kind of err, defaulting to dependency for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

// Is reports whether err has the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ErrorResponse is the JSON body for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// HTTPStatus maps a kind to its transport status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// ToResponse converts err into its status and body. Dependency details are never exposed.
func ToResponse(err error) (int, ErrorResponse) {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindDependency {
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: "service temporarily unavailable",
			Code:  "DEPENDENCY_ERROR",
		}
	}
	return HTTPStatus(e.Kind), ErrorResponse{
		Error: e.Message,
		Code:  code(e.Kind),
		Field: e.Field,
	}
}

func code(kind Kind) string {
	switch kind {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindAuthentication:
		return "AUTHENTICATION_ERROR"
	case KindAuthorization:
		return "AUTHORIZATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	default:
		return "DEPENDENCY_ERROR"
	}
}
