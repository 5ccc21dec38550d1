package service

import (
	"errors"
	"fmt"
	"strings"

	"go-pos-access/pkg/validator"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSessionTimeout     = errors.New("session expired due to inactivity")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
)

// FieldError is one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input. It lists every offending field
// so a form can mark all of them at once.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field is among the offending fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, message string) {
	for _, f := range e.Fields {
		if f.Field == field {
			return
		}
	}
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// orNil returns e when it holds at least one field.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// validationFrom converts struct validation results.
func validationFrom(errs []*validator.ErrorResponse) *ValidationError {
	verr := &ValidationError{}
	for _, e := range errs {
		verr.add(e.FailedField, validator.Message(e))
	}
	return verr
}

// ProtectedRoleError rejects edits to system roles. Nothing is written when
// it is returned.
type ProtectedRoleError struct {
	Role   string
	Action string
}

func (e *ProtectedRoleError) Error() string {
	return fmt.Sprintf("role %s is protected: cannot %s", e.Role, e.Action)
}

// NotFoundError means the referenced record no longer exists, typically
// because it was removed concurrently.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// RoleInUseError blocks deleting a role that users still hold.
type RoleInUseError struct {
	Role    string
	Holders int64
}

func (e *RoleInUseError) Error() string {
	return fmt.Sprintf("role %s is still assigned to %d user(s)", e.Role, e.Holders)
}

// RoleGrantError refuses assigning a role that allows more than the caller
// holds. Nothing is written when it is returned.
type RoleGrantError struct {
	Role string
}

func (e *RoleGrantError) Error() string {
	return fmt.Sprintf("cannot assign role %s: it grants access you do not hold", e.Role)
}

// UserAccessError refuses editing a user who holds access the caller lacks.
type UserAccessError struct {
	UserID string
}

func (e *UserAccessError) Error() string {
	return fmt.Sprintf("cannot modify user %s: they hold access you do not", e.UserID)
}
