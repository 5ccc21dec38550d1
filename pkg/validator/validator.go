package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
	Kind        reflect.Kind
}

var (
	validate     = validator.New()
	roleNameExpr = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

func init() {
	// Report fields by their JSON name so errors line up with form inputs
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Register custom validation for UUID
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		if s, ok := fl.Field().Interface().(string); ok {
			id, err := uuid.Parse(s)
			return err == nil && id != uuid.Nil
		}
		return false
	})

	// Role names are UPPER_SNAKE identifiers
	validate.RegisterValidation("role_name", func(fl validator.FieldLevel) bool {
		return roleNameExpr.MatchString(fl.Field().String())
	})
}

// ValidRoleName reports whether name is an UPPER_SNAKE identifier.
func ValidRoleName(name string) bool {
	return roleNameExpr.MatchString(name)
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: "", Tag: "invalid", Value: err.Error()}}
		}
		for _, err := range verrs {
			var element ErrorResponse
			element.FailedField = fieldPath(err.Namespace())
			element.Tag = err.Tag()
			element.Value = err.Param()
			element.Kind = err.Kind()
			errors = append(errors, &element)
		}
	}
	return errors
}

// fieldPath drops the top-level struct name from a namespace like
// "createRoleInput.name".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Message renders a short human sentence for a failed tag.
func Message(e *ErrorResponse) string {
	switch e.Tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + e.Value + " characters"
	case "min":
		if e.Kind == reflect.Slice || e.Kind == reflect.Array {
			return "must have at least " + e.Value + " entries"
		}
		return "must be at least " + e.Value + " characters"
	case "role_name":
		return "must start with a letter and contain only letters, digits and underscores"
	case "uuid_required":
		return "must be a valid id"
	}
	return "is invalid"
}
