package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/staff-assignment/internal/domain"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

var skillTagPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validator wraps a validator instance with the service's custom tags.
type Validator struct {
	validate *validator.Validate
}

// New builds a validator with the custom tags registered.
func New() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	rules := map[string]validator.Func{
		"staff_role": validateStaffRole,
		"skill_tag":  validateSkillTag,
		"weekday":    validateWeekday,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("register validation %q: %w", tag, err)
		}
	}
	return &Validator{validate: v}, nil
}

// MustNew is New for package initialisation; it panics on registration failure.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Struct validates s and converts failures into a VALIDATION_FAILED DomainError
// whose details map field names to the failed tag.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldPath(fe)] = describe(fe)
	}
	return apperrors.NewValidationError("validation failed", details)
}

func validateStaffRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // 'required' handles empties
	}
	return domain.StaffRole(value).Valid()
}

func validateSkillTag(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return len(value) <= 64 && skillTagPattern.MatchString(value)
}

func validateWeekday(fl validator.FieldLevel) bool {
	day := fl.Field().Int()
	return day >= 0 && day <= 6
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "staff_role":
		return "must be one of THERAPIST, DRIVER, MANAGER, ADMIN"
	case "skill_tag":
		return "must be a lowercase dash-separated tag"
	case "weekday":
		return "must be between 0 (Sunday) and 6 (Saturday)"
	case "email":
		return "must be a valid email"
	case "gtfield":
		return "must be after " + fe.Param()
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		}
		return "failed " + fe.Tag()
	}
}
