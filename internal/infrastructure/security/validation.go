// Package security provides input validation, CSRF protection, rate limiting
// and response hardening for the web frontend
package security

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/pantrypilot/web/pkg/errors"
)

// Validator validates form and request structs
type Validator struct {
	logger    *zap.Logger
	validator *validator.Validate
}

// NewValidator creates a validator with the custom rules registered
func NewValidator(logger *zap.Logger) *Validator {
	validate := validator.New()

	// Report json names so messages match the form field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	validate.RegisterValidation("tag", validateTag)
	validate.RegisterValidation("no_xss", validateNoXSS)

	return &Validator{
		logger:    logger,
		validator: validate,
	}
}

// Struct validates s and returns a validation AppError whose message is the
// first failing field's message
func (v *Validator) Struct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return apperrors.Wrap(err, "validation failed")
	}

	errs := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, apperrors.ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	v.logger.Debug("Validation failed", zap.Int("errors", len(errs)), zap.String("first", errs[0].Message))
	return apperrors.NewValidationErrors(errs)
}

// Var validates a single value against tag
func (v *Validator) Var(value interface{}, tag string) error {
	return v.validator.Var(value, tag)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Please enter a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s item(s)", field, fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s allows at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "eqfield":
		return "Passwords do not match"
	case "tag", "no_xss":
		return fmt.Sprintf("%s contains unsupported characters", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

// validateTag accepts short free-text tags such as ingredient names
func validateTag(fl validator.FieldLevel) bool {
	tag := fl.Field().String()
	if len(tag) < 1 || len(tag) > 100 {
		return false
	}
	return !containsMarkup(tag)
}

// validateNoXSS rejects values carrying markup or script handlers
func validateNoXSS(fl validator.FieldLevel) bool {
	return !containsMarkup(fl.Field().String())
}

var markupPatterns = []string{
	"<", ">", "javascript:", "vbscript:",
	"onload=", "onerror=", "onclick=", "onmouseover=",
}

func containsMarkup(value string) bool {
	lower := strings.ToLower(value)
	for _, pattern := range markupPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
