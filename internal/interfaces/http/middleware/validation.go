package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/grocery/backend/internal/infrastructure/logger"
	"github.com/grocery/backend/internal/interfaces/http/dto"
)

// SetupValidator makes gin's validator report fields by their JSON name,
// or their query name for form-bound structs.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return ""
	})
}

// IsValidationError reports whether err came from struct validation rather than decoding
func IsValidationError(err error) bool {
	var fieldErrs validator.ValidationErrors
	return errors.As(err, &fieldErrs)
}

// HandleValidationError answers 400 with one detail per failed field
func HandleValidationError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	errors.As(err, &fieldErrs)

	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{
			Field:   fieldPath(fe),
			Message: describe(fe),
		})
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		c.GetString(logger.GinRequestIDKey),
		details,
	))
}

// fieldPath drops the struct name from the namespace, so nested invoice
// items read as "items[1].quantity".
func fieldPath(fe validator.FieldError) string {
	if _, path, ok := strings.Cut(fe.Namespace(), "."); ok {
		return path
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	p := fe.Param()
	isText := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "url":
		return "Invalid URL format"
	case "uuid":
		return "Invalid UUID format"
	case "numeric":
		return "Must be numeric"
	case "oneof":
		return "Must be one of: " + p
	case "len":
		if isText {
			return "Must be exactly " + p + " characters"
		}
		return "Must contain exactly " + p + " items"
	case "min":
		if isText {
			return "Must be at least " + p + " characters"
		}
		return "Must be at least " + p
	case "max":
		if isText {
			return "Must be at most " + p + " characters"
		}
		return "Must be at most " + p
	case "gt":
		return "Must be greater than " + p
	case "gte":
		return "Must be greater than or equal to " + p
	case "lt":
		return "Must be less than " + p
	case "lte":
		return "Must be less than or equal to " + p
	}
	return "Invalid value"
}
