package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/interfaces/http/dto"
)

// SetupValidator configures gin's validator: JSON (or form) names in field
// errors and the "period" tag for YYYY-MM strings
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("period", validatePeriod)
}

func validatePeriod(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	_, err := billing.ParsePeriod(fl.Field().String())
	return err == nil
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes the 400 response for a failed ShouldBind call.
// Body decoding errors get ERR_INVALID_JSON, tag violations ERR_VALIDATION
// with per-field details.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
		return
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", requestID))
		return
	}

	message := "Malformed request body"
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		message = "Field " + typeErr.Field + " has the wrong type"
	case errors.As(err, &syntaxErr):
		message = "Request body is not valid JSON"
	case err.Error() != "":
		message = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInvalidJSON, message, requestID))
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "period":
		return "Must be a period in YYYY-MM format"
	default:
		return "Invalid value"
	}
}
