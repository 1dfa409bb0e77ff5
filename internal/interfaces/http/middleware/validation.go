package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// UseJSONFieldNames makes gin's validator report fields by their json
// name, or form name for query structs.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
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

// ruleMessages maps validator tags to user-facing text. %s receives the
// rule parameter.
var ruleMessages = map[string]string{
	"required":         "This field is required",
	"email":            "Invalid email format",
	"uuid":             "Invalid UUID format",
	"len":              "Must be exactly %s characters",
	"oneof":            "Must be one of: %s",
	"gt":               "Must be greater than %s",
	"gte":              "Must be greater than or equal to %s",
	"lte":              "Must be less than or equal to %s",
	"min":              "Must be at least %s",
	"max":              "Must be at most %s",
	"iso3166_1_alpha2": "Must be a two-letter country code",
	"alphanum":         "Must be alphanumeric",
}

func ruleMessage(fe validator.FieldError) string {
	msg, ok := ruleMessages[fe.Tag()]
	if !ok {
		return "Invalid value"
	}
	if (fe.Tag() == "min" || fe.Tag() == "max") && fe.Kind() == reflect.String {
		msg += " characters"
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}

// ValidationDetails lists the failed rules of a validator error, or nil for
// any other error.
func ValidationDetails(err error) []dto.ValidationDetail {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	out := make([]dto.ValidationDetail, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = dto.ValidationDetail{Field: fe.Field(), Message: ruleMessage(fe)}
	}
	return out
}

// RespondBindError writes the response for a failed ShouldBind* call
func RespondBindError(c *gin.Context, err error) {
	status, body := bindFailure(err, GetRequestID(c))
	c.JSON(status, body)
}

func bindFailure(err error, requestID string) (int, dto.Response) {
	if details := ValidationDetails(err); details != nil {
		return http.StatusBadRequest, dto.Invalid(requestID, details)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, bodyTooLarge(requestID)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, dto.Fail(dto.ErrCodeInvalidJSON, "Request body is not valid JSON", requestID)
	}
	return http.StatusBadRequest, dto.Fail(dto.ErrCodeBadRequest, err.Error(), requestID)
}
