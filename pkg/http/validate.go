package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// one validator for the process; it caches struct metadata internally
var validate = validator.New()

// ReadAndValidateRequest binds path, query and body values into req,
// fills the struct's default tags and validates the result. It returns
// nil on success or a []*AppError ready for BadRequestResponse.
func ReadAndValidateRequest(c echo.Context, req any) any {
	if err := c.Bind(req); err != nil {
		return toFieldErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toFieldErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toFieldErrors(err)
	}
	return nil
}

// toFieldErrors flattens whatever binding or validation produced into
// the API's error shape.
func toFieldErrors(err error) []*AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]*AppError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError(fe))
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprintf("%v", he.Message)
	}
	return []*AppError{NewAppError("ERR_BIND", "", msg, http.StatusBadRequest)}
}

// fieldError renders one violated rule. Only the tags the request
// models actually use get a tailored message; anything else falls back
// to naming the failed tag.
func fieldError(fe validator.FieldError) *AppError {
	field := fe.Field()
	code := "ERR_" + strings.ToUpper(fe.Tag())

	switch fe.Tag() {
	case "required":
		return fieldAppError(code, field, field+" is required")
	case "oneof":
		opts := strings.Split(fe.Param(), " ")
		return fieldAppError(code, field,
			fmt.Sprintf("%s must be one of: %s", field, strings.Join(opts, ", "))).
			WithParam("options", opts)
	case "gt":
		return fieldAppError(code, field,
			fmt.Sprintf("%s must be greater than %s", field, fe.Param())).
			WithParam("value", fe.Param())
	case "gte":
		return fieldAppError(code, field,
			fmt.Sprintf("%s must be at least %s", field, fe.Param())).
			WithParam("min", fe.Param())
	case "lt":
		return fieldAppError(code, field,
			fmt.Sprintf("%s must be less than %s", field, fe.Param())).
			WithParam("value", fe.Param())
	case "lte":
		return fieldAppError(code, field,
			fmt.Sprintf("%s must be at most %s", field, fe.Param())).
			WithParam("max", fe.Param())
	default:
		return fieldAppError(code, field,
			fmt.Sprintf("%s failed validation on %s", field, fe.Tag()))
	}
}

func fieldAppError(code, field, message string) *AppError {
	return NewAppError(code, field, message, http.StatusBadRequest)
}
