package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse is the envelope around every API body. Status repeats the
// HTTP status code so clients behind status-rewriting proxies can still
// tell success from failure.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    any `json:"data,omitempty"`
}

// DataResponse writes data inside the envelope with the given status on
// the wire. Failure bodies carry a list of AppError values.
func DataResponse(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes a 200 response.
func SuccessResponse(c echo.Context, data any) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse writes a 400 response. Callers pass the AppError
// list produced by request validation.
func BadRequestResponse(c echo.Context, data any) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// InternalServerErrorResponse writes a 500 response without leaking the
// cause to the client.
func InternalServerErrorResponse(c echo.Context) error {
	return DataResponse(c, http.StatusInternalServerError, []*AppError{
		InternalError("something went wrong"),
	})
}

// AppErrorResponse writes err with its own status when it carries one.
// Deadline errors surface as 503 since the backing store timed out;
// anything else is a 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return DataResponse(c, appErr.Status, []*AppError{appErr})
	case errors.Is(err, context.DeadlineExceeded):
		serr := UnavailableError("backing store timed out").WithError(err)
		return DataResponse(c, serr.Status, []*AppError{serr})
	default:
		return InternalServerErrorResponse(c)
	}
}
