package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/labstack/echo/v4"
)

const (
	msgRouteNotFound = "Route not found"
	msgInternal      = "Internal server error"
)

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// statusFor maps an error onto a status code and a client-safe body.
func statusFor(err error) (int, errorBody) {
	var gerr *goerrors.Error
	if errors.As(err, &gerr) {
		switch gerr.Category {
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return http.StatusBadRequest, errorBody{Message: gerr.Message, Code: gerr.TextCode}
		case goerrors.CategoryNotFound:
			return http.StatusNotFound, errorBody{Message: gerr.Message, Code: gerr.TextCode}
		case goerrors.CategoryConflict:
			return http.StatusConflict, errorBody{Message: gerr.Message, Code: gerr.TextCode}
		case goerrors.CategoryRateLimit:
			return http.StatusTooManyRequests, errorBody{Message: gerr.Message, Code: gerr.TextCode}
		default:
			return http.StatusInternalServerError, errorBody{Message: msgInternal}
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound:
			return http.StatusNotFound, errorBody{Message: msgRouteNotFound}
		case http.StatusInternalServerError:
			return http.StatusInternalServerError, errorBody{Message: msgInternal}
		default:
			return he.Code, errorBody{Message: fmt.Sprint(he.Message)}
		}
	}

	return http.StatusInternalServerError, errorBody{Message: msgInternal}
}

// errorHandler renders every handler error as the JSON envelope.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("write error response", slog.Any("error", err))
		}
	}
}
