package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	dto "task-assignment-api.com/task-assignment-api/internal/data_models"
	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
)

// ErrorHandler renders every failure as an envelope with empty data.
// Causes of server errors are logged and never sent to the client.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := apperrors.StatusCode(err)
		message := apperrors.Message(err)

		var (
			appErr *apperrors.Exception
			he     *echo.HTTPError
		)
		if !errors.As(err, &appErr) && errors.As(err, &he) {
			status = he.Code
			message = fmt.Sprint(he.Message)
		}

		if status >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"kind", apperrors.KindOf(err).String(),
				"error", err.Error())
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, dto.NewEnvelope(message, nil))
		}
		if err != nil {
			logger.Error("failed to write error response", "error", err.Error())
		}
	}
}
