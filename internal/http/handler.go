package http

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"task-assignment-api.com/task-assignment-api/internal/constants"
	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
)

func parseID(c echo.Context) (string, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return "", apperrors.ErrInvalidID
	}
	return id.String(), nil
}

func bindBody(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.Malformed("Bad request", err)
	}
	return nil
}

// partial lets a request whose primary write succeeded answer normally when
// only the reciprocal update failed, flagging it in a response header.
func partial(c echo.Context, logger *slog.Logger, err error) error {
	rec, ok := apperrors.AsReciprocal(err)
	if !ok {
		return err
	}

	c.Response().Header().Set(constants.ConsistencyWarningHeader, fmt.Sprintf("%s not applied to user %s", rec.Op, rec.UserID))
	logger.WarnContext(c.Request().Context(), "responding with stale reciprocal data",
		"path", c.Path(),
		"op", rec.Op,
		"user_id", rec.UserID)
	return nil
}
