package http

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	dto "task-assignment-api.com/task-assignment-api/internal/data_models"
	"task-assignment-api.com/task-assignment-api/internal/query"
	repository "task-assignment-api.com/task-assignment-api/internal/repositories"
	"task-assignment-api.com/task-assignment-api/internal/services"
)

type UserHandler struct {
	users  *services.UserService
	logger *slog.Logger
}

func NewUserHandler(users *services.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) List(c echo.Context) error {
	opts, err := query.ParseOptions(c.QueryParams(), repository.UserSchema)
	if err != nil {
		return err
	}

	data, err := h.users.List(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.NewEnvelope("OK", data))
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	user, err := h.users.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.NewEnvelope("OK", user))
}

func (h *UserHandler) Create(c echo.Context) error {
	var req dto.CreateUserRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.users.Create(c.Request().Context(), services.UserInput{
		Name:         req.Name,
		Email:        req.Email,
		PendingTasks: req.PendingTasks,
	})
	if err := partial(c, h.logger, err); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.NewEnvelope("User created", user))
}

func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.UpdateUserRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	patch := services.UserPatch{Name: req.Name, Email: req.Email}
	if req.PendingTasks != nil {
		patch.PendingTasks = &req.PendingTasks
	}

	user, err := h.users.Update(c.Request().Context(), id, patch)
	if err := partial(c, h.logger, err); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.NewEnvelope("User updated", user))
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	err = h.users.Delete(c.Request().Context(), id)
	if err := partial(c, h.logger, err); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
