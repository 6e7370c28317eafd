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

type TaskHandler struct {
	tasks  *services.TaskService
	logger *slog.Logger
}

func NewTaskHandler(tasks *services.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

func (h *TaskHandler) List(c echo.Context) error {
	opts, err := query.ParseOptions(c.QueryParams(), repository.TaskSchema)
	if err != nil {
		return err
	}

	data, err := h.tasks.List(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.NewEnvelope("OK", data))
}

func (h *TaskHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	task, err := h.tasks.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.NewEnvelope("OK", task))
}

func (h *TaskHandler) Create(c echo.Context) error {
	var req dto.CreateTaskRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	task, err := h.tasks.Create(c.Request().Context(), services.TaskInput{
		Name:             req.Name,
		Description:      req.Description,
		Deadline:         req.Deadline.Time,
		Completed:        req.Completed,
		AssignedUser:     req.AssignedUser,
		AssignedUserName: req.AssignedUserName,
	})
	if err := partial(c, h.logger, err); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.NewEnvelope("Task created", task))
}

func (h *TaskHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.UpdateTaskRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	task, err := h.tasks.Update(c.Request().Context(), id, services.TaskPatch{
		Name:             req.Name,
		Description:      req.Description,
		Deadline:         req.Deadline.Value(),
		Completed:        req.Completed,
		AssignedUser:     req.AssignedUser,
		AssignedUserName: req.AssignedUserName,
	})
	if err := partial(c, h.logger, err); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.NewEnvelope("Task updated", task))
}

func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	err = h.tasks.Delete(c.Request().Context(), id)
	if err := partial(c, h.logger, err); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
