package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	dto "task-assignment-api.com/task-assignment-api/internal/data_models"
	middleware "task-assignment-api.com/task-assignment-api/internal/http/middlewares"
	"task-assignment-api.com/task-assignment-api/internal/http/validators"
	repository "task-assignment-api.com/task-assignment-api/internal/repositories"
)

const healthPath = "/health"

// NewServer builds the echo instance with the error handler, validator and
// middleware stack every route shares.
func NewServer(logger *slog.Logger, rateLimitPerMinute int) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.New()
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.RateLimiter(rateLimitPerMinute, time.Minute, healthPath))
	return e
}

func Register(e *echo.Echo, prefix string, store *repository.Store, tasks *TaskHandler, users *UserHandler) {
	e.GET(healthPath, health(store))

	api := e.Group(prefix)

	t := api.Group("/tasks")
	t.GET("", tasks.List)
	t.POST("", tasks.Create)
	t.GET("/:id", tasks.Get)
	t.PUT("/:id", tasks.Update)
	t.DELETE("/:id", tasks.Delete)

	u := api.Group("/users")
	u.GET("", users.List)
	u.POST("", users.Create)
	u.GET("/:id", users.Get)
	u.PUT("/:id", users.Update)
	u.DELETE("/:id", users.Delete)
}

func health(store *repository.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, dto.NewEnvelope("Store unavailable", nil))
		}
		return c.JSON(http.StatusOK, dto.NewEnvelope("OK", map[string]string{"status": "ok"}))
	}
}
