package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "task-assignment-api.com/task-assignment-api/internal/http"
	"task-assignment-api.com/task-assignment-api/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the task and user HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.close()

		cfg := rt.cfg
		engine := services.NewConsistencyEngine(rt.store, rt.ledger, cfg.Transactions, rt.logger)
		taskService := services.NewTaskService(rt.store, engine, cfg.StrictAssignment, cfg.TaskDefaultLimit)
		userService := services.NewUserService(rt.store, engine)

		e := httpapi.NewServer(rt.logger, cfg.RateLimit)
		httpapi.Register(e, cfg.APIPrefix, rt.store,
			httpapi.NewTaskHandler(taskService, rt.logger),
			httpapi.NewUserHandler(userService, rt.logger),
		)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		serveErr := make(chan error, 1)
		go func() {
			rt.logger.Info("HTTP server listening", "addr", cfg.AppURL, "prefix", cfg.APIPrefix)
			if err := e.Start(cfg.AppURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			rt.logger.Error("HTTP server shutdown failed", "error", err.Error())
		}

		if size, err := rt.ledger.Size(shutdownCtx); err == nil && size > 0 {
			rt.logger.Warn("users awaiting reconcile", "count", size)
		}

		rt.logger.Info("HTTP server shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
