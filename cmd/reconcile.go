package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"task-assignment-api.com/task-assignment-api/internal/services"
)

var (
	reconcileAll          bool
	reconcileWorkers      int
	reconcileClearOrphans bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [user-id...]",
	Short: "Re-derive users' pendingTasks from task assignments",
	Long: "Repairs users whose pendingTasks drifted from the tasks assigned to them. " +
		"By default the users recorded in the drift ledger are processed; pass ids " +
		"or --all to choose them explicitly.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.close()

		workers := reconcileWorkers
		if workers <= 0 {
			workers = rt.cfg.ReconcileWorkers
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc := services.NewReconcileService(rt.store, rt.ledger, workers, reconcileClearOrphans, rt.logger)

		var report services.ReconcileReport
		switch {
		case len(args) > 0:
			report = svc.Run(ctx, args)
		case reconcileAll:
			if report, err = svc.All(ctx); err != nil {
				return err
			}
		default:
			if rt.redis == nil {
				rt.logger.Warn("no redis configured, the drift ledger of a running server is not visible here; use --all")
			}
			if report, err = svc.DrainLedger(ctx); err != nil {
				return err
			}
		}

		rt.logger.Info("reconcile finished",
			"checked", report.Checked,
			"repaired", report.Repaired,
			"orphans", report.Orphans,
			"failed", report.Failed)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileAll, "all", false, "reconcile every user and every referenced user id")
	reconcileCmd.Flags().IntVar(&reconcileWorkers, "workers", 0, "number of workers (default RECONCILE_WORKERS)")
	reconcileCmd.Flags().BoolVar(&reconcileClearOrphans, "clear-orphans", false, "unassign tasks that reference missing users")
	rootCmd.AddCommand(reconcileCmd)
}

