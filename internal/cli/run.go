package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/citysync/internal/config"
	"github.com/example/citysync/internal/ports/primary"
	"github.com/example/citysync/internal/wire"
)

type runOptions struct {
	strategy      string
	concurrency   int
	delay         time.Duration
	userDelay     time.Duration
	batchSize     int
	pageSize      int
	progressEvery int
	probeTimeout  time.Duration
	dryRun        bool
	statusAddr    string
}

// RunCmd returns the run command
func RunCmd() *cobra.Command {
	return newRunCmd(&runOptions{})
}

func newRunCmd(opts *runOptions) *cobra.Command {
	defaults := config.Default().Reconcile

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile user cities against chat membership",
		Long: `Probe every subscribed user without a city chat against the city chat
directory and record the first chat they belong to.

Progress is committed every --batch-size users, so an interrupted run can
simply be started again. Users without any matching chat stay pending and
are probed again on the next run.

Examples:
  citysync run
  citysync run --strategy parallel --concurrency 5 --delay 50ms
  citysync run --dry-run --status-addr :8081`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			req := buildRunRequest(cmd, wire.Config().Reconcile, *opts)
			return runReconcile(ctx, req, opts.statusAddr)
		},
	}

	cmd.Flags().StringVar(&opts.strategy, "strategy", defaults.Strategy, "probe strategy: sequential or parallel")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", defaults.Concurrency, "max in-flight probes (parallel only)")
	cmd.Flags().DurationVar(&opts.delay, "delay", defaults.CallDelay, "minimum spacing between platform calls")
	cmd.Flags().DurationVar(&opts.userDelay, "user-delay", defaults.UserDelay, "pause after each user")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", defaults.BatchSize, "users per committed batch")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", defaults.PageSize, "candidates fetched per query (0 = all at once)")
	cmd.Flags().IntVar(&opts.progressEvery, "progress-every", defaults.ProgressEvery, "log progress every N users")
	cmd.Flags().DurationVar(&opts.probeTimeout, "probe-timeout", defaults.ProbeTimeout, "deadline for a single membership call")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "probe and log updates without writing them")
	cmd.Flags().StringVar(&opts.statusAddr, "status-addr", "", "serve /healthz and /progress on this address during the run")

	return cmd
}

// buildRunRequest starts from the loaded config and overrides it with the
// flags the user actually set.
func buildRunRequest(cmd *cobra.Command, rc config.ReconcileConfig, opts runOptions) primary.RunRequest {
	req := primary.RunRequest{
		Strategy:      rc.Strategy,
		Concurrency:   rc.Concurrency,
		CallDelay:     rc.CallDelay,
		UserDelay:     rc.UserDelay,
		BatchSize:     rc.BatchSize,
		PageSize:      rc.PageSize,
		ProgressEvery: rc.ProgressEvery,
		ProbeTimeout:  rc.ProbeTimeout,
		DryRun:        opts.dryRun,
	}

	flags := cmd.Flags()
	if flags.Changed("strategy") {
		req.Strategy = opts.strategy
	}
	if flags.Changed("concurrency") {
		req.Concurrency = opts.concurrency
	}
	if flags.Changed("delay") {
		req.CallDelay = opts.delay
	}
	if flags.Changed("user-delay") {
		req.UserDelay = opts.userDelay
	}
	if flags.Changed("batch-size") {
		req.BatchSize = opts.batchSize
	}
	if flags.Changed("page-size") {
		req.PageSize = opts.pageSize
	}
	if flags.Changed("progress-every") {
		req.ProgressEvery = opts.progressEvery
	}
	if flags.Changed("probe-timeout") {
		req.ProbeTimeout = opts.probeTimeout
	}
	return req
}

func runReconcile(ctx context.Context, req primary.RunRequest, statusAddr string) error {
	adapter, err := wire.ReconcileAdapter(ctx)
	if err != nil {
		return err
	}
	if statusAddr == "" {
		return adapter.Run(ctx, req)
	}

	server, err := wire.StatusServer(ctx, statusAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(gctx)
	g.Go(func() error {
		return server.Serve(serverCtx)
	})
	g.Go(func() error {
		defer stopServer()
		return adapter.Run(gctx, req)
	})
	return g.Wait()
}
