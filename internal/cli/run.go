package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge/internal/assemble"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/logging"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/server"
	"github.com/reelforge/reelforge/internal/types"
)

// setup loads the config and builds the logger from the persistent flags.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	cfg.ApplyEnv()
	return cfg, logging.New(level), nil
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newAssembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assemble <job-dir>",
		Short: "Assemble the video described by <job-dir>/job.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			res, err := pipeline.Run(ctx, pipeline.Config{JobDir: dir, App: cfg, Log: log})
			if err != nil {
				return err
			}
			report(cmd, res)
			return nil
		},
	}
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Assemble every job directory under <dir>, isolating failures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			retries, _ := cmd.Flags().GetInt("retries")

			ctx, cancel := signalContext()
			defer cancel()

			outcomes, err := pipeline.RunBatch(ctx, root, cfg, log, retries)
			if err != nil {
				return err
			}

			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", o.Dir, o.Err)
					continue
				}
				report(cmd, o.Result)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", failed, len(outcomes))
			}
			return nil
		},
	}
	cmd.Flags().Int("retries", 0, "Extra attempts per failed job")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for submitting and polling jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("addr")

			run := func(ctx context.Context, dir string, progress assemble.ProgressFunc) (types.AssemblyResult, error) {
				return pipeline.Run(ctx, pipeline.Config{
					JobDir:   dir,
					App:      cfg,
					Log:      log,
					Progress: progress,
				})
			}
			return server.New(run, log).ListenAndServe(addr)
		},
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	return cmd
}

// report prints the outcome of one job. Validation issues are advisory:
// the file stays on disk and the exit code stays zero.
func report(cmd *cobra.Command, res types.AssemblyResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "wrote %s\n", res.OutputPath)
	if !res.Validation.Passed {
		for _, issue := range res.Validation.Issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "validation: %s\n", issue)
		}
	}
}
