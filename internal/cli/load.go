package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/seedling/internal/config"
	"github.com/roach88/seedling/internal/watcher"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Watch bool
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load [dir]",
		Short: "Load fixture scripts into the configured provider",
		Long: `Run every fixture script under dir (default fixtures.root) in ascending
path order against the configured provider.

With the records provider the fixtures are written to the configured
database; reloading replaces each label's row in place.

Example:
  seedling load db/seeds
  seedling load --watch --verbose`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, dirArg(args), cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "reload when scripts change")

	return cmd
}

func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runLoad(opts *LoadOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, dir, false)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !opts.Watch {
		return loadOnce(ctx, cfg, cmd, formatter)
	}
	return watchLoad(ctx, cfg, cmd, formatter)
}

func loadOnce(ctx context.Context, cfg *config.Config, cmd *cobra.Command, f *OutputFormatter) error {
	s, err := openSession(cfg, cmd, f)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.load(ctx, f)
	if err != nil {
		return err
	}
	return f.SuccessRun(res.RunID, newLoadSummary(s.ns, res))
}

// watchLoad loads once, then reloads into a fresh session after every
// debounced change until interrupted. Load failures are reported and the
// watch continues.
func watchLoad(ctx context.Context, cfg *config.Config, cmd *cobra.Command, f *OutputFormatter) error {
	w, err := watcher.New(watcher.Config{
		Root:        cfg.Fixtures.Root,
		DebounceDur: cfg.Fixtures.Debounce,
	})
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return f.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := loadOnce(ctx, cfg, cmd, f); err != nil && GetExitCode(err) == ExitCommandError {
		return err
	}
	f.VerboseLog("Watching %s for changes", cfg.Fixtures.Root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigChan:
			return nil
		case <-changes:
			f.VerboseLog("Change detected, reloading")
			if err := loadOnce(ctx, cfg, cmd, f); err != nil && GetExitCode(err) == ExitCommandError {
				return err
			}
		case err := <-w.Errors():
			f.VerboseLog("watch error: %v", err)
		}
	}
}
