package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/seedling/internal/config"
	"github.com/roach88/seedling/internal/loader"
	"github.com/roach88/seedling/internal/registry"
	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/tracing"
)

// session is one configured namespace plus the loader that fills it.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracing *tracing.Provider
	ns      *registry.Namespace
	loader  *loader.Loader

	closeBackend func() error
}

// loadConfig reads the config file and applies the command's overrides.
// A non-empty dir replaces fixtures.root; dryRun forces the memory provider.
func loadConfig(opts *RootOptions, dir string, dryRun bool) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		cfg.Fixtures.Root = dir
	}
	if dryRun {
		cfg.Provider = config.ProviderMemory
	}
	if opts.Verbose {
		cfg.Log.Level = "DEBUG"
	}
	return cfg, nil
}

// openSession wires logging, tracing, the registry and a loader from cfg.
// Failures are reported through f and returned as *ExitError.
func openSession(cfg *config.Config, cmd *cobra.Command, f *OutputFormatter) (*session, error) {
	logger := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	tp, err := tracing.NewProvider(cfg.Tracing, tracing.WithStdoutWriter(cmd.ErrOrStderr()))
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	reg, closeBackend, err := config.CreateRegistry(cfg, registry.WithLogger(logger))
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, f.Fail(ExitCommandError, ErrCodeBackend, err)
	}
	s := &session{
		cfg:          cfg,
		logger:       logger,
		tracing:      tp,
		closeBackend: closeBackend,
	}

	s.ns, err = reg.Namespace(cfg.Provider)
	if err != nil {
		s.close()
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	catalog := schema.NewCatalog()
	if _, err := loader.DefineTypes(catalog, cfg.Fixtures.Types...); err != nil {
		s.close()
		return nil, f.Fail(ExitCommandError, ErrCodeTypes, err)
	}

	s.loader = loader.New(s.ns,
		loader.WithCatalog(catalog),
		loader.WithStrictTypes(cfg.Fixtures.Strict),
		loader.WithLogger(logger),
		loader.WithTracer(tp.Tracer()),
	)
	return s, nil
}

// load runs every script under the configured root.
func (s *session) load(ctx context.Context, f *OutputFormatter) (*loader.Result, error) {
	f.VerboseLog("Loading %s into %s provider", s.cfg.Fixtures.Root, s.cfg.Provider)
	res, err := s.loader.LoadFrom(ctx, s.cfg.Fixtures.Root)
	if err != nil {
		return nil, loadFailure(f, err)
	}
	f.VerboseLog("Ran %d script(s) (run %s)", len(res.Scripts), res.RunID)
	return res, nil
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tracing.Shutdown(ctx); err != nil {
		s.logger.Warn("tracing shutdown failed", "error", err)
	}
	if err := s.closeBackend(); err != nil {
		s.logger.Error("error closing backend", "error", err)
	}
}

// loadFailure reports a failed load. A missing root is a command error;
// anything a script did is a load failure.
func loadFailure(f *OutputFormatter, err error) error {
	var details any
	var le *loader.LoadError
	if errors.As(err, &le) {
		details = map[string]string{"script": le.Path}
	}
	code, exit := ErrCodeLoadFailed, ExitFailure
	if errors.Is(err, fs.ErrNotExist) {
		code, exit = ErrCodeNotFound, ExitCommandError
	}
	_ = f.Error(code, err.Error(), details)
	return WrapExitError(exit, code, err)
}
