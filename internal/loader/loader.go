package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/seedling/internal/registry"
	"github.com/roach88/seedling/internal/schema"
)

// Interpreter executes one script against env.
type Interpreter interface {
	Exec(ctx context.Context, env *Env, src []byte) error
}

// InterpreterFunc adapts a function to Interpreter.
type InterpreterFunc func(ctx context.Context, env *Env, src []byte) error

// Exec calls f.
func (f InterpreterFunc) Exec(ctx context.Context, env *Env, src []byte) error {
	return f(ctx, env, src)
}

// Loader runs definition scripts against one namespace.
type Loader struct {
	ns           *registry.Namespace
	catalog      *schema.Catalog
	interpreters map[string]Interpreter
	strict       bool
	runIDs       RunIDGenerator
	logger       *slog.Logger
	tracer       trace.Tracer
}

// Option configures a Loader.
type Option func(*Loader)

// WithCatalog shares a type catalog across loads. Types declared in CUE type
// files are usually defined here before loading.
func WithCatalog(c *schema.Catalog) Option {
	return func(l *Loader) {
		l.catalog = c
	}
}

// WithInterpreter sets the interpreter for a file extension such as ".toml".
func WithInterpreter(ext string, i Interpreter) Option {
	return func(l *Loader) {
		l.interpreters[strings.ToLower(ext)] = i
	}
}

// WithStrictTypes makes registering an undeclared type name an error.
// Otherwise the name gets an open type that accepts any attributes.
func WithStrictTypes(strict bool) Option {
	return func(l *Loader) {
		l.strict = strict
	}
}

// WithRunIDs sets the run id generator.
func WithRunIDs(gen RunIDGenerator) Option {
	return func(l *Loader) {
		l.runIDs = gen
	}
}

// WithLogger sets the logger for per-script events.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithTracer sets the tracer for load and script spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(l *Loader) {
		l.tracer = tracer
	}
}

// New creates a loader for ns with the YAML, CUE and JavaScript interpreters.
func New(ns *registry.Namespace, opts ...Option) *Loader {
	l := &Loader{
		ns:      ns,
		catalog: schema.NewCatalog(),
		interpreters: map[string]Interpreter{
			".yaml": YAML(),
			".yml":  YAML(),
			".cue":  CUE(),
			".js":   JS(),
		},
		runIDs: UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: noop.NewTracerProvider().Tracer("seedling/loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Namespace returns the namespace scripts run against.
func (l *Loader) Namespace() *registry.Namespace {
	return l.ns
}

// Catalog returns the type catalog.
func (l *Loader) Catalog() *schema.Catalog {
	return l.catalog
}

// Result summarizes a completed load.
type Result struct {
	RunID   string   `json:"run_id"`
	Root    string   `json:"root"`
	Scripts []string `json:"scripts"`
}

// LoadFrom executes every script under root in ascending path order. The
// first failure stops the load and is returned as a *LoadError; scripts that
// already ran keep their effects.
func (l *Loader) LoadFrom(ctx context.Context, root string) (*Result, error) {
	runID := l.runIDs.Generate()

	ctx, span := l.tracer.Start(ctx, "loader.load",
		trace.WithAttributes(
			attribute.String("seedling.root", root),
			attribute.String("seedling.run_id", runID),
			attribute.String("seedling.provider", l.ns.Provider()),
		))
	defer span.End()

	scripts, err := Scripts(root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	for _, rel := range scripts {
		if err := l.exec(ctx, root, rel, runID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			l.logger.Debug("load aborted",
				"run_id", runID,
				"script", rel,
				"error", err,
			)
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("seedling.scripts", len(scripts)))
	l.logger.Debug("load finished",
		"run_id", runID,
		"root", root,
		"scripts", len(scripts),
		"duration", time.Since(start),
	)
	return &Result{RunID: runID, Root: root, Scripts: scripts}, nil
}

func (l *Loader) exec(ctx context.Context, root, rel, runID string) error {
	ctx, span := l.tracer.Start(ctx, "loader.script",
		trace.WithAttributes(attribute.String("seedling.script", rel)))
	defer span.End()

	interp, ok := l.interpreters[strings.ToLower(path.Ext(rel))]
	if !ok {
		err := &LoadError{Path: rel, Err: ErrNoInterpreter}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return &LoadError{Path: rel, Err: fmt.Errorf("read script: %w", err)}
	}

	env := &Env{
		ns:      l.ns,
		catalog: l.catalog,
		strict:  l.strict,
		path:    rel,
		logger:  l.logger.With("run_id", runID, "script", rel),
	}
	if err := interp.Exec(ctx, env, src); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &LoadError{Path: rel, Err: err}
	}
	l.logger.Debug("script loaded",
		"run_id", runID,
		"script", rel,
	)
	return nil
}

// Scripts returns the slash-separated paths of every regular file under
// root, relative to root and sorted ascending. Files and directories whose
// names start with a dot are skipped.
func Scripts(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &LoadError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	var scripts []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		scripts = append(scripts, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &LoadError{Path: root, Err: fmt.Errorf("scan scripts: %w", err)}
	}
	slices.Sort(scripts)
	return scripts, nil
}
