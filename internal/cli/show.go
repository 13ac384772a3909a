package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/seedling/internal/registry"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Dir string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <accessor> <label>",
		Short: "Print one fixture record",
		Long: `Load the fixture scripts, then print the record behind
<accessor>.<label>: its derived id, origin, attribute digest and attributes.

Example:
  seedling show users kasper
  seedling show billing_plans premium --dir test/fixtures --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Dir, "dir", "d", "", "fixture directory (default fixtures.root)")

	return cmd
}

func runShow(opts *ShowOptions, accessor, label string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, opts.Dir, false)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	s, err := openSession(cfg, cmd, formatter)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := cmd.Context()
	res, err := s.load(ctx, formatter)
	if err != nil {
		return err
	}

	a, err := s.ns.Accessor(accessor)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeUnknownRecord, err)
	}
	rec, err := a.Lookup(ctx, label)
	if err != nil {
		code := ErrCodeGeneric
		if registry.IsUnknownAccessor(err) {
			code = ErrCodeUnknownRecord
		}
		return formatter.Fail(ExitFailure, code, err)
	}

	view, err := newRecordView(a, rec)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
	}
	return formatter.SuccessRun(res.RunID, view)
}
