package cli

import (
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "List every accessor and fixture label with its origin",
		Long: `Load the fixture scripts under dir, then print each accessor in
registration order with its labels in definition order and the script line
that last defined each one.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, dirArg(args), cmd)
		},
	}

	return cmd
}

func runList(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, dir, false)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	s, err := openSession(cfg, cmd, formatter)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.load(cmd.Context(), formatter)
	if err != nil {
		return err
	}
	return formatter.SuccessRun(res.RunID, FixtureList{
		Provider:  s.ns.Provider(),
		Accessors: accessorViews(s.ns),
	})
}
