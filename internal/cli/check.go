package cli

import (
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Dry-run fixture scripts against a throwaway memory provider",
		Long: `Run every fixture script under dir against an in-memory provider and
report the first failure. Nothing is written to the configured database.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, dirArg(args), cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, dir, true)
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
	summary := newLoadSummary(s.ns, res)
	summary.DryRun = true
	return formatter.SuccessRun(res.RunID, summary)
}
