package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benedictfischer09/sourcecode-verifier/internal/verify"
	"github.com/benedictfischer09/sourcecode-verifier/internal/watch"
)

func (a *app) newLocalCommand() *cobra.Command {
	var (
		asJSON  bool
		watchIt bool
	)
	cmd := &cobra.Command{
		Use:   "local <artifact-dir> <source-dir>",
		Short: "Compare an unpacked gem with a source checkout on disk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.newPolicy()
			if err != nil {
				return &exitError{code: ExitUnverified, err: err}
			}
			session, err := a.newSession()
			if err != nil {
				return &exitError{code: ExitUnverified, err: err}
			}

			if watchIt {
				return a.watchLocal(cmd, session, args[0], args[1], asJSON)
			}

			rec, err := session.VerifyLocal(cmd.Context(), args[0], args[1])
			if err != nil {
				return &exitError{code: ExitUnverified, err: err}
			}
			if err := a.printRecord(cmd, *rec, asJSON); err != nil {
				return &exitError{code: ExitUnverified, err: err}
			}
			return a.decide(cmd, engine, *rec, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&watchIt, "watch", false, "rerun the comparison whenever either directory changes")
	return cmd
}

// watchLocal reruns the comparison until interrupted. Exit status reflects
// only whether watching could start.
func (a *app) watchLocal(cmd *cobra.Command, session *verify.Session, artifactDir, sourceDir string, asJSON bool) error {
	w, err := watch.New([]string{artifactDir, sourceDir}, watch.WithLogger(a.logger))
	if err != nil {
		return &exitError{code: ExitUnverified, err: err}
	}

	err = w.Run(cmd.Context(), func(ctx context.Context) {
		rec, err := session.VerifyLocal(ctx, artifactDir, sourceDir)
		if err != nil {
			a.logger.Error("comparison failed", zap.Error(err))
			return
		}
		if !asJSON {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		if err := a.printRecord(cmd, *rec, asJSON); err != nil {
			a.logger.Error("could not print report", zap.Error(err))
		}
	})
	if err != nil {
		return &exitError{code: ExitUnverified, err: err}
	}
	return nil
}
