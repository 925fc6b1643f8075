package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benedictfischer09/sourcecode-verifier/internal/policy"
	"github.com/benedictfischer09/sourcecode-verifier/internal/report"
	"github.com/benedictfischer09/sourcecode-verifier/internal/verify"
)

type verifyFlags struct {
	repo     string
	subdir   string
	json     bool
	output   string
	saveDiff bool
}

func (a *app) newVerifyCommand() *cobra.Command {
	var f verifyFlags
	cmd := &cobra.Command{
		Use:   "verify <name> <version> | verify <name@version>",
		Short: "Verify one released gem against its tagged source",
		Example: `  sourcecode-verifier verify rails 7.1.3
  sourcecode-verifier verify nokogiri@1.16.2 --json
  sourcecode-verifier verify my-gem 0.3.0 --repo acme/monorepo --subdir gems/my-gem`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := ""
			if len(args) == 2 {
				version = args[1]
			}
			id, err := verify.ParseIdentifier(args[0], version)
			if err != nil {
				return &exitError{code: ExitUnverified, err: err}
			}
			return a.runVerify(cmd, id, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.repo, "repo", "", "source repository as owner/name or a GitHub URL")
	flags.StringVar(&f.subdir, "subdir", "", "subdirectory of the repository holding the gem")
	flags.BoolVar(&f.json, "json", false, "print the report as JSON")
	flags.StringVar(&f.output, "output", "", "also save the JSON report into this directory")
	flags.BoolVar(&f.saveDiff, "save-diff", true, "save the full diff under the reports directory")
	return cmd
}

func (a *app) runVerify(cmd *cobra.Command, id verify.Identifier, f verifyFlags) error {
	engine, err := a.newPolicy()
	if err != nil {
		return &exitError{code: ExitUnverified, err: err}
	}
	session, err := a.newSession()
	if err != nil {
		return &exitError{code: ExitUnverified, err: err}
	}

	req := verify.Request{
		Package:      id.Name,
		Version:      id.Version,
		Repository:   f.repo,
		Subdirectory: f.subdir,
	}
	rec := session.Record(cmd.Context(), req)

	if rec.Verified() && f.saveDiff {
		if _, err := report.SaveDiff(a.reportsDir(), &rec); err != nil {
			a.logger.Warn("could not save diff", zap.Error(err))
		}
	}
	if f.output != "" {
		path, err := report.SaveJSON(f.output, rec)
		if err != nil {
			return &exitError{code: ExitUnverified, err: err}
		}
		a.logger.Info("report saved", zap.String("path", path))
	}

	if err := a.printRecord(cmd, rec, f.json); err != nil {
		return &exitError{code: ExitUnverified, err: err}
	}
	return a.decide(cmd, engine, rec, f.json)
}

func (a *app) printRecord(cmd *cobra.Command, rec report.Record, asJSON bool) error {
	if asJSON {
		return report.WriteJSON(cmd.OutOrStdout(), rec)
	}
	return report.WriteText(cmd.OutOrStdout(), rec, a.colors)
}

// decide maps a record to an exit code. A record that could not be verified
// exits 2 whatever the policy says.
func (a *app) decide(cmd *cobra.Command, engine *policy.Engine, rec report.Record, quiet bool) error {
	if !rec.Verified() {
		return &exitError{code: ExitUnverified}
	}
	effect, rule := engine.Evaluate(rec)
	a.logger.Debug("policy decision",
		zap.String("package", rec.Name()),
		zap.String("effect", string(effect)),
		zap.String("rule", rule))
	if effect == policy.Pass {
		return nil
	}
	if !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s policy rule %q failed for %s\n", a.colors.Symbol(rec.Status), rule, rec.Name())
	}
	return &exitError{code: ExitPolicyFailure}
}
