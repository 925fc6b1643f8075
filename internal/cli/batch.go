package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benedictfischer09/sourcecode-verifier/internal/batch"
	"github.com/benedictfischer09/sourcecode-verifier/internal/policy"
	"github.com/benedictfischer09/sourcecode-verifier/internal/report"
	"github.com/benedictfischer09/sourcecode-verifier/internal/rules"
)

type batchFlags struct {
	lockfile string
	html     bool
	zip      bool
	json     bool
}

func (a *app) newBatchCommand() *cobra.Command {
	var f batchFlags
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Verify every gem pinned in a Gemfile.lock",
		Example: `  sourcecode-verifier batch
  sourcecode-verifier batch --lockfile path/to/Gemfile.lock --html --zip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBatch(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.lockfile, "lockfile", "Gemfile.lock", "lockfile listing the gems to verify")
	flags.BoolVar(&f.html, "html", false, "write an HTML report to the reports directory")
	flags.BoolVar(&f.zip, "zip", false, "write a zip archive with the HTML report and full diffs")
	flags.BoolVar(&f.json, "json", false, "print the summary and results as JSON")
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, f batchFlags) error {
	file, err := os.Open(f.lockfile)
	if err != nil {
		return &exitError{code: ExitUnverified, err: fmt.Errorf("opening lockfile: %w", err)}
	}
	pkgs, err := batch.ParseLockfile(file)
	file.Close()
	if err != nil {
		return &exitError{code: ExitUnverified, err: err}
	}
	if len(pkgs) == 0 {
		return &exitError{code: ExitUnverified, err: fmt.Errorf("no gems found in %s", f.lockfile)}
	}

	engine, err := a.newPolicy()
	if err != nil {
		return &exitError{code: ExitUnverified, err: err}
	}
	display, err := rules.DisplayRules(a.cfg.Ignore.Display)
	if err != nil {
		return &exitError{code: ExitUnverified, err: err}
	}
	session, err := a.newSession()
	if err != nil {
		return &exitError{code: ExitUnverified, err: err}
	}

	stderr := cmd.ErrOrStderr()
	runner := &batch.Runner{
		Verifier: session,
		Workers:  a.cfg.Workers,
		Logger:   a.logger,
		Progress: func(done, total int, rec report.Record) {
			fmt.Fprintf(stderr, "[%d/%d] %s %s %s\n", done, total, a.colors.Symbol(rec.Status), rec.Name(), a.colors.Status(rec.Status))
		},
	}
	records := runner.Run(cmd.Context(), pkgs)

	reports := a.reportsDir()
	for i := range records {
		if !records[i].Verified() {
			continue
		}
		if _, err := report.SaveDiff(reports, &records[i]); err != nil {
			a.logger.Warn("could not save diff", zap.String("package", records[i].Name()), zap.Error(err))
		}
	}

	now := time.Now()
	opts := report.HTMLOptions{Display: display, Generated: now}
	if f.html {
		if err := a.writeReportFile(filepath.Join(reports, report.HTMLFileName(now)), records, opts, report.WriteHTML); err != nil {
			return &exitError{code: ExitUnverified, err: err}
		}
	}
	if f.zip {
		name := "sourcecode_verification_" + now.Format("20060102_150405") + ".zip"
		if err := a.writeReportFile(filepath.Join(reports, "zips", name), records, opts, report.WriteZip); err != nil {
			return &exitError{code: ExitUnverified, err: err}
		}
	}

	decisions, passed := engine.EvaluateAll(records)
	if f.json {
		err = report.WriteJSON(cmd.OutOrStdout(), struct {
			Summary report.Summary  `json:"summary"`
			Passed  bool            `json:"passed"`
			Results []report.Record `json:"results"`
		}{report.Summarize(records), passed, records})
	} else {
		err = report.WriteTable(cmd.OutOrStdout(), records, a.colors)
	}
	if err != nil {
		return &exitError{code: ExitUnverified, err: err}
	}

	if passed {
		return nil
	}
	if !f.json {
		for _, d := range decisions {
			if d.Effect == policy.Fail {
				fmt.Fprintf(stderr, "policy rule %q failed for %s\n", d.Rule, d.Record.Name())
			}
		}
	}
	return &exitError{code: ExitPolicyFailure}
}

// writeReportFile renders into memory and writes the result atomically.
func (a *app) writeReportFile(path string, records []report.Record, opts report.HTMLOptions, render func(io.Writer, []report.Record, report.HTMLOptions) error) error {
	var buf bytes.Buffer
	if err := render(&buf, records, opts); err != nil {
		return err
	}
	if err := report.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	a.logger.Info("report written", zap.String("path", path))
	return nil
}
