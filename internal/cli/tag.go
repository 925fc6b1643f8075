package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benedictfischer09/sourcecode-verifier/internal/fetch"
	"github.com/benedictfischer09/sourcecode-verifier/internal/report"
	"github.com/benedictfischer09/sourcecode-verifier/internal/tags"
)

type tagFlags struct {
	json    bool
	cascade bool
	repo    string
}

func (a *app) newTagCommand() *cobra.Command {
	var f tagFlags
	cmd := &cobra.Command{
		Use:   "tag <project> <version> [tags...]",
		Short: "Resolve which tag names a released version",
		Long: `Resolve the tag for a version from the given tag names. Without tag
arguments the names are read from --repo, or one per line from stdin.`,
		Example: `  git tag | sourcecode-verifier tag rails 7.1.3
  sourcecode-verifier tag rails 7.1.3 --repo rails/rails
  sourcecode-verifier tag my-gem 1.2.0 v1.1.0 v1.2.0 --cascade`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTag(cmd, args[0], args[1], args[2:], f)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&f.json, "json", false, "print the resolution as JSON")
	flags.BoolVar(&f.cascade, "cascade", false, "print the candidates tried, in order")
	flags.StringVar(&f.repo, "repo", "", "list tags from this GitHub repository (owner/name or URL)")
	return cmd
}

func (a *app) runTag(cmd *cobra.Command, project, version string, names []string, f tagFlags) error {
	out := cmd.OutOrStdout()
	if f.cascade && !f.json {
		for i, c := range tags.Cascade(project, version) {
			fmt.Fprintf(out, "%2d. %s\n", i+1, c)
		}
		fmt.Fprintln(out)
	}

	if len(names) == 0 {
		var err error
		if f.repo != "" {
			names, err = a.listTags(cmd, f.repo)
		} else {
			names, err = readLines(cmd.InOrStdin())
		}
		if err != nil {
			return &exitError{code: ExitUnverified, err: err}
		}
	}

	tag, err := tags.Resolve(project, version, names)
	if err != nil {
		if errors.Is(err, tags.ErrTagNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", a.colors.Symbol(report.SourceNotFound), err)
			return &exitError{code: ExitUnverified}
		}
		return &exitError{code: ExitUnverified, err: err}
	}

	if f.json {
		var cascade []string
		if f.cascade {
			cascade = tags.Cascade(project, version)
		}
		return report.WriteJSON(out, struct {
			tags.VersionTag
			Cascade []string `json:"cascade,omitempty"`
		}{tag, cascade})
	}
	fmt.Fprintf(out, "%s %s\n", a.colors.Symbol(report.Matching), a.colors.Bold(tag.Name))
	fmt.Fprintf(out, "  matched %s candidate %s\n", tag.Strategy, a.colors.Info(tag.Candidate))
	return nil
}

func (a *app) listTags(cmd *cobra.Command, raw string) ([]string, error) {
	repo, err := fetch.ParseRepository(raw)
	if err != nil {
		return nil, err
	}
	gh := fetch.NewGitHub(a.cfg.GitHubToken, &http.Client{Timeout: httpTimeout}, a.logger)
	return gh.ListTags(cmd.Context(), repo)
}

// readLines returns the non-blank lines of r, trimmed.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading tags: %w", err)
	}
	return lines, nil
}
