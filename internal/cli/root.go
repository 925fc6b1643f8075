// Package cli wires the command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/benedictfischer09/sourcecode-verifier/internal/config"
	"github.com/benedictfischer09/sourcecode-verifier/internal/logging"
	"github.com/benedictfischer09/sourcecode-verifier/internal/report"
)

const envPrefix = "SOURCECODE_VERIFIER"

// Exit codes.
const (
	ExitPass          = 0
	ExitPolicyFailure = 1
	ExitUnverified    = 2
)

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// exitError carries a process exit code. A nil err means the failure was
// already reported to the user.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

type app struct {
	info   BuildInfo
	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
	colors *report.Colorizer
}

// NewRootCommand builds the command tree. Each call gets its own viper
// instance so commands can be built and run independently.
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := &app{info: info, v: viper.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "sourcecode-verifier",
		Short: "Verify that published gems match their tagged source",
		Long: `sourcecode-verifier downloads a released gem and the repository snapshot
tagged for the same version, filters packaging noise from both trees and
reports files that exist only in the gem, only in the source, or differ.

Exit codes:
  0  verified and the policy passed
  1  the policy failed (by default: differences were found)
  2  the package could not be verified, or the command was misused`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (YAML)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (console, json)")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("cache-dir", "", "directory for downloaded gems and sources")
	flags.String("reports-dir", "", "directory for saved diffs and reports")
	flags.String("github-token", "", "GitHub API token (also read from GITHUB_TOKEN)")
	flags.StringSlice("ignore-artifact", nil, "extra pattern excluded from the gem tree (repeatable)")
	flags.StringSlice("ignore-source", nil, "extra pattern excluded from the source tree (repeatable)")
	flags.String("diff-engine", "", "diff engine (builtin, git)")
	flags.Int("workers", 0, "packages verified in parallel by batch")
	flags.Int("diff-workers", 0, "files compared in parallel per package")
	flags.Bool("no-cache", false, "download into a temporary directory instead of the cache")
	flags.Bool("keep-workdir", false, "keep the temporary directory used by --no-cache")

	for key, flag := range map[string]string{
		"config":          "config",
		"log_level":       "log-level",
		"log_format":      "log-format",
		"no_color":        "no-color",
		"cache_dir":       "cache-dir",
		"reports_dir":     "reports-dir",
		"github_token":    "github-token",
		"ignore.artifact": "ignore-artifact",
		"ignore.source":   "ignore-source",
		"diff.engine":     "diff-engine",
		"workers":         "workers",
		"diff.workers":    "diff-workers",
		"no_cache":        "no-cache",
		"keep_workdir":    "keep-workdir",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindEnv("github_token", envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")

	root.AddCommand(
		a.newVerifyCommand(),
		a.newLocalCommand(),
		a.newBatchCommand(),
		a.newTagCommand(),
		a.newServeCommand(),
		a.newVersionCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return &exitError{code: ExitUnverified, err: err}
	}
	a.cfg = cfg

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return &exitError{code: ExitUnverified, err: fmt.Errorf("failed to initialize logger: %w", err)}
	}
	a.logger = logger

	a.colors = report.NewColorizer(!a.v.GetBool("no_color") && !color.NoColor)
	a.logger.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("config", a.v.GetString("config")))
	return nil
}

// loadConfig reads the YAML file, when given, and overlays flags and
// environment variables on top of it.
func (a *app) loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if path := a.v.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	a.overlayString(&cfg.LogLevel, "log_level")
	a.overlayString(&cfg.LogFormat, "log_format")
	a.overlayString(&cfg.CacheDir, "cache_dir")
	a.overlayString(&cfg.ReportsDir, "reports_dir")
	a.overlayString(&cfg.RubyGemsURL, "rubygems_url")
	a.overlayString(&cfg.GitHubToken, "github_token")
	a.overlayString(&cfg.Diff.Engine, "diff.engine")
	a.overlayInt(&cfg.Workers, "workers")
	a.overlayInt(&cfg.Diff.Workers, "diff.workers")
	a.overlayBool(&cfg.NoCache, "no_cache")
	a.overlayBool(&cfg.KeepWorkdir, "keep_workdir")
	if a.v.IsSet("ignore.artifact") {
		cfg.Ignore.Artifact = append(cfg.Ignore.Artifact, a.v.GetStringSlice("ignore.artifact")...)
	}
	if a.v.IsSet("ignore.source") {
		cfg.Ignore.Source = append(cfg.Ignore.Source, a.v.GetStringSlice("ignore.source")...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (a *app) overlayString(dst *string, key string) {
	if a.v.IsSet(key) {
		*dst = a.v.GetString(key)
	}
}

func (a *app) overlayInt(dst *int, key string) {
	if a.v.IsSet(key) {
		*dst = a.v.GetInt(key)
	}
}

func (a *app) overlayBool(dst *bool, key string) {
	if a.v.IsSet(key) {
		*dst = a.v.GetBool(key)
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, info BuildInfo, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(info)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitPass
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", exit.err)
		}
		return exit.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitUnverified
}
