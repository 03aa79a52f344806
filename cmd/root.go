// Package cmd provides the CLI commands for team-audit.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance.
	// It is called after --verbose has been applied to LOG_LEVEL.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func(ctx context.Context, opts ConfigOptions) (*AppConfig, error)

	// HostFactory creates the commit source. localPath is empty for GitLab mode.
	HostFactory func(ctx context.Context, cfg *AppConfig, localPath string, log Logger) (domain.SourceHost, error)

	// AuditorFactory creates an Auditor over the given host.
	AuditorFactory func(host domain.SourceHost, cfg *AppConfig, log Logger) domain.Auditor

	// ReportWriterFactory creates the report emitter writing to out.
	ReportWriterFactory func(out io.Writer, useColor bool) domain.ReportWriter

	// Stdout is the writer for standard output (for the report).
	Stdout io.Writer

	// Stderr is the writer for standard error (for warnings/errors).
	Stderr io.Writer
}

// ConfigOptions carries the command-line settings that affect configuration loading.
type ConfigOptions struct {
	// PolicyFile overrides the policy path from the environment.
	PolicyFile string

	// Local is true when auditing a local clone; no GitLab token is needed.
	Local bool
}

// AppConfig holds application configuration loaded by ConfigLoader.
type AppConfig struct {
	GitLabURL        string
	GitLabToken      string
	GitLabMaxRetries int

	// Concurrency caps in-flight status and diff requests.
	Concurrency int

	// Policy holds the validated rule thresholds and repository conventions.
	Policy domain.Policy

	// LogLevel is the log level setting.
	LogLevel string

	// LogAppName is the application name for logging.
	LogAppName string
}

// options holds the parsed command-line flags.
type options struct {
	paranoid    bool
	localPath   string
	concurrency int
	policyFile  string
	summary     bool
	noColor     bool
	verbose     bool
}

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for team-audit.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "team-audit [project-filter]",
		Short: "Audit student team projects against commit hygiene rules",
		Long: `team-audit checks every project of a GitLab course group against a fixed
battery of commit rules: CI configuration first, CI status coverage and
success volume, minimum commit count, fair share of work, refactoring and
test commit ratios, and merge commit usage.

Each team lists its members in a team.csv file on the default branch
("author name, member id" per line). Commits whose author is not listed are
reported separately and never count for any member.

Only projects whose name contains project-filter are audited; with no filter
every project of the group is checked.

Examples:
  # Audit every project
  team-audit

  # Audit one team, only counting commits whose pipelines all succeeded
  team-audit team-alpha --paranoid

  # Audit a local clone without GitLab access
  team-audit --local /path/to/clone

  # Use a custom policy and print a summary table
  team-audit --policy policy.yaml --summary`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, args, opts, deps)
		},
	}

	// Define flags
	rootCmd.Flags().BoolVarP(&opts.paranoid, "paranoid", "p", false,
		"Only count commits whose CI statuses all succeeded")
	rootCmd.Flags().StringVarP(&opts.localPath, "local", "l", "",
		"Audit the local Git clone at this path instead of GitLab")
	rootCmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 0,
		"Maximum concurrent status/diff requests (overrides TEAM_AUDIT_CONCURRENCY)")
	rootCmd.Flags().StringVar(&opts.policyFile, "policy", "",
		"YAML audit policy file (overrides TEAM_AUDIT_POLICY)")
	rootCmd.Flags().BoolVar(&opts.summary, "summary", false,
		"Print a summary table after all projects")
	rootCmd.Flags().BoolVar(&opts.noColor, "no-color", false,
		"Disable colored output")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	return rootCmd
}

// runAudit executes the audit with injected dependencies.
// Only configuration-level failures are returned; per-project problems are part
// of the report.
func runAudit(cmd *cobra.Command, args []string, opts *options, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}

	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	// Set log level based on verbose flag (best-effort)
	if opts.verbose {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			writeWarningf(stderr, "warning: could not set log level: %v\n", err)
		}
	}

	log := deps.LoggerFactory()

	log.Info(ctx, "starting team-audit", map[string]interface{}{
		"project_filter": filter,
		"paranoid":       opts.paranoid,
		"local_path":     opts.localPath,
		"verbose":        opts.verbose,
	})

	cfg, err := deps.ConfigLoader(ctx, ConfigOptions{
		PolicyFile: opts.policyFile,
		Local:      opts.localPath != "",
	})
	if err != nil {
		log.Error(ctx, "failed to load configuration", err, nil)
		return fmt.Errorf("configuration error: %w", err)
	}

	if cmd.Flags().Changed("concurrency") {
		if opts.concurrency < 1 {
			return fmt.Errorf("configuration error: --concurrency must be at least 1, got %d", opts.concurrency)
		}
		cfg.Concurrency = opts.concurrency
	}

	if opts.paranoid {
		log.Info(ctx, "running in paranoid mode; only commits whose CI statuses all succeeded count", nil)
	}

	host, err := deps.HostFactory(ctx, cfg, opts.localPath, log)
	if err != nil {
		log.Error(ctx, "failed to create commit source", err, map[string]interface{}{
			"local_path": opts.localPath,
		})
		if errors.Is(err, domain.ErrRepositoryNotFound) {
			return fmt.Errorf("not a git repository: %s", opts.localPath)
		}
		return fmt.Errorf("configuration error: %w", err)
	}

	auditor := deps.AuditorFactory(host, cfg, log)
	writer := deps.ReportWriterFactory(stdout, !opts.noColor)

	summary, err := auditor.Run(ctx, domain.AuditInput{
		ProjectFilter: filter,
		Paranoid:      opts.paranoid,
	}, writer)
	if err != nil {
		log.Error(ctx, "audit aborted", err, nil)
		if errors.Is(err, domain.ErrGroupNotFound) {
			return fmt.Errorf("projects group not found: %w", err)
		}
		return fmt.Errorf("audit failed: %w", err)
	}

	if opts.summary {
		if err := writer.WriteSummary(summary); err != nil {
			log.Error(ctx, "failed to write summary", err, nil)
			return fmt.Errorf("output error: %w", err)
		}
	}

	log.Info(ctx, "team-audit complete", map[string]interface{}{
		"projects_checked": summary.ProjectsChecked,
		"projects_failed":  summary.ProjectsFailed,
		"members_checked":  summary.MembersChecked,
		"anomalies":        summary.Anomalies,
	})

	return nil
}

// Execute runs the root command. SIGINT and SIGTERM cancel in-flight requests.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// writeWarningf writes a warning message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		// Intentionally ignored: no recovery action for failed stderr writes
		return
	}
}
