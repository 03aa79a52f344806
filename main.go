// Package main is the entry point for the team-audit CLI application.
// team-audit checks student team projects on GitLab (or a local clone) against
// a fixed battery of commit rules and prints a pass/fail line per rule and member.
package main

import (
	"context"
	"io"

	"github.com/fatih/color"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"

	"github.com/MyCarrier-DevOps/team-audit/cmd"
	"github.com/MyCarrier-DevOps/team-audit/internal/adapters/git"
	"github.com/MyCarrier-DevOps/team-audit/internal/adapters/gitlab"
	logadapter "github.com/MyCarrier-DevOps/team-audit/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/team-audit/internal/adapters/output"
	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
	"github.com/MyCarrier-DevOps/team-audit/internal/infrastructure/config"
	"github.com/MyCarrier-DevOps/team-audit/internal/usecases"
)

const programName = "team-audit"

func main() {
	// Wire up production dependencies
	deps := &cmd.Dependencies{
		LoggerFactory: func() cmd.Logger {
			adapter := logadapter.NewZapAdapter(logger.NewZapLoggerFromConfig()).
				With(map[string]any{"component": programName})

			// Configure max processes with our logger wrapper, toss undo func
			if _, err := maxprocs.Set(maxprocs.Logger(adapter.Printf)); err != nil {
				adapter.Warn(context.Background(), "failed to set GOMAXPROCS", map[string]any{
					"error": err.Error(),
				})
			}
			return adapter
		},

		ConfigLoader: func(ctx context.Context, opts cmd.ConfigOptions) (*cmd.AppConfig, error) {
			cfg, err := config.Load(ctx, config.Options{
				PolicyFile: opts.PolicyFile,
				Local:      opts.Local,
			})
			if err != nil {
				return nil, err
			}
			return toAppConfig(cfg), nil
		},

		HostFactory: newHost,

		AuditorFactory: func(host domain.SourceHost, cfg *cmd.AppConfig, log cmd.Logger) domain.Auditor {
			return usecases.NewProjectAuditor(host, cfg.Policy, cfg.Concurrency, log)
		},

		ReportWriterFactory: func(out io.Writer, useColor bool) domain.ReportWriter {
			return output.NewWriterWithOutput(out, useColor && !color.NoColor)
		},
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}

// newHost opens the local clone when localPath is set and connects to GitLab otherwise.
func newHost(ctx context.Context, cfg *cmd.AppConfig, localPath string, log cmd.Logger) (domain.SourceHost, error) {
	if localPath != "" {
		source, err := git.NewLocalSource(ctx, localPath, cfg.Policy.GroupPath, log)
		if err != nil {
			return nil, err
		}
		return source, nil
	}

	client, err := gitlab.NewClient(cfg.GitLabURL, cfg.GitLabToken, cfg.GitLabMaxRetries, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func toAppConfig(cfg *config.Config) *cmd.AppConfig {
	return &cmd.AppConfig{
		GitLabURL:        cfg.GitLabURL,
		GitLabToken:      cfg.GitLabToken,
		GitLabMaxRetries: cfg.GitLabMaxRetries,
		Concurrency:      cfg.Concurrency,
		Policy:           cfg.Policy,
		LogLevel:         cfg.LogLevel,
		LogAppName:       cfg.LogAppName,
	}
}
