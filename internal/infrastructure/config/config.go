// Package config provides configuration loading for the team-audit application.
// It reads settings from environment variables, resolves the GitLab token from
// the environment, HashiCorp Vault or AWS Secrets Manager, and loads the audit
// policy from an optional YAML file.
package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/vault"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

// Configuration errors.
var (
	// ErrVaultClientFailed indicates failure to create or authenticate with Vault.
	ErrVaultClientFailed = errors.New("failed to create Vault client")

	// ErrVaultSecretNotFound indicates the token secret was not found in Vault.
	ErrVaultSecretNotFound = errors.New("GitLab token not found in Vault")

	// ErrAWSSecretFailed indicates the token could not be read from AWS Secrets Manager.
	ErrAWSSecretFailed = errors.New("failed to read GitLab token from AWS Secrets Manager")

	// ErrInvalidSetting indicates an environment setting outside its allowed range.
	ErrInvalidSetting = errors.New("invalid setting")
)

// VaultClient defines the interface for Vault operations.
// This interface allows for dependency injection and testing.
type VaultClient interface {
	// GetKVSecret retrieves a secret from Vault's KV v2 secrets engine.
	GetKVSecret(ctx context.Context, path, mount string) (map[string]interface{}, error)
}

// VaultClientFactory creates a VaultClient using AppRole authentication.
// This is the default factory used in production.
type VaultClientFactory func(ctx context.Context) (VaultClient, error)

// DefaultVaultClientFactory creates a VaultClient using goLibMyCarrier/vault with AppRole auth.
func DefaultVaultClientFactory(ctx context.Context) (VaultClient, error) {
	// Uses: VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID
	vaultConfig, err := vault.VaultLoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	client, err := vault.CreateVaultClient(ctx, vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	return client, nil
}

// Config holds all application configuration.
type Config struct {
	// GitLabURL is the base URL of the GitLab instance.
	GitLabURL string `envconfig:"GITLAB_URL" default:"https://git-ce.rwth-aachen.de/"`

	// GitLabToken is the API token. Filled from Vault or AWS when not set directly.
	GitLabToken string `envconfig:"GITLAB_TOKEN"`

	// GitLabMaxRetries bounds the retries of a single GitLab request.
	GitLabMaxRetries int `envconfig:"GITLAB_MAX_RETRIES" default:"4"`

	VaultTokenPath  string `envconfig:"VAULT_GITLAB_TOKEN_PATH"`
	VaultTokenMount string `envconfig:"VAULT_GITLAB_TOKEN_MOUNT" default:"secret"`

	// AWSTokenSecret is the Secrets Manager secret id holding the token.
	AWSTokenSecret string `envconfig:"AWS_GITLAB_TOKEN_SECRET"`

	// PolicyFile is the optional YAML audit policy.
	PolicyFile string `envconfig:"TEAM_AUDIT_POLICY"`

	// Concurrency caps in-flight status and diff requests.
	Concurrency int `envconfig:"TEAM_AUDIT_CONCURRENCY" default:"8"`

	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogAppName string `envconfig:"LOG_APP_NAME" default:"team-audit"`

	// TokenSource records where GitLabToken came from: env, vault or aws.
	TokenSource string `ignored:"true"`

	// Policy is the validated audit policy.
	Policy domain.Policy `ignored:"true"`
}

// Options adjusts what Load requires.
type Options struct {
	// PolicyFile overrides TEAM_AUDIT_POLICY when set.
	PolicyFile string

	// Local skips token resolution; a local clone needs no credential.
	Local bool
}

// Load loads the application configuration from environment variables.
// The GitLab token is taken from GITLAB_TOKEN, then Vault, then AWS Secrets Manager.
//
// For Vault loading, requires:
//   - VAULT_ADDRESS: Vault server address
//   - VAULT_ROLE_ID: AppRole role ID
//   - VAULT_SECRET_ID: AppRole secret ID
//   - VAULT_GITLAB_TOKEN_PATH: Path to the secret in Vault
//   - VAULT_GITLAB_TOKEN_MOUNT: KV mount point (optional, defaults to "secret")
//
// Returns domain.ErrMissingCredential if no token source is available outside local mode.
func Load(ctx context.Context, opts Options) (*Config, error) {
	return LoadWithVaultClient(ctx, opts, nil)
}

// LoadWithVaultClient loads configuration using the provided VaultClient factory.
// If vaultClientFactory is nil, DefaultVaultClientFactory is used.
// This function enables dependency injection for testing.
func LoadWithVaultClient(ctx context.Context, opts Options, vaultClientFactory VaultClientFactory) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("%w: TEAM_AUDIT_CONCURRENCY must be at least 1, got %d",
			ErrInvalidSetting, cfg.Concurrency)
	}
	if cfg.GitLabMaxRetries < 0 {
		return nil, fmt.Errorf("%w: GITLAB_MAX_RETRIES must not be negative, got %d",
			ErrInvalidSetting, cfg.GitLabMaxRetries)
	}

	if opts.PolicyFile != "" {
		cfg.PolicyFile = opts.PolicyFile
	}
	policy, err := LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	if opts.Local {
		return cfg, nil
	}

	if err := resolveToken(ctx, cfg, vaultClientFactory); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveToken fills cfg.GitLabToken. A configured source that fails is an
// error; it does not fall through to the next source.
func resolveToken(ctx context.Context, cfg *Config, vaultClientFactory VaultClientFactory) error {
	switch {
	case cfg.GitLabToken != "":
		cfg.TokenSource = "env"
		return nil

	case cfg.VaultTokenPath != "":
		token, err := loadTokenFromVault(ctx, vaultClientFactory, cfg.VaultTokenPath, cfg.VaultTokenMount)
		if err != nil {
			return err
		}
		cfg.GitLabToken, cfg.TokenSource = token, "vault"
		return nil

	case cfg.AWSTokenSecret != "":
		token, err := loadTokenFromAWS(ctx, cfg.AWSTokenSecret)
		if err != nil {
			return err
		}
		cfg.GitLabToken, cfg.TokenSource = token, "aws"
		return nil
	}

	return fmt.Errorf("%w: set GITLAB_TOKEN, VAULT_GITLAB_TOKEN_PATH or AWS_GITLAB_TOKEN_SECRET",
		domain.ErrMissingCredential)
}

// loadTokenFromVault reads the token from Vault KV v2.
func loadTokenFromVault(
	ctx context.Context,
	vaultClientFactory VaultClientFactory,
	path, mount string,
) (string, error) {
	if vaultClientFactory == nil {
		vaultClientFactory = DefaultVaultClientFactory
	}

	client, err := vaultClientFactory(ctx)
	if err != nil {
		return "", err
	}

	secretData, err := client.GetKVSecret(ctx, path, mount)
	if err != nil {
		return "", fmt.Errorf("%w at path %s: %w", ErrVaultSecretNotFound, path, err)
	}

	return parseTokenFromVault(secretData, path)
}

// parseTokenFromVault accepts the token under "token" or "gitlab_token".
func parseTokenFromVault(secretData map[string]interface{}, path string) (string, error) {
	for _, key := range []string{"token", "gitlab_token"} {
		if token, ok := secretData[key].(string); ok && token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("%w at path %s: no \"token\" key", ErrVaultSecretNotFound, path)
}
