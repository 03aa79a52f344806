package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Swappable in tests.
var (
	loadAWSConfig = awsconfig.LoadDefaultConfig

	newSecretsManager = func(cfg aws.Config) SecretsManagerAPI {
		return secretsmanager.NewFromConfig(cfg)
	}
)

// awsTokenSecret is the JSON shape of a structured secret.
type awsTokenSecret struct {
	GitLabToken string `json:"gitlab_token"`
}

// loadTokenFromAWS reads the token from AWS Secrets Manager using the default
// credential chain. The secret is either JSON with a gitlab_token key or the
// raw token.
func loadTokenFromAWS(ctx context.Context, secretID string) (string, error) {
	cfg, err := loadAWSConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: unable to load SDK config: %w", ErrAWSSecretFailed, err)
	}

	result, err := newSecretsManager(cfg).GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: secret %s: %w", ErrAWSSecretFailed, secretID, err)
	}

	raw := strings.TrimSpace(aws.ToString(result.SecretString))
	if raw == "" {
		return "", fmt.Errorf("%w: secret %s has no string value", ErrAWSSecretFailed, secretID)
	}

	if strings.HasPrefix(raw, "{") {
		var secret awsTokenSecret
		if err := json.Unmarshal([]byte(raw), &secret); err != nil {
			return "", fmt.Errorf("%w: secret %s is not valid JSON: %w", ErrAWSSecretFailed, secretID, err)
		}
		if secret.GitLabToken == "" {
			return "", fmt.Errorf("%w: secret %s has no gitlab_token key", ErrAWSSecretFailed, secretID)
		}
		return secret.GitLabToken, nil
	}

	return raw, nil
}
