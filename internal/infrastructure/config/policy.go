package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

// ErrPolicyNotFound indicates the policy file does not exist.
var ErrPolicyNotFound = errors.New("policy file not found")

// LoadPolicy reads a YAML policy from path on top of domain.DefaultPolicy.
// An empty path yields the defaults. Unknown keys are rejected.
func LoadPolicy(path string) (domain.Policy, error) {
	policy := domain.DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Policy{}, fmt.Errorf("%w: %s", ErrPolicyNotFound, path)
		}
		return domain.Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}

	return ParsePolicy(data, path)
}

// ParsePolicy decodes YAML policy data over the defaults and validates the result.
// source names the data in error messages.
func ParsePolicy(data []byte, source string) (domain.Policy, error) {
	policy := domain.DefaultPolicy()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&policy); err != nil && !errors.Is(err, io.EOF) {
		return domain.Policy{}, fmt.Errorf("%w: %s: %w", domain.ErrPolicyInvalid, source, err)
	}

	if err := policy.Validate(); err != nil {
		return domain.Policy{}, fmt.Errorf("%s: %w", source, err)
	}
	return policy, nil
}
