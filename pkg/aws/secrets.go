package aws

import (
	"context"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient reads string secrets and caches them for the life of the process.
type SecretsClient struct {
	client SecretsAPI
	cache  map[string]string
	mu     sync.RWMutex
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return NewSecretsClientWithAPI(secretsmanager.NewFromConfig(cfg))
}

func NewSecretsClientWithAPI(api SecretsAPI) *SecretsClient {
	return &SecretsClient{
		client: api,
		cache:  make(map[string]string),
	}
}

func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if v, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &name})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	s.mu.Lock()
	s.cache[name] = *out.SecretString
	s.mu.Unlock()

	return *out.SecretString, nil
}
