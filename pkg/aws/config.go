package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"
)

// LoadAWSConfig loads AWS config and supports a LocalStack endpoint via AWS_S3_ENDPOINT or
// AWS_ENDPOINT. When one is set every SDK client created from the config targets it.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := os.Getenv("AWS_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("AWS_S3_ENDPOINT")
	}

	if endpoint != "" {
		signingRegion := cfg.Region
		if signingRegion == "" {
			signingRegion = os.Getenv("AWS_REGION")
		}

		resolver := sdkaws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (sdkaws.Endpoint, error) {
			sr := signingRegion
			if sr == "" {
				sr = region
			}
			return sdkaws.Endpoint{
				URL:               endpoint,
				SigningRegion:     sr,
				HostnameImmutable: true,
			}, nil
		})
		cfg.EndpointResolverWithOptions = resolver

		zap.L().Debug("aws custom endpoint configured",
			zap.String("endpoint", endpoint),
			zap.String("signing_region", signingRegion),
		)
	}

	return cfg, nil
}
