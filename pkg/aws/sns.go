package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"
)

// SNSPublisher is a minimal interface for publishing messages to SNS.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, eventType string, message []byte) error
}

// SNSAPI is the subset of the SNS client used by SNSClient.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client SNSAPI
	logger *zap.Logger
}

func NewSNSClient(cfg sdkaws.Config, logger *zap.Logger) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg), logger: logger}
}

// Publish publishes a raw message to the given SNS topic ARN. The event type is sent
// as a message attribute so subscribers can filter on it.
func (s *SNSClient) Publish(ctx context.Context, topicArn string, eventType string, message []byte) error {
	if topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}

	s.logger.Debug("sns publish", zap.String("topic_arn", topicArn), zap.Int("message_len", len(message)))

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: sdkaws.String(topicArn),
		Message:  sdkaws.String(string(message)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: sdkaws.String("String"), StringValue: sdkaws.String(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	return nil
}
