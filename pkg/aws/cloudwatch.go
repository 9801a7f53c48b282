package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// CloudWatchLogsAPI is the subset of the CloudWatch Logs client used here.
type CloudWatchLogsAPI interface {
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatchLogsClient ships log lines to a CloudWatch Logs stream. It implements io.Writer
// so it can be tee'd into the zap core.
type CloudWatchLogsClient struct {
	client        CloudWatchLogsAPI
	logGroupName  string
	logStreamName string
	sequenceToken *string
	mu            sync.Mutex
}

// NewCloudWatchLogsClient creates the log group (30 day retention) and a fresh stream for this process.
func NewCloudWatchLogsClient(ctx context.Context, cfg aws.Config, logGroupName, serviceName string) (*CloudWatchLogsClient, error) {
	return newCloudWatchLogsClient(ctx, cloudwatchlogs.NewFromConfig(cfg), logGroupName, serviceName)
}

func newCloudWatchLogsClient(ctx context.Context, api CloudWatchLogsAPI, logGroupName, serviceName string) (*CloudWatchLogsClient, error) {
	if logGroupName == "" {
		logGroupName = "/comicstore/api"
	}

	c := &CloudWatchLogsClient{
		client:        api,
		logGroupName:  logGroupName,
		logStreamName: fmt.Sprintf("%s-%d", serviceName, time.Now().Unix()),
	}

	if err := c.ensureLogGroup(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure log group: %w", err)
	}
	if _, err := c.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(c.logGroupName),
		LogStreamName: aws.String(c.logStreamName),
	}); err != nil {
		return nil, fmt.Errorf("failed to create log stream: %w", err)
	}

	return c, nil
}

func (c *CloudWatchLogsClient) ensureLogGroup(ctx context.Context) error {
	_, err := c.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(c.logGroupName),
	})
	if err != nil {
		var existsErr *types.ResourceAlreadyExistsException
		if !errors.As(err, &existsErr) {
			return err
		}
	}

	_, err = c.client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(c.logGroupName),
		RetentionInDays: aws.Int32(30),
	})
	if err != nil {
		return fmt.Errorf("failed to set retention policy: %w", err)
	}
	return nil
}

// PutLogEvents sends log events to CloudWatch Logs
func (c *CloudWatchLogsClient) PutLogEvents(ctx context.Context, events []types.InputLogEvent) error {
	if len(events) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	output, err := c.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(c.logGroupName),
		LogStreamName: aws.String(c.logStreamName),
		LogEvents:     events,
		SequenceToken: c.sequenceToken,
	})
	if err != nil {
		return fmt.Errorf("failed to put log events: %w", err)
	}

	c.sequenceToken = output.NextSequenceToken
	return nil
}

// Write implements io.Writer. Shipping errors are reported on stderr and never fail the write.
func (c *CloudWatchLogsClient) Write(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := types.InputLogEvent{
		Message:   aws.String(string(p)),
		Timestamp: aws.Int64(time.Now().UnixMilli()),
	}
	if err := c.PutLogEvents(ctx, []types.InputLogEvent{event}); err != nil {
		fmt.Fprintf(os.Stderr, "CloudWatch write error: %v\n", err)
	}
	return len(p), nil
}
