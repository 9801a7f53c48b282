package aws

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestPublicID(t *testing.T) {
	id := PublicID("Spider Man-01.PNG")
	assert.Regexp(t, regexp.MustCompile(`^spider_man_01_[0-9a-f]{32}$`), id)
	assert.NotEqual(t, id, PublicID("Spider Man-01.PNG"))
}

func TestS3Uploader_Upload(t *testing.T) {
	t.Run("uploads under prefix and returns CDN url", func(t *testing.T) {
		api := &fakeS3{}
		u := NewS3Uploader(api, "comics", "products/", "", "cdn.example.com")

		url, err := u.Upload(context.Background(), "Cover Art.jpg", "image/jpeg", 4, strings.NewReader("data"))
		require.NoError(t, err)

		key := *api.input.Key
		assert.True(t, strings.HasPrefix(key, "products/cover_art_"))
		assert.True(t, strings.HasSuffix(key, ".jpg"))
		assert.Equal(t, "comics", *api.input.Bucket)
		assert.Equal(t, "image/jpeg", *api.input.ContentType)
		assert.Equal(t, []byte("data"), api.body)
		assert.Equal(t, "https://cdn.example.com/"+key, url)
	})

	t.Run("put failure is returned", func(t *testing.T) {
		u := NewS3Uploader(&fakeS3{err: errors.New("denied")}, "comics", "", "", "")
		_, err := u.Upload(context.Background(), "a.png", "image/png", 1, strings.NewReader("x"))
		assert.ErrorContains(t, err, "denied")
	})

	t.Run("missing bucket", func(t *testing.T) {
		u := NewS3Uploader(&fakeS3{}, "", "", "", "")
		_, err := u.Upload(context.Background(), "a.png", "image/png", 1, strings.NewReader("x"))
		assert.Error(t, err)
	})
}

func TestS3Uploader_PublicURL(t *testing.T) {
	assert.Equal(t, "http://localhost:4566/comics/k.png", NewS3Uploader(nil, "comics", "", "http://localhost:4566/", "").PublicURL("k.png"))
	assert.Equal(t, "https://comics.s3.amazonaws.com/k.png", NewS3Uploader(nil, "comics", "", "", "").PublicURL("k.png"))
}

type fakeSecrets struct{ calls int }

func (f *fakeSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v := "value-of-" + *params.SecretId
	return &secretsmanager.GetSecretValueOutput{SecretString: &v}, nil
}

func TestSecretsClient_Caches(t *testing.T) {
	api := &fakeSecrets{}
	sc := NewSecretsClientWithAPI(api)

	for i := 0; i < 3; i++ {
		v, err := sc.GetSecret(context.Background(), "comicstore/JWT_SECRET")
		require.NoError(t, err)
		assert.Equal(t, "value-of-comicstore/JWT_SECRET", v)
	}
	assert.Equal(t, 1, api.calls)
}

type fakeSNS struct{ input *sns.PublishInput }

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	return &sns.PublishOutput{}, nil
}

func TestSNSClient_Publish(t *testing.T) {
	api := &fakeSNS{}
	c := &SNSClient{client: api, logger: zap.NewNop()}

	require.NoError(t, c.Publish(context.Background(), "arn:aws:sns:us-east-1:000000000000:orders", "order_placed", []byte(`{"a":1}`)))
	assert.Equal(t, `{"a":1}`, *api.input.Message)
	assert.Equal(t, "order_placed", *api.input.MessageAttributes["event_type"].StringValue)

	assert.Error(t, c.Publish(context.Background(), "", "order_placed", nil))
}

type fakeCloudWatch struct{ inputs []*cloudwatch.PutMetricDataInput }

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestMetricsClient(t *testing.T) {
	api := &fakeCloudWatch{}

	disabled := NewMetricsClientWithAPI(api, "", false)
	require.NoError(t, disabled.RecordCount(context.Background(), MetricOrdersCreated, nil))
	assert.Empty(t, api.inputs)
	assert.False(t, disabled.IsEnabled())

	enabled := NewMetricsClientWithAPI(api, "", true)
	require.NoError(t, enabled.RecordCount(context.Background(), MetricOrdersCreated, map[string]string{"Service": "comicstore"}))
	require.Len(t, api.inputs, 1)
	assert.Equal(t, "ComicStore", *api.inputs[0].Namespace)
	assert.Equal(t, MetricOrdersCreated, *api.inputs[0].MetricData[0].MetricName)

	var nilClient *MetricsClient
	assert.NoError(t, nilClient.RecordCount(context.Background(), MetricOrdersFailed, nil))
}
