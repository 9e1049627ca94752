package blobstore

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPutter struct {
	mock.Mock
}

func (m *mockPutter) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func stubS3(t *testing.T, putter objectPutter) *s3.Options {
	t.Helper()

	origLoad, origClient := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origClient
	})

	opts := &s3.Options{}
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{Region: "eu-west-1"}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		for _, fn := range optFns {
			fn(opts)
		}
		return putter
	}
	return opts
}

func TestS3Put(t *testing.T) {
	putter := new(mockPutter)
	opts := stubS3(t, putter)

	putter.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "avatars" &&
			aws.ToString(in.Key) == "avatars/acc-1/pic.png" &&
			aws.ToString(in.ContentType) == "image/png"
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	store, err := NewS3(context.Background(), S3Config{
		Bucket:       "avatars",
		Region:       "eu-west-1",
		Endpoint:     "http://minio:9000",
		AccessKey:    "minio",
		SecretKey:    "minio123",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	url, err := store.Put(context.Background(), "avatars/acc-1/pic.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/avatars/avatars/acc-1/pic.png", url)

	putter.AssertExpectations(t)
}

func TestS3PutError(t *testing.T) {
	putter := new(mockPutter)
	stubS3(t, putter)

	putter.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied")).Once()

	store, err := NewS3(context.Background(), S3Config{
		Bucket:        "avatars",
		Region:        "eu-west-1",
		PublicBaseURL: "https://cdn.yapyap.app",
	})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "k", "image/png", strings.NewReader("png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.yapyap.app", publicBaseURL(S3Config{PublicBaseURL: "https://cdn.yapyap.app"}))
	assert.Equal(t, "https://avatars.s3.us-east-1.amazonaws.com", publicBaseURL(S3Config{Bucket: "avatars", Region: "us-east-1"}))
}

func TestMemoryPutAndServe(t *testing.T) {
	store := NewMemory("http://localhost:5001/media")

	url, err := store.Put(context.Background(), "avatars/a/b.png", "image/png", strings.NewReader("pixels"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5001/media/avatars/a/b.png", url)
	assert.Equal(t, 1, store.Len())

	app := fiber.New()
	app.Get("/media/*", store.Serve)

	resp, err := app.Test(httptest.NewRequest("GET", "/media/avatars/a/b.png", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/media/missing.png", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMemoryPutCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory("http://x").Put(ctx, "k", "image/png", strings.NewReader("p"))
	require.ErrorIs(t, err, context.Canceled)
}
