package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Seams for tests.
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newObjectID = uuid.NewString
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Settings configures the activity archive.
type S3Settings struct {
	Region       string
	RootUser     string
	RootPassword string
	BaseEndpoint string
	Bucket       string
}

// S3Recorder archives each event as a JSON object in an S3-compatible bucket.
type S3Recorder struct {
	client objectPutter
	bucket string
}

// NewS3Recorder builds the S3 client from static credentials and a custom
// endpoint (MinIO in development).
func NewS3Recorder(ctx context.Context, s S3Settings) (*S3Recorder, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.RootUser,
			s.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading s3 config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Recorder{client: client, bucket: s.Bucket}, nil
}

// ObjectKey is activity/YYYY/MM/DD/<id>.json, dated by the event timestamp.
func ObjectKey(e Event, id string) string {
	ts := e.Timestamp.UTC()
	return fmt.Sprintf("activity/%04d/%02d/%02d/%s.json", ts.Year(), ts.Month(), ts.Day(), id)
}

func (r *S3Recorder) Record(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	key := ObjectKey(e, newObjectID())
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archiving event %s: %w", key, err)
	}
	return nil
}
