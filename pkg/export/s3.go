package export

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/errors"
)

// ContentType of every exported object
const ContentType = "application/x-ndjson"

// Uploader streams an object body to S3. *manager.Uploader satisfies it.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// NewUploader builds an S3 uploader from the export settings and the
// connector's credentials.
func NewUploader(ctx context.Context, cfg config.ExportConfig, opts config.IoTCoreOptions) (*manager.Uploader, error) {
	region := cfg.Region
	if region == "" {
		region = opts.Region
	}
	if region == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "please set the AWS region for the S3 export")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return manager.NewUploader(client), nil
}

// upload runs in its own goroutine and drains body until the writer side closes.
func upload(ctx context.Context, u Uploader, target Target, encoding string, body io.Reader) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(target.Bucket),
		Key:         aws.String(target.Key),
		Body:        body,
		ContentType: aws.String(ContentType),
	}
	if encoding != "" {
		input.ContentEncoding = aws.String(encoding)
	}

	out, err := u.Upload(ctx, input)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload to S3").
			WithDetail("target", target.String())
	}
	return out.Location, nil
}
