// Package iot builds the clients the connector uses to reach the device registry
// and the device shadow service.
package iot

import (
	"context"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"go.uber.org/zap"

	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	"github.com/ajitpratap0/iotcore/pkg/logger"
)

// MaxResults is the page size cap sent with every list call
const MaxResults int32 = 250

// RegistryAPI is the subset of the registry control plane the connector calls.
// *iot.Client satisfies it.
type RegistryAPI interface {
	ListThings(ctx context.Context, params *iot.ListThingsInput, optFns ...func(*iot.Options)) (*iot.ListThingsOutput, error)
	ListThingTypes(ctx context.Context, params *iot.ListThingTypesInput, optFns ...func(*iot.Options)) (*iot.ListThingTypesOutput, error)
	ListThingGroups(ctx context.Context, params *iot.ListThingGroupsInput, optFns ...func(*iot.Options)) (*iot.ListThingGroupsOutput, error)
	ListThingGroupsForThing(ctx context.Context, params *iot.ListThingGroupsForThingInput, optFns ...func(*iot.Options)) (*iot.ListThingGroupsForThingOutput, error)
	CreateThing(ctx context.Context, params *iot.CreateThingInput, optFns ...func(*iot.Options)) (*iot.CreateThingOutput, error)
	DeleteThing(ctx context.Context, params *iot.DeleteThingInput, optFns ...func(*iot.Options)) (*iot.DeleteThingOutput, error)
}

// ShadowAPI reads and writes device shadow documents.
type ShadowAPI interface {
	GetThingShadow(ctx context.Context, params *GetThingShadowInput) (*GetThingShadowOutput, error)
	UpdateThingShadow(ctx context.Context, params *UpdateThingShadowInput) (*UpdateThingShadowOutput, error)
}

// Clients holds one connector instance's backend clients
type Clients struct {
	Registry RegistryAPI
	Shadow   ShadowAPI
}

// NewClients builds registry and shadow clients from explicit options. Nothing
// is read from or stored in package state; the SDK retryer is disabled.
func NewClients(ctx context.Context, opts config.IoTCoreOptions, timeouts config.TimeoutConfig) (*Clients, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	creds := credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
	httpClient := awshttp.NewBuildableClient().
		WithTimeout(timeouts.Request).
		WithDialerOptions(func(d *net.Dialer) {
			if timeouts.Connection > 0 {
				d.Timeout = timeouts.Connection
			}
		})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
		awsconfig.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	registry := iot.NewFromConfig(awsCfg, func(o *iot.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	shadow, err := NewShadowClient(ShadowClientConfig{
		Endpoint:          opts.DataEndpoint,
		Region:            opts.Region,
		Credentials:       creds,
		Timeout:           timeouts.Request,
		ConnectionTimeout: timeouts.Connection,
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Debug("device registry clients created",
		zap.String("region", opts.Region),
		zap.String("endpoint", opts.Endpoint),
		zap.String("shadow_endpoint", shadow.Endpoint()))

	return &Clients{Registry: registry, Shadow: shadow}, nil
}

// DefaultDataEndpoint returns the public device data endpoint for region
func DefaultDataEndpoint(region string) string {
	return "https://data-ats.iot." + region + ".amazonaws.com"
}

func defaultTimeout(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
