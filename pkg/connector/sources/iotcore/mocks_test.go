package iotcore

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iot/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/iotcore/pkg/config"
	iotclient "github.com/ajitpratap0/iotcore/pkg/iot"
)

// MockRegistry is a RegistryAPI stub
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) ListThings(ctx context.Context, in *iot.ListThingsInput, _ ...func(*iot.Options)) (*iot.ListThingsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iot.ListThingsOutput), args.Error(1)
}

func (m *MockRegistry) ListThingTypes(ctx context.Context, in *iot.ListThingTypesInput, _ ...func(*iot.Options)) (*iot.ListThingTypesOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iot.ListThingTypesOutput), args.Error(1)
}

func (m *MockRegistry) ListThingGroups(ctx context.Context, in *iot.ListThingGroupsInput, _ ...func(*iot.Options)) (*iot.ListThingGroupsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iot.ListThingGroupsOutput), args.Error(1)
}

func (m *MockRegistry) ListThingGroupsForThing(ctx context.Context, in *iot.ListThingGroupsForThingInput, _ ...func(*iot.Options)) (*iot.ListThingGroupsForThingOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iot.ListThingGroupsForThingOutput), args.Error(1)
}

func (m *MockRegistry) CreateThing(ctx context.Context, in *iot.CreateThingInput, _ ...func(*iot.Options)) (*iot.CreateThingOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iot.CreateThingOutput), args.Error(1)
}

func (m *MockRegistry) DeleteThing(ctx context.Context, in *iot.DeleteThingInput, _ ...func(*iot.Options)) (*iot.DeleteThingOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iot.DeleteThingOutput), args.Error(1)
}

// MockShadow is a ShadowAPI stub
type MockShadow struct {
	mock.Mock
}

func (m *MockShadow) GetThingShadow(ctx context.Context, in *iotclient.GetThingShadowInput) (*iotclient.GetThingShadowOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iotclient.GetThingShadowOutput), args.Error(1)
}

func (m *MockShadow) UpdateThingShadow(ctx context.Context, in *iotclient.UpdateThingShadowInput) (*iotclient.UpdateThingShadowOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iotclient.UpdateThingShadowOutput), args.Error(1)
}

type fixture struct {
	conn     *Connector
	registry *MockRegistry
	shadow   *MockShadow
	logs     *observer.ObservedLogs
}

func testConfig(tableType string, extra map[string]string) *config.BaseConfig {
	cfg := config.NewBaseConfig("iot_"+tableType, ConnectorName)
	cfg.Security.Credentials = map[string]string{
		config.OptionRegion:    "eu-central-1",
		config.OptionAccessKey: "AKIAEXAMPLE",
		config.OptionSecretKey: "secret",
		config.OptionTableType: tableType,
	}
	for k, v := range extra {
		cfg.Security.Credentials[k] = v
	}
	return cfg
}

func newFixture(t *testing.T, tableType string, extra map[string]string) *fixture {
	t.Helper()
	reg, shadow := &MockRegistry{}, &MockShadow{}

	conn, err := NewWithClients(context.Background(), testConfig(tableType, extra), &iotclient.Clients{Registry: reg, Shadow: shadow})
	require.NoError(t, err)

	zapCore, logs := observer.New(zap.DebugLevel)
	conn.SetLogger(zap.New(zapCore))

	t.Cleanup(func() {
		reg.AssertExpectations(t)
		shadow.AssertExpectations(t)
	})
	return &fixture{conn: conn, registry: reg, shadow: shadow, logs: logs}
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code + " for test", Fault: smithy.FaultClient}
}

// things builds n things named prefix-0, prefix-1, ...
func things(prefix string, n int) []types.ThingAttribute {
	out := make([]types.ThingAttribute, n)
	for i := range out {
		name := fmt.Sprintf("%s-%d", prefix, i)
		out[i] = types.ThingAttribute{
			ThingName:     aws.String(name),
			ThingArn:      aws.String("arn:aws:iot:eu-central-1:123456789012:thing/" + name),
			ThingTypeName: aws.String("sensor"),
			Version:       int64(i + 1),
			Attributes:    map[string]string{"serial": name},
		}
	}
	return out
}

func withToken(token string) interface{} {
	return mock.MatchedBy(func(in interface{}) bool {
		var got *string
		switch v := in.(type) {
		case *iot.ListThingsInput:
			got = v.NextToken
		case *iot.ListThingTypesInput:
			got = v.NextToken
		case *iot.ListThingGroupsInput:
			got = v.NextToken
		case *iot.ListThingGroupsForThingInput:
			got = v.NextToken
		default:
			return false
		}
		return aws.ToString(got) == token
	})
}
