package iotcore

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iot/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/connector/registry"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	iotclient "github.com/ajitpratap0/iotcore/pkg/iot"
	"github.com/ajitpratap0/iotcore/pkg/json"
)

func TestNewRejectsBadConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		want   string
	}{
		{"missing region", func(m map[string]string) { delete(m, config.OptionRegion) }, "please set the AWS region"},
		{"missing access key", func(m map[string]string) { delete(m, config.OptionAccessKey) }, "please set the AWS access key"},
		{"missing secret key", func(m map[string]string) { delete(m, config.OptionSecretKey) }, "please set the AWS secret key"},
		{"unknown table type", func(m map[string]string) { m[config.OptionTableType] = "certificate" }, "does not support table_type certificate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("thing", nil)
			tt.mutate(cfg.Security.Credentials)

			_, err := New(context.Background(), cfg)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := NewWithClients(context.Background(), testConfig("thing", nil), &iotclient.Clients{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestNewBuildsOwnClients(t *testing.T) {
	cfg := testConfig("Thing-Group", map[string]string{config.OptionURL: "http://127.0.0.1:1"})

	conn, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, core.KindThingGroup, conn.Kind())
	assert.Equal(t, "iot_Thing-Group", conn.Name())
}

func TestTableTypeDefaultsToThing(t *testing.T) {
	cfg := testConfig("", nil)
	delete(cfg.Security.Credentials, config.OptionTableType)

	conn, err := NewWithClients(context.Background(), cfg, &iotclient.Clients{Registry: &MockRegistry{}, Shadow: &MockShadow{}})
	require.NoError(t, err)
	assert.Equal(t, core.KindThing, conn.Kind())
}

func TestPlannerHints(t *testing.T) {
	tests := []struct {
		tableType string
		rowID     string
	}{
		{"thing", "thing_name"},
		{"thing-type", "thing_type_name"},
		{"thing-group", "thing_group_name"},
	}
	for _, tt := range tests {
		t.Run(tt.tableType, func(t *testing.T) {
			f := newFixture(t, tt.tableType, nil)
			assert.Equal(t, tt.rowID, f.conn.RowIDColumn())
			assert.Equal(t, []core.PathKey{{Columns: []string{tt.rowID}, ExpectedRows: 1}}, f.conn.PathKeys())
			assert.Equal(t, 1000, f.conn.StartupCost())
		})
	}
}

func TestThingTypeScan(t *testing.T) {
	f := newFixture(t, "thing-type", nil)
	ctx := context.Background()

	created := time.Date(2023, 5, 17, 8, 30, 0, 0, time.UTC)
	f.registry.On("ListThingTypes", mock.Anything, mock.MatchedBy(func(in *iot.ListThingTypesInput) bool {
		return aws.ToString(in.ThingTypeName) == "gateway" && aws.ToInt32(in.MaxResults) == 250
	})).Return(&iot.ListThingTypesOutput{ThingTypes: []types.ThingTypeDefinition{{
		ThingTypeName: aws.String("gateway"),
		ThingTypeArn:  aws.String("arn:aws:iot:eu-central-1:1:thingtype/gateway"),
		ThingTypeProperties: &types.ThingTypeProperties{
			ThingTypeDescription: aws.String("edge gateways"),
			SearchableAttributes: []string{"site"},
		},
		ThingTypeMetadata: &types.ThingTypeMetadata{CreationDate: &created},
	}}}, nil).Once()

	quals := []core.Qual{{Field: "thing_type_name", Operator: core.OperatorEqual, Value: "gateway"}}
	it, err := f.conn.Execute(ctx, quals, core.TableDefinition{Columns: Columns(core.KindThingType)}.ColumnNames())
	require.NoError(t, err)
	rows, err := core.Collect(ctx, it)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "gateway", row[ColumnThingTypeName])
	assert.Equal(t, "arn:aws:iot:eu-central-1:1:thingtype/gateway", row[ColumnThingTypeArn])
	assert.JSONEq(t, `{"thingTypeDescription":"edge gateways","searchableAttributes":["site"]}`, row[ColumnThingTypeProperties].(string))

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(row[ColumnThingTypeMetadata].(string)), &meta))
	assert.Equal(t, "2023-05-17 08:30:00+00:00", meta["creationDate"])
	assert.Equal(t, false, meta["deprecated"])
	assert.NotContains(t, meta, "deprecationDate")
}

func TestThingTypeScanProjectsOnlyRequested(t *testing.T) {
	f := newFixture(t, "thing-type", nil)
	ctx := context.Background()

	f.registry.On("ListThingTypes", mock.Anything, withToken("")).
		Return(&iot.ListThingTypesOutput{
			ThingTypes: []types.ThingTypeDefinition{{ThingTypeName: aws.String("a")}},
			NextToken:  aws.String("n"),
		}, nil).Once()
	f.registry.On("ListThingTypes", mock.Anything, withToken("n")).
		Return(&iot.ListThingTypesOutput{
			ThingTypes: []types.ThingTypeDefinition{{ThingTypeName: aws.String("b")}},
		}, nil).Once()

	it, err := f.conn.Execute(ctx, []core.Qual{{Field: "thing_type_name", Operator: core.OperatorLike, Value: "a%"}}, []string{ColumnThingTypeName})
	require.NoError(t, err)
	rows, err := core.Collect(ctx, it)
	require.NoError(t, err)
	assert.Equal(t, []core.Row{{ColumnThingTypeName: "a"}, {ColumnThingTypeName: "b"}}, rows)
}

func TestThingGroupScanPrefix(t *testing.T) {
	tests := []struct {
		name       string
		qual       core.Qual
		wantPrefix *string
	}{
		{"like prefix", core.Qual{Field: "thing_group_name", Operator: core.OperatorLike, Value: "abc%"}, aws.String("abc")},
		{"inner wildcard", core.Qual{Field: "thing_group_name", Operator: core.OperatorLike, Value: "a%bc"}, nil},
		{"single-character wildcard", core.Qual{Field: "thing_group_name", Operator: core.OperatorLike, Value: "ab_c%"}, nil},
		{"equality", core.Qual{Field: "Thing_Group_Name", Operator: core.OperatorEqual, Value: "plant"}, aws.String("plant")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "thing-group", nil)
			ctx := context.Background()

			f.registry.On("ListThingGroups", mock.Anything, mock.MatchedBy(func(in *iot.ListThingGroupsInput) bool {
				return assert.ObjectsAreEqual(tt.wantPrefix, in.NamePrefixFilter)
			})).Return(&iot.ListThingGroupsOutput{ThingGroups: []types.GroupNameAndArn{
				{GroupName: aws.String("abc-1"), GroupArn: aws.String("arn:group/abc-1")},
			}}, nil).Once()

			it, err := f.conn.Execute(ctx, []core.Qual{tt.qual}, []string{ColumnThingGroupName, ColumnThingGroupArn})
			require.NoError(t, err)
			rows, err := core.Collect(ctx, it)
			require.NoError(t, err)
			assert.Equal(t, []core.Row{{ColumnThingGroupName: "abc-1", ColumnThingGroupArn: "arn:group/abc-1"}}, rows)
		})
	}
}

func TestClosedConnectorRejectsCalls(t *testing.T) {
	f := newFixture(t, "thing", nil)
	ctx := context.Background()
	require.NoError(t, f.conn.Close(ctx))
	assert.True(t, f.conn.Closed())

	_, err := f.conn.Execute(ctx, nil, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
	_, err = f.conn.Insert(ctx, core.Row{ColumnThingName: "x"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
	assert.True(t, errors.IsType(f.conn.Health(ctx), errors.ErrorTypeConnection))
}

func TestHealthProbe(t *testing.T) {
	f := newFixture(t, "thing", nil)
	ctx := context.Background()

	f.registry.On("ListThingTypes", mock.Anything, mock.MatchedBy(func(in *iot.ListThingTypesInput) bool {
		return aws.ToInt32(in.MaxResults) == 1
	})).Return(&iot.ListThingTypesOutput{}, nil).Once()
	require.NoError(t, f.conn.Health(ctx))

	f.registry.On("ListThingTypes", mock.Anything, mock.Anything).Return(nil, apiError("UnauthorizedException")).Once()
	assert.Error(t, f.conn.Health(ctx))
	assert.Equal(t, "unhealthy", f.conn.Metrics()["health_status"])
}

func TestImportSchema(t *testing.T) {
	defs := ImportSchema("aws")
	require.Len(t, defs, 3)

	assert.Equal(t, "aws_things", defs[0].Name)
	assert.Equal(t, "aws", defs[0].Schema)
	assert.Equal(t, map[string]string{"table_type": "thing"}, defs[0].Options)
	assert.Equal(t, []string{"thing_name", "thing_type_name", "thing_arn", "thing_version", "thing_groups", "thing_attributes", "thing_shadow_data"}, defs[0].ColumnNames())
	assert.Equal(t, core.FieldTypeInteger, defs[0].Columns[3].Type)

	assert.Equal(t, "aws_thing_types", defs[1].Name)
	assert.Equal(t, "thing-type", defs[1].Options["table_type"])
	assert.Equal(t, []string{"thing_type_name", "thing_type_arn", "thing_type_properties", "thing_type_metadata"}, defs[1].ColumnNames())

	assert.Equal(t, "aws_thing_groups", defs[2].Name)
	assert.Equal(t, "thing-group", defs[2].Options["table_type"])
	assert.Equal(t, []string{"thing_group_name", "thing_group_arn"}, defs[2].ColumnNames())
}

func TestRegisteredInGlobalRegistry(t *testing.T) {
	assert.True(t, registry.HasTable(ConnectorName))

	info, err := registry.GetConnectorInfo(ConnectorName)
	require.NoError(t, err)
	assert.Len(t, info.ImportSchema("x"), 3)

	table, err := registry.CreateTable(ConnectorName, testConfig("thing-type", nil))
	require.NoError(t, err)
	assert.Equal(t, "thing_type_name", table.RowIDColumn())

	_, err = registry.CreateTable(ConnectorName, testConfig("bogus", nil))
	assert.Error(t, err)
}
