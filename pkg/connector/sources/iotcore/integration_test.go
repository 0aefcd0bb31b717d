package iotcore

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	"github.com/ajitpratap0/iotcore/pkg/testutil"
)

// RegistrySuite drives the connector through the real SDK clients against
// an in-process registry.
type RegistrySuite struct {
	testutil.IntegrationTestSuite
}

func TestRegistrySuite(t *testing.T) {
	testutil.IntegrationTest(t)
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) open(tableType string, extra map[string]string) *Connector {
	conn, err := New(s.Context(), s.Config(tableType, extra))
	s.Require().NoError(err)
	conn.SetLogger(testutil.TestLogger(s.T()))
	s.T().Cleanup(func() { _ = conn.Close(s.Context()) })
	return conn
}

func (s *RegistrySuite) scan(conn *Connector, quals []core.Qual, columns []string) []core.Row {
	it, err := conn.Execute(s.Context(), quals, columns)
	s.Require().NoError(err)
	rows, err := core.Collect(s.Context(), it)
	s.Require().NoError(err)
	return rows
}

func (s *RegistrySuite) TestThingsPaginateAcrossPages() {
	for i := 0; i < 600; i++ {
		s.Fake.AddThing(testutil.FakeThing{Name: fmt.Sprintf("sensor-%03d", i), TypeName: "sensor"})
	}
	conn := s.open("thing", nil)

	rows := s.scan(conn, nil, []string{ColumnThingName})
	s.Len(rows, 600)
	s.Equal("sensor-599", rows[599][ColumnThingName])
	s.Equal(3, s.Fake.Calls(testutil.OpListThings))
}

func (s *RegistrySuite) TestThingRowWithEnrichment() {
	s.Fake.AddThing(testutil.FakeThing{
		Name:       "gw-1",
		TypeName:   "gateway",
		Attributes: map[string]string{"site": "berlin"},
		Version:    7,
		Groups:     []string{"plant-a"},
	})
	s.Fake.AddThing(testutil.FakeThing{Name: "gw-2", TypeName: "gateway"})
	s.Fake.SetShadow("gw-1", "", `{"state":{"reported":{"temp":21}}}`)

	conn := s.open("thing", nil)
	all := core.TableDefinition{Columns: Columns(core.KindThing)}.ColumnNames()
	rows := s.scan(conn, []core.Qual{{Field: ColumnThingTypeName, Operator: core.OperatorEqual, Value: "gateway"}}, all)
	s.Require().Len(rows, 2)

	gw1 := rows[0]
	s.Equal("gateway", gw1[ColumnThingTypeName])
	s.Equal(int64(7), gw1[ColumnThingVersion])
	s.Equal("arn:aws:iot:eu-central-1:123456789012:thing/gw-1", gw1[ColumnThingArn])
	s.JSONEq(`{"site":"berlin"}`, gw1[ColumnThingAttributes].(string))
	s.JSONEq(`[{"groupName":"plant-a","groupArn":"arn:aws:iot:eu-central-1:123456789012:thinggroup/plant-a"}]`, gw1[ColumnThingGroups].(string))
	s.JSONEq(`{"state":{"reported":{"temp":21}}}`, gw1[ColumnThingShadowData].(string))

	// gw-2 has no shadow: the service answers 404 and the column is left out
	gw2 := rows[1]
	s.Equal("[]", gw2[ColumnThingGroups])
	s.NotContains(gw2, ColumnThingShadowData)
}

func (s *RegistrySuite) TestGroupFailureDropsOnlyThatColumn() {
	s.Fake.AddThing(testutil.FakeThing{Name: "a", Groups: []string{"g1"}})
	s.Fake.AddThing(testutil.FakeThing{Name: "b", Groups: []string{"g2"}})
	s.Fake.FailOperation(testutil.OpListThingGroupsForThing+"/a", http.StatusForbidden, "UnauthorizedException")

	conn := s.open("thing", nil)
	rows := s.scan(conn, nil, []string{ColumnThingName, ColumnThingGroups})
	s.Require().Len(rows, 2)
	s.NotContains(rows[0], ColumnThingGroups)
	s.Contains(rows[1][ColumnThingGroups], "g2")
}

func (s *RegistrySuite) TestListFailureIsFatal() {
	s.Fake.FailOperation(testutil.OpListThings, http.StatusForbidden, "UnauthorizedException")
	conn := s.open("thing", nil)

	it, err := conn.Execute(s.Context(), nil, []string{ColumnThingName})
	s.Require().NoError(err)
	_, err = core.Collect(s.Context(), it)
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeBackend))
	s.Equal(1, s.Fake.Calls(testutil.OpListThings))
}

func (s *RegistrySuite) TestThingTypesAndGroups() {
	s.Fake.AddThingType(testutil.FakeThingType{
		Name:        "gateway",
		Description: "edge gateways",
		Created:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	s.Fake.AddThingType(testutil.FakeThingType{Name: "sensor"})
	s.Fake.AddGroup("plant-a")
	s.Fake.AddGroup("plant-b")
	s.Fake.AddGroup("office")

	types := s.scan(s.open("thing-type", nil),
		[]core.Qual{{Field: ColumnThingTypeName, Operator: core.OperatorEqual, Value: "gateway"}},
		core.TableDefinition{Columns: Columns(core.KindThingType)}.ColumnNames())
	s.Require().Len(types, 1)
	s.JSONEq(`{"thingTypeDescription":"edge gateways"}`, types[0][ColumnThingTypeProperties].(string))
	s.Contains(types[0][ColumnThingTypeMetadata], `"creationDate":"2024-01-02 03:04:05+00:00"`)

	groups := s.scan(s.open("thing-group", nil),
		[]core.Qual{{Field: ColumnThingGroupName, Operator: core.OperatorLike, Value: "plant%"}},
		[]string{ColumnThingGroupName})
	s.Equal([]core.Row{{ColumnThingGroupName: "plant-a"}, {ColumnThingGroupName: "plant-b"}}, groups)
}

func (s *RegistrySuite) TestMutationsRoundTrip() {
	conn := s.open("thing", map[string]string{config.OptionShadowName: "settings"})
	ctx := s.Context()

	_, err := conn.Insert(ctx, core.Row{ColumnThingName: "new-1", ColumnThingTypeName: "sensor"})
	s.Require().NoError(err)
	thing, ok := s.Fake.Thing("new-1")
	s.Require().True(ok)
	s.Equal("sensor", thing.TypeName)

	_, err = conn.Insert(ctx, core.Row{ColumnThingName: "new-1"})
	s.True(errors.IsType(err, errors.ErrorTypeBackend))

	got, err := conn.Update(ctx, "new-1", core.Row{ColumnThingShadowData: `{"state":{"desired":{"rate":5}}}`})
	s.Require().NoError(err)
	s.JSONEq(`{"state":{"desired":{"rate":5}}}`, got[ColumnThingShadowData].(string))
	doc, ok := s.Fake.Shadow("new-1", "settings")
	s.True(ok)
	s.JSONEq(`{"state":{"desired":{"rate":5}}}`, doc)

	s.Require().NoError(conn.Delete(ctx, "new-1"))
	s.False(s.Fake.HasThing("new-1"))
	s.Error(conn.Delete(ctx, "new-1"))
}
