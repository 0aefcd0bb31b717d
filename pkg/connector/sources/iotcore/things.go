package iotcore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iot/types"
	"go.uber.org/zap"

	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	iotclient "github.com/ajitpratap0/iotcore/pkg/iot"
	"github.com/ajitpratap0/iotcore/pkg/json"
)

// Thing table columns
const (
	ColumnThingName       = "thing_name"
	ColumnThingTypeName   = "thing_type_name"
	ColumnThingArn        = "thing_arn"
	ColumnThingVersion    = "thing_version"
	ColumnThingGroups     = "thing_groups"
	ColumnThingAttributes = "thing_attributes"
	ColumnThingShadowData = "thing_shadow_data"
)

// GroupEnricher resolves the thing_groups column of one thing. ok is false
// when the column must be left out of the row.
type GroupEnricher interface {
	ThingGroups(ctx context.Context, thingName string) (value string, ok bool, err error)
}

// ShadowEnricher resolves the thing_shadow_data column of one thing. ok is
// false when the column must be left out of the row.
type ShadowEnricher interface {
	ThingShadow(ctx context.Context, thingName string) (value string, ok bool, err error)
}

type thingTable struct {
	c *Connector
}

var (
	_ GroupEnricher  = (*thingTable)(nil)
	_ ShadowEnricher = (*thingTable)(nil)
)

// groupRef is one membership entry of the thing_groups column
type groupRef struct {
	GroupName *string `json:"groupName"`
	GroupArn  *string `json:"groupArn"`
}

func (t *thingTable) scan(ctx context.Context, quals []core.Qual, columns columnSet) core.RowIterator {
	typeName, filtered := ExtractFilter(core.KindThing, quals)
	pageNum := 0

	fetch := func(ctx context.Context, token *string) (page[types.ThingAttribute], error) {
		in := &iot.ListThingsInput{
			MaxResults: aws.Int32(iotclient.MaxResults),
			NextToken:  token,
		}
		if filtered {
			in.ThingTypeName = aws.String(typeName)
		}

		pageNum++
		var out *iot.ListThingsOutput
		err := t.c.listPage(ctx, "ListThings", pageNum, func(ctx context.Context) (int, error) {
			var err error
			out, err = t.c.registry.ListThings(ctx, in)
			if err != nil {
				return 0, iotclient.WrapBackend(err, "no things from IoT core")
			}
			return len(out.Things), nil
		})
		if err != nil {
			return page[types.ThingAttribute]{}, err
		}
		return page[types.ThingAttribute]{items: out.Things, next: out.NextToken}, nil
	}

	project := func(ctx context.Context, thing types.ThingAttribute) (core.Row, error) {
		return t.project(ctx, thing, columns)
	}

	return newPageIterator(fetch, project, t.c.MetricsCollector().RowEmitted)
}

func (t *thingTable) project(ctx context.Context, thing types.ThingAttribute, columns columnSet) (core.Row, error) {
	name := aws.ToString(thing.ThingName)
	row := core.Row{ColumnThingName: name}

	if columns.has(ColumnThingGroups) {
		value, ok, err := t.ThingGroups(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			row[ColumnThingGroups] = value
		}
	}
	if columns.has(ColumnThingTypeName) {
		row[ColumnThingTypeName] = stringValue(thing.ThingTypeName)
	}
	if columns.has(ColumnThingArn) {
		row[ColumnThingArn] = stringValue(thing.ThingArn)
	}
	if columns.has(ColumnThingVersion) {
		row[ColumnThingVersion] = thing.Version
	}
	if columns.has(ColumnThingAttributes) {
		attrs, err := json.MarshalString(thing.Attributes)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode thing attributes")
		}
		row[ColumnThingAttributes] = attrs
	}
	if columns.has(ColumnThingShadowData) {
		value, ok, err := t.ThingShadow(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			row[ColumnThingShadowData] = value
		}
	}

	return row, nil
}

// ThingGroups lists every group the thing belongs to. Membership is all or
// nothing: a failed page drops the whole column.
func (t *thingTable) ThingGroups(ctx context.Context, thingName string) (string, bool, error) {
	fetch := func(ctx context.Context, token *string) (page[types.GroupNameAndArn], error) {
		var out *iot.ListThingGroupsForThingOutput
		err := t.c.Observe(ctx, "ListThingGroupsForThing", func(ctx context.Context) error {
			var err error
			out, err = t.c.registry.ListThingGroupsForThing(ctx, &iot.ListThingGroupsForThingInput{
				ThingName:  aws.String(thingName),
				MaxResults: aws.Int32(iotclient.MaxResults),
				NextToken:  token,
			})
			return err
		})
		if err != nil {
			return page[types.GroupNameAndArn]{}, err
		}
		return page[types.GroupNameAndArn]{items: out.ThingGroups, next: out.NextToken}, nil
	}

	groups, err := drain(ctx, fetch)
	if err != nil {
		return "", false, t.enrichmentFailure(ctx, ColumnThingGroups, thingName, err)
	}

	refs := make([]groupRef, len(groups))
	for i, g := range groups {
		refs[i] = groupRef{GroupName: g.GroupName, GroupArn: g.GroupArn}
	}
	value, err := json.MarshalString(refs)
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrorTypeData, "failed to encode thing groups")
	}
	return value, true, nil
}

// ThingShadow reads the thing's shadow document. An empty document, a missing
// shadow or a rejected call leaves the column out.
func (t *thingTable) ThingShadow(ctx context.Context, thingName string) (string, bool, error) {
	var out *iotclient.GetThingShadowOutput
	err := t.c.Observe(ctx, "GetThingShadow", func(ctx context.Context) error {
		var err error
		out, err = t.c.shadow.GetThingShadow(ctx, &iotclient.GetThingShadowInput{
			ThingName:  thingName,
			ShadowName: t.c.options.ShadowName,
		})
		return err
	})
	if err != nil {
		if iotclient.IsNotFound(err) {
			t.c.LoggerFor(ctx).Debug("thing has no shadow",
				zap.String("thing_name", thingName),
				zap.String("shadow_name", t.c.options.ShadowName))
			return "", false, nil
		}
		return "", false, t.enrichmentFailure(ctx, ColumnThingShadowData, thingName, err)
	}
	if out == nil || len(out.Payload) == 0 {
		return "", false, nil
	}
	return string(out.Payload), true, nil
}

// enrichmentFailure logs and swallows backend errors. Anything else aborts the scan.
func (t *thingTable) enrichmentFailure(ctx context.Context, column, thingName string, err error) error {
	if !iotclient.IsBackendError(err) {
		return errors.Wrap(err, errors.ErrorTypeInternal, "unknown error while reading "+column).
			WithDetail("thing_name", thingName)
	}

	t.c.MetricsCollector().EnrichmentMiss(column)
	t.c.LoggerFor(ctx).Warn("enrichment failed, column omitted",
		zap.String("column", column),
		zap.String("thing_name", thingName),
		zap.String("code", iotclient.ErrorCode(err)),
		zap.Error(err))
	return nil
}

func (t *thingTable) insert(ctx context.Context, values core.Row) (core.Row, error) {
	name, _ := values[ColumnThingName].(string)
	if name == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "thing_name is required").
			WithDetail("column", ColumnThingName)
	}

	in := &iot.CreateThingInput{ThingName: aws.String(name)}
	if typeName, _ := values[ColumnThingTypeName].(string); typeName != "" {
		in.ThingTypeName = aws.String(typeName)
	}

	err := t.c.Observe(ctx, "CreateThing", func(ctx context.Context) error {
		_, err := t.c.registry.CreateThing(ctx, in)
		return err
	})
	if err != nil {
		return nil, iotclient.WrapBackend(err, "insert failed for thing "+name)
	}

	t.c.LoggerFor(ctx).Info("thing created", zap.String("thing_name", name))
	return values, nil
}

func (t *thingTable) update(ctx context.Context, rowID string, values core.Row) (core.Row, error) {
	raw, ok := values[ColumnThingShadowData]
	if !ok {
		return values, nil
	}
	if rowID == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "thing_name is required to update a shadow").
			WithDetail("column", ColumnThingName)
	}

	payload, err := shadowPayload(raw)
	if err != nil {
		return nil, err
	}

	var out *iotclient.UpdateThingShadowOutput
	err = t.c.Observe(ctx, "UpdateThingShadow", func(ctx context.Context) error {
		var err error
		out, err = t.c.shadow.UpdateThingShadow(ctx, &iotclient.UpdateThingShadowInput{
			ThingName:  rowID,
			ShadowName: t.c.options.ShadowName,
			Payload:    payload,
		})
		return err
	})
	if err != nil {
		return nil, iotclient.WrapBackend(err, "data update failed in IoT shadow for thing "+rowID)
	}

	result := make(core.Row, len(values))
	for k, v := range values {
		result[k] = v
	}
	if out != nil && len(out.Payload) > 0 {
		result[ColumnThingShadowData] = string(out.Payload)
	}
	return result, nil
}

func (t *thingTable) delete(ctx context.Context, rowID string) error {
	if rowID == "" {
		return errors.New(errors.ErrorTypeValidation, "thing_name is required").
			WithDetail("column", ColumnThingName)
	}

	err := t.c.Observe(ctx, "DeleteThing", func(ctx context.Context) error {
		_, err := t.c.registry.DeleteThing(ctx, &iot.DeleteThingInput{ThingName: aws.String(rowID)})
		return err
	})
	if err != nil {
		return iotclient.WrapBackend(err, "delete failed for thing "+rowID)
	}

	t.c.LoggerFor(ctx).Info("thing deleted", zap.String("thing_name", rowID))
	return nil
}

// shadowPayload accepts a shadow document as text, bytes or a decoded JSON value
func shadowPayload(v interface{}) ([]byte, error) {
	switch p := v.(type) {
	case nil:
		return nil, errors.New(errors.ErrorTypeValidation, "thing_shadow_data must not be null").
			WithDetail("column", ColumnThingShadowData)
	case string:
		return []byte(p), nil
	case []byte:
		return p, nil
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "thing_shadow_data is not valid JSON")
		}
		return b, nil
	}
}
