package iotcore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iot/types"

	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	iotclient "github.com/ajitpratap0/iotcore/pkg/iot"
	"github.com/ajitpratap0/iotcore/pkg/json"
)

// Thing type table columns
const (
	ColumnThingTypeArn        = "thing_type_arn"
	ColumnThingTypeProperties = "thing_type_properties"
	ColumnThingTypeMetadata   = "thing_type_metadata"
)

type thingTypeTable struct {
	c *Connector
}

func (t *thingTypeTable) scan(ctx context.Context, quals []core.Qual, columns columnSet) core.RowIterator {
	typeName, filtered := ExtractFilter(core.KindThingType, quals)
	pageNum := 0

	fetch := func(ctx context.Context, token *string) (page[types.ThingTypeDefinition], error) {
		in := &iot.ListThingTypesInput{
			MaxResults: aws.Int32(iotclient.MaxResults),
			NextToken:  token,
		}
		if filtered {
			in.ThingTypeName = aws.String(typeName)
		}

		pageNum++
		var out *iot.ListThingTypesOutput
		err := t.c.listPage(ctx, "ListThingTypes", pageNum, func(ctx context.Context) (int, error) {
			var err error
			out, err = t.c.registry.ListThingTypes(ctx, in)
			if err != nil {
				return 0, iotclient.WrapBackend(err, "no thing types from IoT core")
			}
			return len(out.ThingTypes), nil
		})
		if err != nil {
			return page[types.ThingTypeDefinition]{}, err
		}
		return page[types.ThingTypeDefinition]{items: out.ThingTypes, next: out.NextToken}, nil
	}

	project := func(_ context.Context, def types.ThingTypeDefinition) (core.Row, error) {
		return projectThingType(def, columns)
	}

	return newPageIterator(fetch, project, t.c.MetricsCollector().RowEmitted)
}

func projectThingType(def types.ThingTypeDefinition, columns columnSet) (core.Row, error) {
	row := core.Row{ColumnThingTypeName: aws.ToString(def.ThingTypeName)}

	if columns.has(ColumnThingTypeArn) {
		row[ColumnThingTypeArn] = stringValue(def.ThingTypeArn)
	}
	if columns.has(ColumnThingTypeProperties) {
		props, err := json.MarshalString(thingTypePropertiesDocument(def.ThingTypeProperties))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode thing type properties")
		}
		row[ColumnThingTypeProperties] = props
	}
	if columns.has(ColumnThingTypeMetadata) {
		meta, err := json.MarshalStringCoerced(thingTypeMetadataDocument(def.ThingTypeMetadata))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode thing type metadata")
		}
		row[ColumnThingTypeMetadata] = meta
	}

	return row, nil
}

// thingTypePropertiesDocument renders properties with the service's wire names
func thingTypePropertiesDocument(p *types.ThingTypeProperties) interface{} {
	if p == nil {
		return nil
	}

	doc := map[string]interface{}{}
	if p.ThingTypeDescription != nil {
		doc["thingTypeDescription"] = *p.ThingTypeDescription
	}
	if p.SearchableAttributes != nil {
		doc["searchableAttributes"] = p.SearchableAttributes
	}
	if p.Mqtt5Configuration != nil {
		attrs := make([]map[string]interface{}, 0, len(p.Mqtt5Configuration.PropagatingAttributes))
		for _, a := range p.Mqtt5Configuration.PropagatingAttributes {
			attr := map[string]interface{}{}
			if a.UserPropertyKey != nil {
				attr["userPropertyKey"] = *a.UserPropertyKey
			}
			if a.ThingAttribute != nil {
				attr["thingAttribute"] = *a.ThingAttribute
			}
			if a.ConnectionAttribute != nil {
				attr["connectionAttribute"] = *a.ConnectionAttribute
			}
			attrs = append(attrs, attr)
		}
		doc["mqtt5Configuration"] = map[string]interface{}{"propagatingAttributes": attrs}
	}
	return doc
}

// thingTypeMetadataDocument keeps timestamps as time values; they are turned
// into strings when the document is encoded.
func thingTypeMetadataDocument(m *types.ThingTypeMetadata) interface{} {
	if m == nil {
		return nil
	}

	doc := map[string]interface{}{"deprecated": m.Deprecated}
	if m.CreationDate != nil {
		doc["creationDate"] = *m.CreationDate
	}
	if m.DeprecationDate != nil {
		doc["deprecationDate"] = *m.DeprecationDate
	}
	return doc
}

func (t *thingTypeTable) insert(context.Context, core.Row) (core.Row, error) {
	return nil, errors.NotImplemented("insert", core.KindThingType.String())
}

func (t *thingTypeTable) update(context.Context, string, core.Row) (core.Row, error) {
	return nil, errors.NotImplemented("update", core.KindThingType.String())
}

func (t *thingTypeTable) delete(context.Context, string) error {
	return errors.NotImplemented("delete", core.KindThingType.String())
}
