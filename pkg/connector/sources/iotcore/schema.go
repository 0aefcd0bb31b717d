package iotcore

import (
	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/connector/core"
)

// Columns returns the column definitions of a table kind
func Columns(kind core.Kind) []core.ColumnDefinition {
	switch kind {
	case core.KindThingType:
		return []core.ColumnDefinition{
			{Name: ColumnThingTypeName, Type: core.FieldTypeText},
			{Name: ColumnThingTypeArn, Type: core.FieldTypeText},
			{Name: ColumnThingTypeProperties, Type: core.FieldTypeJSONB},
			{Name: ColumnThingTypeMetadata, Type: core.FieldTypeJSONB},
		}
	case core.KindThingGroup:
		return []core.ColumnDefinition{
			{Name: ColumnThingGroupName, Type: core.FieldTypeText},
			{Name: ColumnThingGroupArn, Type: core.FieldTypeText},
		}
	default:
		return []core.ColumnDefinition{
			{Name: ColumnThingName, Type: core.FieldTypeText},
			{Name: ColumnThingTypeName, Type: core.FieldTypeText},
			{Name: ColumnThingArn, Type: core.FieldTypeText},
			{Name: ColumnThingVersion, Type: core.FieldTypeInteger},
			{Name: ColumnThingGroups, Type: core.FieldTypeJSONB},
			{Name: ColumnThingAttributes, Type: core.FieldTypeJSONB},
			{Name: ColumnThingShadowData, Type: core.FieldTypeJSONB},
		}
	}
}

var tableSuffix = map[core.Kind]string{
	core.KindThing:      "things",
	core.KindThingType:  "thing_types",
	core.KindThingGroup: "thing_groups",
}

// ImportSchema returns one table definition per kind, named <schema>_things,
// <schema>_thing_types and <schema>_thing_groups.
func ImportSchema(schema string) []core.TableDefinition {
	defs := make([]core.TableDefinition, 0, len(core.Kinds))
	for _, kind := range core.Kinds {
		defs = append(defs, core.TableDefinition{
			Name:    schema + "_" + tableSuffix[kind],
			Schema:  schema,
			Options: map[string]string{config.OptionTableType: kind.String()},
			Columns: Columns(kind),
		})
	}
	return defs
}
