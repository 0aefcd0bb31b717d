package iotcore

import (
	"context"

	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/connector/registry"
)

func init() {
	// Register the IoT Core connector in the global registry
	_ = registry.RegisterTable(ConnectorName, func(cfg *config.BaseConfig) (core.Table, error) {
		return New(context.Background(), cfg)
	})

	// Register connector information
	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        ConnectorName,
		Description: "AWS IoT Core device registry: things, thing types and thing groups",
		Version:     Version,
		Capabilities: []string{
			"predicate_pushdown",
			"pagination",
			"column_projection",
			"insert",
			"update",
			"delete",
			"import_schema",
		},
		ConfigSchema: map[string]interface{}{
			config.OptionURL: map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "Registry endpoint override",
			},
			config.OptionDataURL: map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "Shadow endpoint override (defaults to url)",
			},
			config.OptionRegion: map[string]interface{}{
				"type":        "string",
				"required":    true,
				"description": "AWS region",
			},
			config.OptionAccessKey: map[string]interface{}{
				"type":        "string",
				"required":    true,
				"description": "AWS access key",
			},
			config.OptionSecretKey: map[string]interface{}{
				"type":        "string",
				"required":    true,
				"description": "AWS secret key",
			},
			config.OptionTableType: map[string]interface{}{
				"type":        "string",
				"required":    false,
				"default":     config.DefaultTableType,
				"description": "thing, thing-type or thing-group",
			},
			config.OptionShadowName: map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "Named shadow read and written instead of the classic shadow",
			},
		},
		ImportSchema: ImportSchema,
	})
}
