// Package iotcore exposes the AWS IoT Core device registry as tables. One
// Connector serves one table kind: things, thing types or thing groups.
//
// Predicates the list APIs understand are pushed down (see ExtractFilter),
// results are paged lazily, and columns that need a secondary lookup
// (thing_groups, thing_shadow_data) are only fetched when the host asks for
// them. Only things can be mutated.
package iotcore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/connector/base"
	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	iotclient "github.com/ajitpratap0/iotcore/pkg/iot"
	"github.com/ajitpratap0/iotcore/pkg/logger"
)

const (
	// ConnectorName is the name the connector registers under
	ConnectorName = "iotcore"
	// Version of the connector
	Version = "1.0.0"
	// StartupCost is the fixed planning cost reported to the host
	StartupCost = 1000
)

// kindTable holds the behavior that differs between table kinds
type kindTable interface {
	scan(ctx context.Context, quals []core.Qual, columns columnSet) core.RowIterator
	insert(ctx context.Context, values core.Row) (core.Row, error)
	update(ctx context.Context, rowID string, values core.Row) (core.Row, error)
	delete(ctx context.Context, rowID string) error
}

// Connector is one registry table
type Connector struct {
	*base.BaseConnector

	options  config.IoTCoreOptions
	registry iotclient.RegistryAPI
	shadow   iotclient.ShadowAPI
	table    kindTable
}

// Compile-time interface compliance check
var _ core.Table = (*Connector)(nil)

// New creates a connector from configuration, building its own backend clients.
// Missing region or credentials and unknown table types are configuration errors.
func New(ctx context.Context, cfg *config.BaseConfig) (*Connector, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	opts := config.IoTCoreOptionsFromConfig(cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if _, err := core.ParseKind(opts.TableType); err != nil {
		return nil, err
	}

	clients, err := iotclient.NewClients(ctx, opts, cfg.Timeouts)
	if err != nil {
		return nil, err
	}
	return NewWithClients(ctx, cfg, clients)
}

// NewWithClients creates a connector on top of existing backend clients.
func NewWithClients(ctx context.Context, cfg *config.BaseConfig, clients *iotclient.Clients) (*Connector, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	if clients == nil || clients.Registry == nil || clients.Shadow == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "registry and shadow clients are required")
	}

	opts := config.IoTCoreOptionsFromConfig(cfg)
	kind, err := core.ParseKind(opts.TableType)
	if err != nil {
		return nil, err
	}

	c := &Connector{
		BaseConnector: base.NewBaseConnector(ConnectorName, kind, Version),
		options:       opts,
		registry:      clients.Registry,
		shadow:        clients.Shadow,
	}
	c.SetStatusClassifier(iotclient.ClassifyStatus)
	c.SetHealthCheck(c.probe)

	switch kind {
	case core.KindThing:
		c.table = &thingTable{c: c}
	case core.KindThingType:
		c.table = &thingTypeTable{c: c}
	case core.KindThingGroup:
		c.table = &thingGroupTable{c: c}
	}

	if err := c.Initialize(ctx, cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// RowIDColumn returns the identity column of the table kind
func (c *Connector) RowIDColumn() string {
	return c.Kind().IdentityColumn()
}

// PathKeys advertises that a lookup by identity returns one row
func (c *Connector) PathKeys() []core.PathKey {
	return []core.PathKey{{Columns: []string{c.RowIDColumn()}, ExpectedRows: 1}}
}

// StartupCost returns the fixed planning cost
func (c *Connector) StartupCost() int {
	return StartupCost
}

// Execute starts a scan. Rows are fetched as the returned iterator is pulled;
// backend failures are reported by the iterator's Err.
func (c *Connector) Execute(ctx context.Context, quals []core.Qual, columns []string) (core.RowIterator, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if _, ok := ctx.Value(logger.TableKey).(string); !ok {
		ctx = context.WithValue(ctx, logger.TableKey, c.Name())
	}
	return c.table.scan(ctx, quals, newColumnSet(columns)), nil
}

// Insert creates a thing
func (c *Connector) Insert(ctx context.Context, values core.Row) (core.Row, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	row, err := c.table.insert(ctx, values)
	c.MetricsCollector().Mutation("insert", err)
	return row, err
}

// Update writes the shadow document of a thing
func (c *Connector) Update(ctx context.Context, rowID string, values core.Row) (core.Row, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	row, err := c.table.update(ctx, rowID, values)
	c.MetricsCollector().Mutation("update", err)
	return row, err
}

// Delete removes a thing
func (c *Connector) Delete(ctx context.Context, rowID string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	err := c.table.delete(ctx, rowID)
	c.MetricsCollector().Mutation("delete", err)
	return err
}

// Metrics returns connector metrics
func (c *Connector) Metrics() map[string]interface{} {
	m := c.BaseConnector.Metrics()
	m["row_id_column"] = c.RowIDColumn()
	if c.options.ShadowName != "" {
		m["shadow_name"] = c.options.ShadowName
	}
	return m
}

func (c *Connector) checkOpen() error {
	if c.Closed() {
		return errors.New(errors.ErrorTypeConnection, "connector is closed")
	}
	return nil
}

// probe checks that the registry accepts our credentials
func (c *Connector) probe(ctx context.Context) error {
	return c.Observe(ctx, "ListThingTypes", func(ctx context.Context) error {
		_, err := c.registry.ListThingTypes(ctx, &iot.ListThingTypesInput{MaxResults: aws.Int32(1)})
		return iotclient.WrapBackend(err, "registry health probe failed")
	})
}

// listPage runs one list call under Observe and logs the page
func (c *Connector) listPage(ctx context.Context, operation string, pageNum int, call func(ctx context.Context) (int, error)) error {
	var n int
	err := c.Observe(ctx, operation, func(ctx context.Context) error {
		var err error
		n, err = call(ctx)
		return err
	}, attribute.Int("iotcore.page", pageNum))
	if err != nil {
		return err
	}
	c.LoggerFor(ctx).Debug("page fetched",
		zap.String("operation", operation),
		zap.Int("page", pageNum),
		zap.Int("items", n))
	return nil
}

// columnSet is the set of columns the host asked for
type columnSet map[string]struct{}

func newColumnSet(columns []string) columnSet {
	s := make(columnSet, len(columns))
	for _, c := range columns {
		s[c] = struct{}{}
	}
	return s
}

func (s columnSet) has(column string) bool {
	_, ok := s[column]
	return ok
}

// stringValue returns nil for a nil pointer so the column reads as NULL
func stringValue(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
