package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	"github.com/ajitpratap0/iotcore/pkg/logger"
	"go.uber.org/zap"
)

// Registry manages connector registration and instantiation
type Registry struct {
	tables map[string]TableFactory
	mu     sync.RWMutex
	logger *zap.Logger
}

// TableFactory creates a table from a BaseConfig. The table kind is read from
// the table_type option in cfg.Security.Credentials.
type TableFactory func(cfg *config.BaseConfig) (core.Table, error)

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		tables: make(map[string]TableFactory),
		logger: logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// RegisterTable registers a table connector factory
func (r *Registry) RegisterTable(name string, factory TableFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s already registered", name))
	}

	r.tables[name] = factory
	r.logger.Debug("connector registered", zap.String("name", name))
	return nil
}

// CreateTable creates a table instance
func (r *Registry) CreateTable(name string, cfg *config.BaseConfig) (core.Table, error) {
	r.mu.RLock()
	factory, exists := r.tables[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s not found", name))
	}

	table, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create connector %s", name))
	}

	return table, nil
}

// ListTables returns the registered connector names, sorted
func (r *Registry) ListTables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTable checks if a connector is registered
func (r *Registry) HasTable(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tables[name]
	return exists
}

// Clear removes all registered connectors (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tables = make(map[string]TableFactory)
}

// Global registry functions

// RegisterTable registers a connector in the global registry
func RegisterTable(name string, factory TableFactory) error {
	return globalRegistry.RegisterTable(name, factory)
}

// CreateTable creates a table from the global registry
func CreateTable(name string, cfg *config.BaseConfig) (core.Table, error) {
	return globalRegistry.CreateTable(name, cfg)
}

// ListTables returns registered connectors from the global registry
func ListTables() []string {
	return globalRegistry.ListTables()
}

// HasTable checks if a connector is registered in the global registry
func HasTable(name string) bool {
	return globalRegistry.HasTable(name)
}

// GetRegistry returns the global registry instance.
func GetRegistry() *Registry {
	return globalRegistry
}

// SchemaImporter produces the table definitions a connector offers for a schema.
type SchemaImporter func(schema string) []core.TableDefinition

// ConnectorInfo provides information about a connector
type ConnectorInfo struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Version      string                 `json:"version"`
	Capabilities []string               `json:"capabilities"`
	ConfigSchema map[string]interface{} `json:"config_schema"`
	ImportSchema SchemaImporter         `json:"-"`
}

// ConnectorCatalog manages connector metadata
type ConnectorCatalog struct {
	connectors map[string]*ConnectorInfo
	mu         sync.RWMutex
}

// NewConnectorCatalog creates a new connector catalog
func NewConnectorCatalog() *ConnectorCatalog {
	return &ConnectorCatalog{
		connectors: make(map[string]*ConnectorInfo),
	}
}

// Register adds a connector to the catalog
func (c *ConnectorCatalog) Register(info *ConnectorInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.connectors[info.Name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s already in catalog", info.Name))
	}

	c.connectors[info.Name] = info
	return nil
}

// Get retrieves connector information
func (c *ConnectorCatalog) Get(name string) (*ConnectorInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, exists := c.connectors[name]
	if !exists {
		return nil, errors.New(errors.ErrorTypeNotFound, fmt.Sprintf("connector %s not found in catalog", name))
	}

	return info, nil
}

// List returns all connectors in the catalog, sorted by name
func (c *ConnectorCatalog) List() []*ConnectorInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	infos := make([]*ConnectorInfo, 0, len(c.connectors))
	for _, info := range c.connectors {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Global catalog instance
var globalCatalog = NewConnectorCatalog()

// RegisterConnectorInfo registers connector information in the global catalog
func RegisterConnectorInfo(info *ConnectorInfo) error {
	return globalCatalog.Register(info)
}

// GetConnectorInfo retrieves connector information from the global catalog
func GetConnectorInfo(name string) (*ConnectorInfo, error) {
	return globalCatalog.Get(name)
}

// ListConnectorInfo lists all connectors in the global catalog
func ListConnectorInfo() []*ConnectorInfo {
	return globalCatalog.List()
}
