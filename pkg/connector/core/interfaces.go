package core

import (
	"context"
	"strings"
	"time"

	"github.com/ajitpratap0/iotcore/pkg/errors"
)

// Kind selects which registry entity a table exposes
type Kind string

const (
	KindThing      Kind = "thing"
	KindThingType  Kind = "thing-type"
	KindThingGroup Kind = "thing-group"
)

// Kinds lists every supported kind in schema order
var Kinds = []Kind{KindThing, KindThingType, KindThingGroup}

// ParseKind parses a table_type option. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindThing, KindThingType, KindThingGroup:
		return k, nil
	}
	return "", errors.Newf(errors.ErrorTypeConfig, "this connector does not support table_type %s", s).
		WithDetail("table_type", s)
}

// IdentityColumn returns the column that uniquely names a row of this kind
func (k Kind) IdentityColumn() string {
	switch k {
	case KindThingType:
		return "thing_type_name"
	case KindThingGroup:
		return "thing_group_name"
	default:
		return "thing_name"
	}
}

func (k Kind) String() string {
	return string(k)
}

// Operator is a predicate operator as the host spells it
type Operator string

const (
	OperatorEqual Operator = "="
	OperatorLike  Operator = "~~"
)

// Qual is a predicate the host offers for pushdown
type Qual struct {
	Field    string
	Operator Operator
	Value    string
}

// Row maps column names to values. Absent keys are absent columns.
type Row map[string]interface{}

// RowIterator is a lazy, pull-driven sequence of rows. Next returns false when
// the sequence ends or fails; Err reports the failure.
type RowIterator interface {
	Next(ctx context.Context) bool
	Row() Row
	Err() error
	Close() error
}

// FieldType represents the data type of a column
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeInteger FieldType = "integer"
	FieldTypeJSONB   FieldType = "jsonb"
)

// ColumnDefinition describes one column of a table
type ColumnDefinition struct {
	Name string    `json:"name" yaml:"name"`
	Type FieldType `json:"type" yaml:"type"`
}

// TableDefinition describes one importable table
type TableDefinition struct {
	Name    string             `json:"name" yaml:"name"`
	Schema  string             `json:"schema" yaml:"schema"`
	Options map[string]string  `json:"options" yaml:"options"`
	Columns []ColumnDefinition `json:"columns" yaml:"columns"`
}

// ColumnNames returns the table's column names in order
func (t TableDefinition) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PathKey advertises a column set the host can look rows up by, and how many
// rows such a lookup is expected to return.
type PathKey struct {
	Columns      []string
	ExpectedRows int
}

// Table is the contract between the host query engine and a registry table.
type Table interface {
	// Metadata
	Name() string
	Kind() Kind
	Version() string

	// Scans
	Execute(ctx context.Context, quals []Qual, columns []string) (RowIterator, error)
	RowIDColumn() string
	PathKeys() []PathKey
	StartupCost() int

	// Mutations
	Insert(ctx context.Context, values Row) (Row, error)
	Update(ctx context.Context, rowID string, values Row) (Row, error)
	Delete(ctx context.Context, rowID string) error

	// Lifecycle
	Close(ctx context.Context) error
	Health(ctx context.Context) error
	Metrics() map[string]interface{}
}

// HealthStatus represents the health status of a table
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details"`
	Error     error                  `json:"error,omitempty"`
}
