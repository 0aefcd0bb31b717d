package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/errors"
)

type fakeTable struct {
	core.Table
	name string
}

func (f *fakeTable) Name() string { return f.name }

func (f *fakeTable) Execute(ctx context.Context, quals []core.Qual, columns []string) (core.RowIterator, error) {
	return core.NewSliceIterator(nil), nil
}

func TestRegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterTable("fake", func(cfg *config.BaseConfig) (core.Table, error) {
		return &fakeTable{name: cfg.Name}, nil
	}))

	assert.True(t, r.HasTable("fake"))
	assert.Equal(t, []string{"fake"}, r.ListTables())

	table, err := r.CreateTable("fake", config.NewBaseConfig("devices", "fake"))
	require.NoError(t, err)
	assert.Equal(t, "devices", table.Name())
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	factory := func(cfg *config.BaseConfig) (core.Table, error) { return &fakeTable{}, nil }
	require.NoError(t, r.RegisterTable("fake", factory))

	err := r.RegisterTable("fake", factory)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCreateUnknownAndFailing(t *testing.T) {
	r := NewRegistry()
	_, err := r.CreateTable("missing", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	require.NoError(t, r.RegisterTable("broken", func(cfg *config.BaseConfig) (core.Table, error) {
		return nil, errors.New(errors.ErrorTypeConfig, "please set the AWS region")
	}))
	_, err = r.CreateTable("broken", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create connector broken")
	assert.Contains(t, err.Error(), "please set the AWS region")

	r.Clear()
	assert.Empty(t, r.ListTables())
}

func TestCatalog(t *testing.T) {
	c := NewConnectorCatalog()
	require.NoError(t, c.Register(&ConnectorInfo{
		Name: "iotcore",
		ImportSchema: func(schema string) []core.TableDefinition {
			return []core.TableDefinition{{Name: schema + "_things"}}
		},
	}))
	require.Error(t, c.Register(&ConnectorInfo{Name: "iotcore"}))

	info, err := c.Get("iotcore")
	require.NoError(t, err)
	assert.Equal(t, "aws_things", info.ImportSchema("aws")[0].Name)

	_, err = c.Get("other")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	assert.Len(t, c.List(), 1)
}
