package adapter_test

import (
	"testing"

	"github.com/leapstack-labs/leapseries/pkg/adapter"
	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/leapseries/pkg/adapters/postgres"
)

func TestPostgresSelfRegistration(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"), "postgres adapter should be auto-registered")
	assert.Contains(t, adapter.ListAdapters(), "postgres")

	d, ok := adapter.DialectOf("postgres")
	require.True(t, ok)
	assert.Equal(t, "postgres", d)
}

func TestNewAdapter_Success(t *testing.T) {
	adp, err := adapter.NewAdapter(core.AdapterConfig{Type: "postgres"}, nil)
	require.NoError(t, err)
	require.NotNil(t, adp)
	assert.True(t, adp.Dialect().IsPostgres())
}

func TestNewAdapter_UnknownListsPostgres(t *testing.T) {
	_, err := adapter.NewAdapter(core.AdapterConfig{Type: "oracle"}, nil)
	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, unknown.Available, "postgres")
}
