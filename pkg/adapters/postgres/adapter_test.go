package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapseries/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name:     "defaults",
			config:   adapter.Config{Database: "mydb"},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "empty sslmode option falls back",
			config: adapter.Config{
				Database: "mydb",
				Options:  map[string]string{"sslmode": ""},
			},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "quoted values",
			config: adapter.Config{
				Host:     "db.example.com",
				Port:     5433,
				Username: "analyst",
				Password: `it's a \secret`,
			},
			expected: `host=db.example.com port=5433 dbname='' sslmode=disable user=analyst password='it\'s a \\secret'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestNew(t *testing.T) {
	adp := New(nil)

	require.NotNil(t, adp)
	assert.Nil(t, adp.DB, "DB should be nil before Connect")
	assert.False(t, adp.IsConnected())
	assert.True(t, adp.Dialect().IsPostgres())
	assert.NotNil(t, adp.Logger, "nil logger is replaced")
}

func TestAdapter_NotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, adp *Adapter) error
	}{
		{
			name: "exec without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				return adp.Exec(ctx, "SELECT 1")
			},
		},
		{
			name: "query without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.Query(ctx, "SELECT 1")
				return err
			},
		},
		{
			name: "query column without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.QueryColumn(ctx, "SELECT 1")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.operation(context.Background(), New(nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not established")
		})
	}
}

func TestAdapter_QueryColumnThroughBase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	adp := New(nil)
	adp.DB = db

	mock.ExpectQuery(`SELECT cast\(\(jsonb_array_length\(j\)\) as text\)`).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("3").AddRow(nil))
	mock.ExpectClose()

	got, err := adp.QueryColumn(context.Background(), "SELECT cast((jsonb_array_length(j)) as text) FROM t")
	require.NoError(t, err)
	assert.Equal(t, []adapter.Value{{Text: "3"}, {Null: true}}, got)

	require.NoError(t, adp.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("postgres")
	require.True(t, ok, "should be able to get postgres factory")

	pg, ok := factory(nil).(*Adapter)
	require.True(t, ok, "factory should return *Adapter")
	assert.True(t, pg.Dialect().IsPostgres())
}

func TestAdapter_ConnectFailsFast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(nil).Connect(ctx, adapter.Config{DSN: "host=127.0.0.1 port=1 dbname=none sslmode=disable connect_timeout=1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping postgres")
}
