// Package testutil provides fixtures shared by package tests
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/config"
	"github.com/straye-as/crm-api/internal/database"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewSQLiteDB opens a private in-memory SQLite database that lives until the test ends
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	db, err := database.NewDatabase(config.StoreBackendSQLite, &config.DatabaseConfig{SQLitePath: dsn})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewStore returns a migrated SQL document store on a fresh in-memory database
func NewStore(t *testing.T) *docstore.SQLStore {
	t.Helper()
	return NewStoreWithBroker(t, docstore.NewLocalBroker())
}

// NewStoreWithBroker is NewStore with an explicit change broker
func NewStoreWithBroker(t *testing.T, broker docstore.Broker) *docstore.SQLStore {
	t.Helper()
	store := docstore.NewSQLStore(NewSQLiteDB(t), broker, zap.NewNop())
	require.NoError(t, store.AutoMigrate())
	return store
}
