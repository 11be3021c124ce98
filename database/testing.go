package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	testPostgres *PostgresStore
	testMongo    *MongoStore
)

// GetTestPostgres returns the shared Postgres store, or nil when TestMain
// found no TEST_DATABASE_URL.
func GetTestPostgres() *PostgresStore {
	return testPostgres
}

// GetTestMongo returns the shared Mongo store, or nil when TestMain found no
// TEST_MONGO_URI.
func GetTestMongo() *MongoStore {
	return testMongo
}

// SetupTestPostgres connects to dbURL and runs the embedded migrations.
// Should be called once in TestMain, not in individual tests.
func SetupTestPostgres(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := ConnectPostgres(ctx, dbURL, zerolog.Nop())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// SetupTestMongo connects to uri using a throwaway database name.
func SetupTestMongo(uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := ConnectMongo(ctx, uri, database, zerolog.Nop())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test mongo: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return db, nil
}

// CleanupTestPostgres truncates the issues table for a fresh test state.
func CleanupTestPostgres(t *testing.T, db *PostgresStore) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(), "TRUNCATE TABLE issues RESTART IDENTITY")
	require.NoError(t, err)
}

// CleanupTestMongo removes every document from the issues collection.
func CleanupTestMongo(t *testing.T, db *MongoStore) {
	t.Helper()

	_, err := db.issues.DeleteMany(context.Background(), bson.D{})
	require.NoError(t, err)
}

// TeardownTestMongo drops the test database and disconnects.
// Safe to call with nil store (no-op).
func TeardownTestMongo(db *MongoStore) {
	if db == nil {
		return
	}
	_ = db.issues.Database().Drop(context.Background())
	db.Close()
}

// TeardownTestPostgres closes the test connection pool.
// Safe to call with nil store (no-op).
func TeardownTestPostgres(db *PostgresStore) {
	if db != nil {
		db.Close()
	}
}
