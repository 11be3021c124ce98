package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
)

const (
	testDatabaseName      = "issuetracker_test"
	testMongoDatabaseName = "issuetracker_test"
)

// TestMain prepares the optional integration backends. Unit tests run
// regardless; the Postgres and Mongo suites skip when their URL is unset.
func TestMain(m *testing.M) {
	if dbURL := os.Getenv("TEST_DATABASE_URL"); dbURL != "" {
		testDBURL, err := createPostgresTestDatabase(dbURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create test database: %v\n", err)
			fmt.Fprintf(os.Stderr, "Make sure postgres is running:\n")
			fmt.Fprintf(os.Stderr, "  docker-compose up -d postgres\n")
			os.Exit(1)
		}

		testPostgres, err = SetupTestPostgres(testDBURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to setup test database: %v\n", err)
			os.Exit(1)
		}
	}

	if mongoURI := os.Getenv("TEST_MONGO_URI"); mongoURI != "" {
		var err error
		testMongo, err = SetupTestMongo(mongoURI, testMongoDatabaseName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to setup test mongo: %v\n", err)
			os.Exit(1)
		}
	}

	code := m.Run()

	TeardownTestPostgres(testPostgres)
	TeardownTestMongo(testMongo)
	if dbURL := os.Getenv("TEST_DATABASE_URL"); dbURL != "" {
		dropPostgresTestDatabase(dbURL)
	}

	os.Exit(code)
}

func createPostgresTestDatabase(dbURL string) (string, error) {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return "", err
	}
	defer conn.Close(ctx)

	_, _ = conn.Exec(ctx, "DROP DATABASE IF EXISTS "+testDatabaseName)
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+testDatabaseName); err != nil {
		return "", err
	}

	u, err := url.Parse(dbURL)
	if err != nil {
		return "", err
	}
	u.Path = "/" + testDatabaseName
	return u.String(), nil
}

func dropPostgresTestDatabase(dbURL string) {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err == nil {
		conn.Exec(ctx, "DROP DATABASE IF EXISTS "+testDatabaseName)
		conn.Close(ctx)
	}
}
