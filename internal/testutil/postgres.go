// Package testutil starts the shared PostgreSQL container integration
// tests run against. Each test package spins up one container in its
// TestMain and tears it down afterwards; tests isolate from each other by
// using distinct root keys and rooms rather than by truncating tables.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/inkbase/inkbase/pkg/store"
)

const (
	dbName     = "inkbase_test"
	dbUser     = "inkbase_test"
	dbPassword = "inkbase_test"
)

var testConfig *store.Config

// RunWithPostgres starts a postgres container, applies migrations, runs
// the test binary, and terminates the container. Call from TestMain.
func RunWithPostgres(m *testing.M) int {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       dbName,
			"POSTGRES_USER":     dbUser,
			"POSTGRES_PASSWORD": dbPassword,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("5432/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		return 1
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		return 1
	}

	testConfig = &store.Config{
		Host:     host,
		Port:     port.Int(),
		Database: dbName,
		User:     dbUser,
		Password: dbPassword,
		SSLMode:  "disable",
	}

	if err := store.RunMigrations(ctx, testConfig); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		return 1
	}

	return m.Run()
}

// Config returns the connection settings of the shared container.
func Config(t *testing.T) *store.Config {
	t.Helper()
	if testConfig == nil {
		t.Fatal("testutil.RunWithPostgres was not called from TestMain")
	}
	cfg := *testConfig
	return &cfg
}

// NewPool opens a pgx pool against the shared container and closes it
// when the test finishes.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	cfg := Config(t)
	cfg.ApplyDefaults()

	pool, err := pgxpool.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
