package store

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// openTestDB returns a database with a freshly migrated public schema. It uses
// TEST_DATABASE_URL when set and a throwaway postgres container otherwise.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		dsn = startPostgres(ctx, t)
	}

	db, err := Open(ctx, dsn, PoolOptions{})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := ApplyMigrations(ctx, db, os.DirFS(migrationsDir), nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "nexio",
				"POSTGRES_PASSWORD": "nexio",
				"POSTGRES_DB":       "nexio_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		t.Fatalf("postgres endpoint: %v", err)
	}
	return "postgres://nexio:nexio@" + endpoint + "/nexio_test?sslmode=disable"
}

func resetPublicSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	return err
}

type fixture struct {
	tenantID int64
	userID   int64
	moduleID int64
}

func seedFixture(t *testing.T, db *sql.DB, tenantName string) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	if err := db.QueryRowContext(ctx,
		`INSERT INTO tenants (name, address) VALUES ($1, 'Via Roma 1') RETURNING id`, tenantName,
	).Scan(&f.tenantID); err != nil {
		t.Fatalf("insert tenant: %v", err)
	}
	if err := db.QueryRowContext(ctx, `
		INSERT INTO users (tenant_id, email, display_name, password_hash, role)
		VALUES ($1, $2, 'Editor', 'x', 'editor') RETURNING id
	`, f.tenantID, strings.ToLower(tenantName)+"@example.com").Scan(&f.userID); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := db.QueryRowContext(ctx,
		`INSERT INTO modules (tenant_id, name) VALUES ($1, 'Qualità') RETURNING id`, f.tenantID,
	).Scan(&f.moduleID); err != nil {
		t.Fatalf("insert module: %v", err)
	}
	return f
}

func timeNowPlusHour() time.Time {
	return time.Now().Add(time.Hour)
}
